package taxreport

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
)

// Column layout of the headerless Kraken2 report.
const (
	krakenColPercent = iota
	krakenColReadsRooted
	krakenColReadsDirect
	krakenColRank
	krakenColTaxID
	krakenColName

	krakenColumns
)

// speciesRank marks species-level rows in the Kraken2 report. Sub-species
// rows (S1, S2, ...) are deliberately excluded.
const speciesRank = "S"

// ParseKraken reads a raw Kraken2 report and returns one Record per
// species-level row, using the reads-rooted count (reads assigned at or
// below the species).
func ParseKraken(r io.Reader) ([]Record, error) {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.LazyQuotes = true
	c.FieldsPerRecord = -1

	out := newFold()

	for line := 1; ; line++ {
		row, err := c.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("%w: %v", ErrMalformedReport, err))
		}

		if len(row) != krakenColumns {
			return nil, fmt.Errorf("%w: line %d: expected %d columns, got %d", ErrMalformedReport, line, krakenColumns, len(row))
		}

		if row[krakenColRank] != speciesRank {
			continue
		}

		reads, err := parseReads(row[krakenColReadsRooted], line)
		if err != nil {
			return nil, err
		}

		out.add(row[krakenColName], reads)
	}

	return out.records(), nil
}
