package taxreport

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
)

// Header columns consumed from the Bracken output. The column order varies
// across Bracken versions, so both are resolved by name.
const (
	brackenNameColumn  = "name"
	brackenReadsColumn = "new_est_reads"
)

// ParseBracken reads a refined Bracken abundance report (tab-separated, with
// a header row) and returns one Record per taxon, using the re-estimated
// read count.
func ParseBracken(r io.Reader) ([]Record, error) {
	c := csv.NewReader(r)
	c.Comma = '\t'
	c.LazyQuotes = true
	c.FieldsPerRecord = -1

	header, err := c.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedReport)
	} else if err != nil {
		return nil, pfx.Err(fmt.Errorf("%w: %v", ErrMalformedReport, err))
	}

	nameCol, readsCol := -1, -1
	for i, col := range header {
		switch col {
		case brackenNameColumn:
			nameCol = i
		case brackenReadsColumn:
			readsCol = i
		}
	}
	if nameCol < 0 || readsCol < 0 {
		return nil, fmt.Errorf("%w: header lacks %q or %q", ErrMalformedReport, brackenNameColumn, brackenReadsColumn)
	}

	out := newFold()

	for line := 2; ; line++ {
		row, err := c.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("%w: %v", ErrMalformedReport, err))
		}

		if len(row) <= nameCol || len(row) <= readsCol {
			return nil, fmt.Errorf("%w: line %d: too few columns", ErrMalformedReport, line)
		}

		reads, err := parseReads(row[readsCol], line)
		if err != nil {
			return nil, err
		}

		out.add(row[nameCol], reads)
	}

	return out.records(), nil
}
