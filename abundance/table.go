package abundance

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/carbocation/pfx"
)

// Table is the finalized wide abundance matrix. Every row carries exactly
// len(Taxa) counts, zero where the sample did not observe the taxon.
type Table struct {
	Taxa []string
	Rows []Row
}

// Row is one successfully classified sample's counts, positionally aligned
// with the parent table's Taxa.
type Row struct {
	SampleID string
	Counts   []int
}

// Lookup returns the count for a (sample, taxon) cell. Absent sample or
// taxon yields 0, indistinguishable from an observed zero, just as in the
// written table.
func (t *Table) Lookup(sampleID, taxon string) int {
	col := -1
	for i, name := range t.Taxa {
		if name == taxon {
			col = i
			break
		}
	}
	if col < 0 {
		return 0
	}

	for _, row := range t.Rows {
		if row.SampleID == sampleID {
			return row.Counts[col]
		}
	}

	return 0
}

// WriteCSV emits the table with a sample_id column followed by one column
// per taxon. A table with no rows still emits the header line.
func (t *Table) WriteCSV(w io.Writer) error {
	c := csv.NewWriter(w)

	header := append([]string{"sample_id"}, t.Taxa...)
	if err := c.Write(header); err != nil {
		return pfx.Err(err)
	}

	line := make([]string, 0, len(header))
	for _, row := range t.Rows {
		line = line[:0]
		line = append(line, row.SampleID)
		for _, n := range row.Counts {
			line = append(line, strconv.Itoa(n))
		}

		if err := c.Write(line); err != nil {
			return pfx.Err(err)
		}
	}

	c.Flush()

	return pfx.Err(c.Error())
}
