// Package taxreport parses the two classifier report schemas — the raw
// hierarchical Kraken2 report and the refined Bracken abundance table — into
// one canonical record shape: a species name and a read count.
package taxreport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is one species-level observation from a single report.
type Record struct {
	Taxon string
	Reads int
}

// ErrMalformedReport indicates report content that cannot be interpreted:
// wrong column count, a missing header column, or a non-numeric count.
var ErrMalformedReport = errors.New("malformed report")

func parseReads(field string, line int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: read count %q is not an integer", ErrMalformedReport, line, field)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: line %d: negative read count %d", ErrMalformedReport, line, n)
	}

	return n, nil
}

// fold merges consecutive parses into at most one record per taxon, summing
// duplicates, while preserving first-seen order.
type fold struct {
	order []string
	reads map[string]int
}

func newFold() *fold {
	return &fold{reads: make(map[string]int)}
}

func (f *fold) add(taxon string, reads int) {
	taxon = strings.TrimSpace(taxon)
	if taxon == "" {
		return
	}

	if _, seen := f.reads[taxon]; !seen {
		f.order = append(f.order, taxon)
	}
	f.reads[taxon] += reads
}

func (f *fold) records() []Record {
	out := make([]Record, 0, len(f.order))
	for _, taxon := range f.order {
		out = append(out, Record{Taxon: taxon, Reads: f.reads[taxon]})
	}

	return out
}
