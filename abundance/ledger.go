// Package abundance accumulates per-sample taxon counts in long form and
// pivots them, exactly once, into a wide sample-by-taxon table.
//
// The two-phase design is deliberate: appending rows to a fixed-header table
// while samples are still being classified corrupts the output as soon as a
// later sample observes a taxon an earlier sample did not. The column set is
// only knowable after every sample has been attempted, so nothing is
// materialized until Finalize.
package abundance

import (
	"sort"
	"sync"

	"github.com/Sebukpor/microbeclass/taxreport"
)

// Ledger collects tidy (sample, taxon, reads) records. Add is safe for
// concurrent use by multiple sample workers.
type Ledger struct {
	mu sync.Mutex

	// counts[sampleID][taxon] => reads
	counts map[string]map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]map[string]int)}
}

// Add records one sample's normalized observations. Re-adding a (sample,
// taxon) pair sums into the existing count, preserving the at-most-one-
// record-per-pair invariant of the final table.
func (l *Ledger) Add(sampleID string, records []taxreport.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	taxa := l.counts[sampleID]
	if taxa == nil {
		taxa = make(map[string]int, len(records))
		l.counts[sampleID] = taxa
	}

	for _, rec := range records {
		taxa[rec.Taxon] += rec.Reads
	}
}

// Finalize pivots the accumulated records into a Table whose columns are the
// union of all observed taxa. Rows are sorted by sample identifier and
// columns by taxon name, so repeated runs over the same inputs produce
// byte-identical output.
func (l *Ledger) Finalize() *Table {
	l.mu.Lock()
	defer l.mu.Unlock()

	taxaSet := make(map[string]bool)
	sampleIDs := make([]string, 0, len(l.counts))

	for sampleID, taxa := range l.counts {
		sampleIDs = append(sampleIDs, sampleID)
		for taxon := range taxa {
			taxaSet[taxon] = true
		}
	}

	taxa := make([]string, 0, len(taxaSet))
	for taxon := range taxaSet {
		taxa = append(taxa, taxon)
	}

	sort.Strings(sampleIDs)
	sort.Strings(taxa)

	t := &Table{Taxa: taxa, Rows: make([]Row, 0, len(sampleIDs))}
	for _, sampleID := range sampleIDs {
		row := Row{SampleID: sampleID, Counts: make([]int, len(taxa))}
		for i, taxon := range taxa {
			row.Counts[i] = l.counts[sampleID][taxon]
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}
