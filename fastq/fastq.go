// Package fastq discovers sequencing read files on disk and groups them into
// samples, pairing *_R1*/*_R2* mates where both exist.
package fastq

import (
	"strings"
)

// ReadFileSet is one sample's raw input: a sample identifier and either one
// (single-end) or two (paired-end) read file paths. For paired-end samples
// the order is always [read1, read2].
type ReadFileSet struct {
	ID    string
	Paths []string
}

// Paired reports whether the sample has both mates.
func (r ReadFileSet) Paired() bool {
	return len(r.Paths) == 2
}

// Gzipped reports whether any of the sample's read files is gzip-compressed.
func (r ReadFileSet) Gzipped() bool {
	for _, p := range r.Paths {
		if strings.HasSuffix(p, ".gz") {
			return true
		}
	}

	return false
}

// Recognized read-file suffixes, longest first so that TrimReadSuffix strips
// the compressed forms whole.
var readSuffixes = []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"}

// IsReadFile reports whether name carries a recognized read-file suffix.
func IsReadFile(name string) bool {
	for _, suffix := range readSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

// TrimReadSuffix strips one recognized read-file suffix from name, if present.
func TrimReadSuffix(name string) string {
	for _, suffix := range readSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}

	return name
}
