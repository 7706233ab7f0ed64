package fastq

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
)

const (
	read1Marker = "_R1"
	read2Marker = "_R2"
)

var (
	// ErrDirectoryNotFound indicates the input directory does not exist.
	ErrDirectoryNotFound = errors.New("input directory not found")

	// ErrNoInputFiles indicates the directory tree contains no recognized
	// read files.
	ErrNoInputFiles = errors.New("no read files found")

	// ErrDuplicateSample indicates two different source files derived the
	// same sample identifier. Overwriting silently would drop a sample, so
	// this is fatal.
	ErrDuplicateSample = errors.New("duplicate sample identifier")
)

// DiscoverSamples walks root recursively and groups every recognized read
// file into a ReadFileSet keyed by sample identifier.
//
// Files whose basename contains the _R1 marker are pairing candidates: if
// the path obtained by substituting _R2 at the marker position exists among
// the discovered files, the sample is registered paired, in [R1, R2] order.
// A candidate with no partner degrades to single-end rather than failing.
// Every file not consumed by pairing becomes its own single-end sample,
// identified by its basename with the read suffix stripped.
func DiscoverSamples(root string) (map[string]ReadFileSet, error) {
	if info, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
		}

		return nil, pfx.Err(err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, root)
	}

	var readFiles []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && IsReadFile(d.Name()) {
			readFiles = append(readFiles, path)
		}

		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(readFiles) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, root)
	}

	known := make(map[string]bool, len(readFiles))
	for _, f := range readFiles {
		known[f] = true
	}

	samples := make(map[string]ReadFileSet)
	consumed := make(map[string]bool)

	register := func(id string, paths ...string) error {
		if prior, exists := samples[id]; exists {
			return fmt.Errorf("%w: %q derived from both %s and %s",
				ErrDuplicateSample, id, prior.Paths[0], paths[0])
		}

		samples[id] = ReadFileSet{ID: id, Paths: paths}
		for _, p := range paths {
			consumed[p] = true
		}

		return nil
	}

	// Pass 1: pair up the _R1 candidates.
	for _, r1 := range readFiles {
		base := filepath.Base(r1)
		if !strings.Contains(base, read1Marker) {
			continue
		}

		id := base[:strings.Index(base, read1Marker)]
		r2 := filepath.Join(filepath.Dir(r1), strings.Replace(base, read1Marker, read2Marker, 1))

		if known[r2] {
			if err := register(id, r1, r2); err != nil {
				return nil, err
			}
		} else if err := register(id, r1); err != nil {
			return nil, err
		}
	}

	// Pass 2: everything left over is its own single-end sample.
	for _, f := range readFiles {
		if consumed[f] {
			continue
		}

		if err := register(TrimReadSuffix(filepath.Base(f)), f); err != nil {
			return nil, err
		}
	}

	return samples, nil
}
