// Package classify drives read-file samples through Kraken2, optionally
// refines the counts with Bracken, and normalizes either report into tidy
// taxon records. The classifiers themselves are opaque: the package only
// speaks their command-line contracts.
package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/carbocation/pfx"

	"github.com/Sebukpor/microbeclass/fastq"
	"github.com/Sebukpor/microbeclass/taxreport"
)

var (
	// ErrEmptyReport indicates the classifier exited cleanly but produced a
	// missing or zero-length report. This is a silent tool failure and must
	// not be read as "zero taxa observed".
	ErrEmptyReport = errors.New("classifier produced an empty report")

	// ErrRefinementFailed indicates Bracken exited cleanly without writing
	// its output file.
	ErrRefinementFailed = errors.New("refinement produced no output")
)

// brackenLevel pins refinement to species rank, matching the species filter
// applied to raw reports.
const brackenLevel = "S"

// Config holds the per-run settings consumed by the classifier.
type Config struct {
	DatabasePath string
	Threads      int
	UseBracken   bool
	ReadLength   int

	// Tool names or paths; zero values mean "find them on PATH".
	KrakenBin  string
	BrackenBin string
}

func (c Config) kraken() string {
	if c.KrakenBin != "" {
		return c.KrakenBin
	}

	return "kraken2"
}

func (c Config) bracken() string {
	if c.BrackenBin != "" {
		return c.BrackenBin
	}

	return "bracken"
}

// Classifier runs the per-sample classification pipeline.
type Classifier struct {
	Runner Runner
	Config Config
}

// Classify takes one sample through classification, optional refinement,
// and normalization, returning its tidy species records. All intermediate
// artifacts live in a per-sample temporary directory that is removed on
// every exit path; nothing accumulates across samples.
func (c *Classifier) Classify(ctx context.Context, sample fastq.ReadFileSet) ([]taxreport.Record, error) {
	tmpDir, err := os.MkdirTemp("", "microbeclass-*")
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer os.RemoveAll(tmpDir)

	report := filepath.Join(tmpDir, sample.ID+".kraken2.report")
	if err := c.runKraken(ctx, sample, report, filepath.Join(tmpDir, sample.ID+".kraken2.out")); err != nil {
		return nil, err
	}

	if info, err := os.Stat(report); err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%w for sample %s", ErrEmptyReport, sample.ID)
	}

	parse := taxreport.ParseKraken

	if c.Config.UseBracken {
		refined := filepath.Join(tmpDir, sample.ID+".bracken")
		if err := c.runBracken(ctx, report, refined); err != nil {
			return nil, err
		}

		report, parse = refined, taxreport.ParseBracken
	}

	f, err := os.Open(report)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return parse(f)
}

func (c *Classifier) runKraken(ctx context.Context, sample fastq.ReadFileSet, report, output string) error {
	args := []string{
		"--db", c.Config.DatabasePath,
		"--threads", strconv.Itoa(c.Config.Threads),
		"--use-names",
		"--report-zero-counts",
		"--memory-mapping",
		"--report", report,
		"--output", output,
	}

	if sample.Paired() {
		args = append(args, "--paired")
	}
	if sample.Gzipped() {
		args = append(args, "--gzip-compressed")
	}

	// Read paths last, in stored order: R1 before R2.
	args = append(args, sample.Paths...)

	_, err := c.Runner.Invoke(ctx, c.Config.kraken(), args)

	return err
}

func (c *Classifier) runBracken(ctx context.Context, report, refined string) error {
	args := []string{
		"-d", c.Config.DatabasePath,
		"-i", report,
		"-o", refined,
		"-r", strconv.Itoa(c.Config.ReadLength),
		"-l", brackenLevel,
	}

	if _, err := c.Runner.Invoke(ctx, c.Config.bracken(), args); err != nil {
		return err
	}

	if _, err := os.Stat(refined); err != nil {
		return ErrRefinementFailed
	}

	return nil
}
