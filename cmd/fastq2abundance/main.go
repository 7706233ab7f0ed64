// fastq2abundance discovers FASTQ samples under a directory, classifies each
// with Kraken2 (optionally refined by Bracken), and writes one wide
// species-by-sample abundance table plus a per-sample outcome summary. The
// table is written exactly once, after every sample has been attempted, so
// its column set is always the full taxon union across the cohort.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/sirupsen/logrus"

	"github.com/Sebukpor/microbeclass/abundance"
	"github.com/Sebukpor/microbeclass/classify"
	"github.com/Sebukpor/microbeclass/fastq"
)

const (
	tableFileName   = "microbes_abundances.csv"
	summaryFileName = "classification_summary.csv"
	logFileName     = "classification_log.txt"

	// A Kraken2 database directory without its hash file is unusable; catch
	// that before spending hours classifying against it.
	krakenDBIndexFile = "hash.k2d"
)

func main() {
	var inputDir, outputDir, dbPath string
	var threads, readLength, concurrency int
	var useBracken, debug bool

	flag.StringVar(&inputDir, "input_dir", "", "Directory containing FASTQ files; searched recursively for .fastq, .fq, and their .gz forms.")
	flag.StringVar(&outputDir, "output_dir", "", "Directory for the abundance table, summary, and log.")
	flag.StringVar(&dbPath, "db", "", "Path to the Kraken2 database directory.")
	flag.IntVar(&threads, "threads", 4, "Threads passed to Kraken2 per sample.")
	flag.BoolVar(&useBracken, "use_bracken", false, "Refine species counts with Bracken after classification.")
	flag.IntVar(&readLength, "read_length", 150, "Read length passed to Bracken (only meaningful with -use_bracken).")
	flag.IntVar(&concurrency, "concurrency", 1, "Number of samples to classify simultaneously.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging and a terminal histogram of per-sample read totals.")
	flag.Parse()

	if inputDir == "" || outputDir == "" || dbPath == "" || threads < 1 || readLength < 1 {
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logrus.New()

	if err := validateDir(inputDir); err != nil {
		log.Fatalln(err)
	}
	if err := validateDir(dbPath); err != nil {
		log.Fatalln(err)
	}
	if _, err := os.Stat(filepath.Join(dbPath, krakenDBIndexFile)); err != nil {
		log.Fatalf("Kraken2 database appears invalid (missing %s): %v", krakenDBIndexFile, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalln(err)
	}

	logFile, err := os.Create(filepath.Join(outputDir, logFileName))
	if err != nil {
		log.Fatalln(err)
	}
	defer logFile.Close()

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	// Let an interrupt kill in-flight tool subprocesses while still
	// reporting the outcomes computed so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples, err := fastq.DiscoverSamples(inputDir)
	if err != nil {
		log.Fatalln(err)
	}

	log.Infof("Found %d samples to process", len(samples))

	pipeline := &classify.Pipeline{
		Classifier: &classify.Classifier{
			Runner: classify.ExecRunner{},
			Config: classify.Config{
				DatabasePath: dbPath,
				Threads:      threads,
				UseBracken:   useBracken,
				ReadLength:   readLength,
			},
		},
		Ledger:      abundance.NewLedger(),
		Events:      &logSink{log: log},
		Concurrency: concurrency,
	}

	summary, table := pipeline.Run(ctx, samples)

	tablePath := filepath.Join(outputDir, tableFileName)
	if err := writeTable(table, tablePath); err != nil {
		log.Fatalln(err)
	}

	if err := writeSummary(summary, filepath.Join(outputDir, summaryFileName)); err != nil {
		log.Fatalln(err)
	}

	if debug && len(table.Rows) > 0 {
		printReadHistogram(log, table)
	}

	if ctx.Err() != nil {
		log.Warnf("Run interrupted after %d of %d samples were attempted", summary.Succeeded+summary.Failed, summary.Discovered)
	}

	log.Infof("Completed. %d/%d samples succeeded. Output: %s", summary.Succeeded, summary.Discovered, tablePath)
}

func validateDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: path, Err: syscall.ENOTDIR}
	}

	return nil
}

func writeTable(table *abundance.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// printReadHistogram sketches the spread of per-sample classified read
// totals. The bucket count is arbitrary.
func printReadHistogram(log *logrus.Logger, table *abundance.Table) {
	totals := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		sum := 0
		for _, n := range row.Counts {
			sum += n
		}
		totals = append(totals, float64(sum))
	}

	hist := histogram.Hist(10, totals)
	if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
		log.Debugln(err)
	}
}
