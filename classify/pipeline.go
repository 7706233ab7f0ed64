package classify

import (
	"context"
	"sort"
	"sync"

	"github.com/Sebukpor/microbeclass/abundance"
	"github.com/Sebukpor/microbeclass/fastq"
)

// Status is a sample's terminal state. There are no retries: tool failures
// are treated as deterministic. A bounded retry for transient ToolErrors is
// the natural extension point here.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// errorDetailLen bounds the failure detail carried into outcomes and the
// summary CSV.
const errorDetailLen = 256

// SampleOutcome records how one sample's classification ended.
type SampleOutcome struct {
	SampleID string `csv:"sample_id"`
	Status   Status `csv:"status"`
	Error    string `csv:"error"`
}

// Summary aggregates the whole run for reporting.
type Summary struct {
	Discovered int
	Succeeded  int
	Failed     int
	Outcomes   []SampleOutcome
}

// Pipeline drives every discovered sample through the classifier and feeds
// successful results into the ledger. One sample's failure never aborts the
// run; it is recorded and the pipeline moves on.
type Pipeline struct {
	Classifier *Classifier
	Ledger     *abundance.Ledger
	Events     EventSink

	// Concurrency is the number of samples classified at once. Values < 2
	// mean sequential processing. Each sample still blocks on its own tool
	// invocations.
	Concurrency int
}

// Run classifies samples in sorted-identifier order and finalizes the
// ledger exactly once, after every sample has been attempted. On context
// cancellation, in-flight subprocesses are killed, undispatched samples are
// skipped, and outcomes computed so far are still reported.
func (p *Pipeline) Run(ctx context.Context, samples map[string]fastq.ReadFileSet) (*Summary, *abundance.Table) {
	events := p.Events
	if events == nil {
		events = NopSink{}
	}

	ids := make([]string, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	outcomes := make([]SampleOutcome, len(ids))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(i int, sample fastq.ReadFileSet) {
			defer wg.Done()
			defer func() { <-sem }()

			events.SampleStarted(sample.ID)

			records, err := p.Classifier.Classify(ctx, sample)
			if err != nil {
				events.SampleFailed(sample.ID, err)
				outcomes[i] = SampleOutcome{SampleID: sample.ID, Status: StatusFailed, Error: truncate(err.Error())}

				return
			}

			p.Ledger.Add(sample.ID, records)
			events.SampleSucceeded(sample.ID, len(records))
			outcomes[i] = SampleOutcome{SampleID: sample.ID, Status: StatusSucceeded}
		}(i, samples[id])
	}

	wg.Wait()

	summary := &Summary{Discovered: len(ids)}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		default:
			// Never dispatched (cancellation); not counted as attempted.
			continue
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	events.RunCompleted(summary.Succeeded, summary.Failed)

	return summary, p.Ledger.Finalize()
}

func truncate(s string) string {
	if len(s) > errorDetailLen {
		return s[:errorDetailLen] + "..."
	}

	return s
}
