package classify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Sebukpor/microbeclass/abundance"
	"github.com/Sebukpor/microbeclass/fastq"
)

// recordingSink captures pipeline events for assertions.
type recordingSink struct {
	mu        sync.Mutex
	started   []string
	succeeded []string
	failed    []string
	completed bool
}

func (s *recordingSink) SampleStarted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, id)
}

func (s *recordingSink) SampleSucceeded(id string, taxa int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = append(s.succeeded, id)
}

func (s *recordingSink) SampleFailed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
}

func (s *recordingSink) RunCompleted(succeeded, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
}

// sampleIDFromReportPath recovers which sample an invocation belongs to from
// the report path the classifier chose.
func sampleIDFromReportPath(args []string) string {
	return strings.TrimSuffix(filepath.Base(argAfter(args, "--report")), ".kraken2.report")
}

func singleEnd(ids ...string) map[string]fastq.ReadFileSet {
	samples := make(map[string]fastq.ReadFileSet, len(ids))
	for _, id := range ids {
		samples[id] = fastq.ReadFileSet{ID: id, Paths: []string{"/data/" + id + ".fastq"}}
	}

	return samples
}

func newTestPipeline(runner Runner, events EventSink) *Pipeline {
	return &Pipeline{
		Classifier: &Classifier{Runner: runner, Config: Config{DatabasePath: "/db", Threads: 1}},
		Ledger:     abundance.NewLedger(),
		Events:     events,
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	reports := map[string]string{
		"S1": " 50.00	10	10	S	562	Ecoli\n  0.00	0	0	S	1423	Bsubtilis\n",
		"S2": " 40.00	5	5	S	562	Ecoli\n 20.00	3	3	S	1578	Lactobacillus\n",
	}

	runner := &fakeRunner{handle: func(exe string, args []string) (Result, error) {
		writeReport(t, argAfter(args, "--report"), reports[sampleIDFromReportPath(args)])
		return Result{}, nil
	}}

	sink := &recordingSink{}
	p := newTestPipeline(runner, sink)

	summary, table := p.Run(context.Background(), singleEnd("S1", "S2"))

	if summary.Discovered != 2 || summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("summary: %+v", summary)
	}

	wantTaxa := []string{"Bsubtilis", "Ecoli", "Lactobacillus"}
	if fmt.Sprint(table.Taxa) != fmt.Sprint(wantTaxa) {
		t.Fatalf("taxa: got %v, want %v", table.Taxa, wantTaxa)
	}

	for _, tt := range []struct {
		sample, taxon string
		want          int
	}{
		{"S1", "Ecoli", 10},
		{"S1", "Bsubtilis", 0},
		{"S1", "Lactobacillus", 0},
		{"S2", "Ecoli", 5},
		{"S2", "Bsubtilis", 0},
		{"S2", "Lactobacillus", 3},
	} {
		if got := table.Lookup(tt.sample, tt.taxon); got != tt.want {
			t.Fatalf("%s/%s: got %d, want %d", tt.sample, tt.taxon, got, tt.want)
		}
	}

	// Outcomes follow sorted sample order for reproducible summaries.
	if summary.Outcomes[0].SampleID != "S1" || summary.Outcomes[1].SampleID != "S2" {
		t.Fatalf("outcomes out of order: %+v", summary.Outcomes)
	}

	if len(sink.started) != 2 || len(sink.succeeded) != 2 || !sink.completed {
		t.Fatalf("events: %+v", sink)
	}
}

func TestPipelineFailureIsolation(t *testing.T) {
	runner := &fakeRunner{handle: func(exe string, args []string) (Result, error) {
		report := argAfter(args, "--report")
		if sampleIDFromReportPath(args) == "bad" {
			writeReport(t, report, " 10.00	junk	10	S	562	Ecoli\n")
		} else {
			writeReport(t, report, " 10.00	10	10	S	562	Ecoli\n")
		}

		return Result{}, nil
	}}

	sink := &recordingSink{}
	p := newTestPipeline(runner, sink)

	summary, table := p.Run(context.Background(), singleEnd("N1", "N2", "bad"))

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	if len(table.Rows) != 2 {
		t.Fatalf("table should only contain successful samples: %+v", table.Rows)
	}
	if table.Lookup("N1", "Ecoli") != 10 || table.Lookup("N2", "Ecoli") != 10 {
		t.Fatalf("surviving rows corrupted: %+v", table.Rows)
	}

	var badOutcome *SampleOutcome
	for i := range summary.Outcomes {
		if summary.Outcomes[i].SampleID == "bad" {
			badOutcome = &summary.Outcomes[i]
		}
	}
	if badOutcome == nil || badOutcome.Status != StatusFailed {
		t.Fatalf("missing failed outcome: %+v", summary.Outcomes)
	}
	if !strings.Contains(badOutcome.Error, "malformed report") {
		t.Fatalf("outcome should carry the error kind, got %q", badOutcome.Error)
	}

	if len(sink.failed) != 1 || sink.failed[0] != "bad" {
		t.Fatalf("failure events: %+v", sink.failed)
	}
}

func TestPipelineAllSamplesFail(t *testing.T) {
	runner := &fakeRunner{handle: func(exe string, args []string) (Result, error) {
		return Result{ExitCode: 1}, &ToolError{Tool: exe, ExitCode: 1, Stderr: "boom"}
	}}

	p := newTestPipeline(runner, nil)

	summary, table := p.Run(context.Background(), singleEnd("S1", "S2"))

	if summary.Succeeded != 0 || summary.Failed != 2 {
		t.Fatalf("summary: %+v", summary)
	}
	if len(table.Rows) != 0 || len(table.Taxa) != 0 {
		t.Fatalf("table should be empty of rows: %+v", table)
	}
}

func TestPipelineConcurrent(t *testing.T) {
	runner := &fakeRunner{handle: func(exe string, args []string) (Result, error) {
		writeReport(t, argAfter(args, "--report"), " 10.00	7	7	S	562	Ecoli\n")
		return Result{}, nil
	}}

	p := newTestPipeline(runner, nil)
	p.Concurrency = 4

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, fmt.Sprintf("S%02d", i))
	}

	summary, table := p.Run(context.Background(), singleEnd(ids...))

	if summary.Succeeded != 12 || summary.Failed != 0 {
		t.Fatalf("summary: %+v", summary)
	}
	if len(table.Rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(table.Rows))
	}
	for i := 1; i < len(summary.Outcomes); i++ {
		if summary.Outcomes[i-1].SampleID > summary.Outcomes[i].SampleID {
			t.Fatalf("outcomes not in deterministic order: %+v", summary.Outcomes)
		}
	}
}

func TestPipelineCancelled(t *testing.T) {
	runner := &fakeRunner{handle: func(exe string, args []string) (Result, error) {
		writeReport(t, argAfter(args, "--report"), " 10.00	7	7	S	562	Ecoli\n")
		return Result{}, nil
	}}

	p := newTestPipeline(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, table := p.Run(ctx, singleEnd("S1", "S2"))

	if summary.Discovered != 2 {
		t.Fatalf("summary: %+v", summary)
	}
	if summary.Succeeded+summary.Failed != 0 || len(summary.Outcomes) != 0 {
		t.Fatalf("cancelled run should not fabricate outcomes: %+v", summary)
	}
	if len(table.Rows) != 0 {
		t.Fatalf("cancelled run should not emit rows: %+v", table.Rows)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("e", errorDetailLen+100)
	if got := truncate(long); len(got) != errorDetailLen+len("...") {
		t.Fatalf("truncate length %d", len(got))
	}
	if got := truncate("short"); got != "short" {
		t.Fatalf("got %q", got)
	}
}
