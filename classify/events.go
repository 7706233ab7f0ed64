package classify

// EventSink receives the pipeline's progress events. The core only emits
// structured events; formatting and destination belong to the caller.
type EventSink interface {
	SampleStarted(sampleID string)
	SampleSucceeded(sampleID string, taxa int)
	SampleFailed(sampleID string, err error)
	RunCompleted(succeeded, failed int)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) SampleStarted(string) {}

func (NopSink) SampleSucceeded(string, int) {}

func (NopSink) SampleFailed(string, error) {}

func (NopSink) RunCompleted(int, int) {}
