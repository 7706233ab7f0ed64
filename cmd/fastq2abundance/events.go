package main

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"

	"github.com/Sebukpor/microbeclass/classify"
)

// logSink adapts the pipeline's structured events onto logrus. The core
// never sees the logger; it only emits events.
type logSink struct {
	log *logrus.Logger
}

func (s *logSink) SampleStarted(sampleID string) {
	s.log.WithField("sample", sampleID).Info("classifying")
}

func (s *logSink) SampleSucceeded(sampleID string, taxa int) {
	s.log.WithFields(logrus.Fields{"sample": sampleID, "taxa": taxa}).Info("classified")
}

func (s *logSink) SampleFailed(sampleID string, err error) {
	s.log.WithField("sample", sampleID).Errorf("failed: %v", err)
}

func (s *logSink) RunCompleted(succeeded, failed int) {
	s.log.WithFields(logrus.Fields{"succeeded": succeeded, "failed": failed}).Info("run complete")
}

// writeSummary emits the machine-readable per-sample outcome table.
func writeSummary(summary *classify.Summary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	outcomes := summary.Outcomes

	return gocsv.MarshalFile(&outcomes, f)
}
