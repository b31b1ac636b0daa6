package pipeline

import (
	"fmt"
	"io"
	"time"

	"go-amplicon-pipeline/internal/model"
)

// SampleSummary groups the job outcomes of one sample
type SampleSummary struct {
	Sample   string                     `yaml:"sample"`
	Params   model.ResolvedSampleParams `yaml:"params"`
	Barcodes []string                   `yaml:"barcodes"`
	Done     int                        `yaml:"done"`
	Skipped  int                        `yaml:"skipped"`
	Warnings int                        `yaml:"warnings"`
	Jobs     []model.JobOutcome         `yaml:"jobs"`
}

// RunSummary is the end-of-run report
type RunSummary struct {
	RunID   string          `yaml:"run_id"`
	Status  string          `yaml:"status"`
	Started time.Time       `yaml:"started"`
	Elapsed time.Duration   `yaml:"elapsed"`
	Errors  int             `yaml:"errors"`
	Samples []SampleSummary `yaml:"samples"`
}

// Summary groups the recorded outcomes per sample, in sample order
func (t *RunTracker) Summary(elapsed time.Duration) *RunSummary {
	s := &RunSummary{
		RunID:   t.RunID,
		Status:  model.RunRunning,
		Started: t.started,
		Elapsed: elapsed,
		Errors:  t.errCount,
	}

	index := make(map[string]int)
	for _, entry := range t.samples {
		index[entry.params.Sample] = len(s.Samples)
		s.Samples = append(s.Samples, SampleSummary{
			Sample:   entry.params.Sample,
			Params:   entry.params,
			Barcodes: entry.barcodes,
		})
	}
	for _, o := range t.outcomes {
		i, ok := index[o.Sample]
		if !ok {
			index[o.Sample] = len(s.Samples)
			i = len(s.Samples)
			s.Samples = append(s.Samples, SampleSummary{Sample: o.Sample})
		}
		group := &s.Samples[i]
		group.Jobs = append(group.Jobs, o)
		switch o.State {
		case model.StateDone:
			group.Done++
		case model.StateSkipped:
			group.Skipped++
		}
		group.Warnings += len(o.Warnings)
	}
	return s
}

// Totals returns the number of finished and skipped barcodes over all samples
func (s *RunSummary) Totals() (done, skipped int) {
	for _, g := range s.Samples {
		done += g.Done
		skipped += g.Skipped
	}
	return done, skipped
}

// Print writes the per-sample table
func (s *RunSummary) Print(w io.Writer) {
	done, skipped := s.Totals()
	fmt.Fprintf(w, "\n📊 Run Summary (%s): %d samples, %d barcodes done, %d skipped, %d errors in %v\n",
		s.Status, len(s.Samples), done, skipped, s.Errors, s.Elapsed.Round(time.Millisecond))
	for _, g := range s.Samples {
		fmt.Fprintf(w, "   %-20s done=%d skipped=%d warnings=%d\n", g.Sample, g.Done, g.Skipped, g.Warnings)
		for _, j := range g.Jobs {
			if j.State == model.StateSkipped {
				fmt.Fprintf(w, "      barcode%s skipped\n", j.Barcode)
			}
		}
	}
}
