package pipeline

import (
	"log"
	"time"

	"go-amplicon-pipeline/internal/model"
	"go-amplicon-pipeline/internal/store"
)

// JobRecorder is the part of the tracking store the run tracker writes to
type JobRecorder interface {
	SaveRun(runID, configPath string, samples int) error
	UpdateRunStatus(runID, status string) error
	SaveJobEvent(runID, sample, barcode string, state model.JobState, detail string) error
	SaveRunError(runID string, err error) error
}

var _ JobRecorder = (*store.Store)(nil)

// RunTracker collects the outcome of every barcode job and mirrors each state transition
// into the tracking store. Store failures are logged and never interrupt the run.
type RunTracker struct {
	RunID string

	recorder  JobRecorder
	started   time.Time
	samples   []sampleEntry
	outcomes  []model.JobOutcome
	errCount  int
	lastState map[string]model.JobState
}

type sampleEntry struct {
	params   model.ResolvedSampleParams
	barcodes []string
}

// NewRunTracker creates a tracker. recorder may be nil when tracking is disabled.
func NewRunTracker(runID string, recorder JobRecorder) *RunTracker {
	if s, ok := recorder.(*store.Store); ok && s == nil {
		recorder = nil
	}
	return &RunTracker{
		RunID:     runID,
		recorder:  recorder,
		started:   time.Now(),
		lastState: make(map[string]model.JobState),
	}
}

// Start registers the run
func (t *RunTracker) Start(configPath string, samples int) {
	t.started = time.Now()
	if t.recorder == nil {
		return
	}
	t.check(t.recorder.SaveRun(t.RunID, configPath, samples))
}

// Resolved remembers the parameters and barcode set a sample runs with
func (t *RunTracker) Resolved(params model.ResolvedSampleParams, barcodes []string) {
	t.samples = append(t.samples, sampleEntry{params: params, barcodes: barcodes})
}

// Enter records a job entering its current state
func (t *RunTracker) Enter(job *model.BarcodeJob, detail string) {
	t.lastState[job.Sample+"/"+job.Barcode] = job.State
	if t.recorder == nil {
		return
	}
	t.check(t.recorder.SaveJobEvent(t.RunID, job.Sample, job.Barcode, job.State, detail))
}

// Record stores a job's terminal outcome
func (t *RunTracker) Record(outcome model.JobOutcome) {
	t.outcomes = append(t.outcomes, outcome)
}

// Error records a non-fatal error
func (t *RunTracker) Error(err error) {
	t.errCount++
	if t.recorder == nil {
		return
	}
	t.check(t.recorder.SaveRunError(t.RunID, err))
}

// Complete marks the run as completed
func (t *RunTracker) Complete() {
	if t.recorder == nil {
		return
	}
	t.check(t.recorder.UpdateRunStatus(t.RunID, model.RunCompleted))
}

// Fail marks the run as failed and records the fatal error
func (t *RunTracker) Fail(err error) {
	if t.recorder == nil {
		return
	}
	t.check(t.recorder.SaveRunError(t.RunID, err))
	t.check(t.recorder.UpdateRunStatus(t.RunID, model.RunFailed))
}

// Outcomes returns the recorded job outcomes in processing order
func (t *RunTracker) Outcomes() []model.JobOutcome {
	out := make([]model.JobOutcome, len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

// State returns the last state a job entered
func (t *RunTracker) State(sample, barcode string) (model.JobState, bool) {
	s, ok := t.lastState[sample+"/"+barcode]
	return s, ok
}

func (t *RunTracker) check(err error) {
	if err != nil {
		log.Printf("⚠️  run tracking: %v", err)
	}
}
