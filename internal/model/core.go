package model

import "time"

// JobState is a step of the per-barcode state machine
type JobState string

const (
	StateDiscover JobState = "DISCOVER_INPUT"
	StateMerge    JobState = "MERGE"
	StateReport   JobState = "REPORT"
	StateFilter   JobState = "FILTER"
	StateCluster  JobState = "CLUSTER"
	StateDone     JobState = "DONE"
	StateSkipped  JobState = "SKIPPED"
)

// Terminal reports whether no further transition follows s
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateSkipped
}

// BarcodeJob is one (sample, barcode) unit of work. It lives for one loop iteration.
type BarcodeJob struct {
	Sample  string   `json:"sample"`
	Barcode string   `json:"barcode"`
	State   JobState `json:"state"`

	Fragments []string `json:"fragments,omitempty"`

	MergedPath   string `json:"mergedPath"`
	StatDir      string `json:"statDir"`
	FilteredPath string `json:"filteredPath"` // empty when the filter produced nothing
	ClusterDir   string `json:"clusterDir"`

	Warnings []string `json:"warnings,omitempty"`
}

// JobOutcome is the terminal record of a barcode job kept for the run summary and manifest
type JobOutcome struct {
	Sample     string        `json:"sample" yaml:"sample"`
	Barcode    string        `json:"barcode" yaml:"barcode"`
	State      JobState      `json:"state" yaml:"state"`
	Fragments  int           `json:"fragments" yaml:"fragments"`
	Reads      int64         `json:"reads,omitempty" yaml:"reads,omitempty"`
	Merged     string        `json:"merged,omitempty" yaml:"merged,omitempty"`
	Filtered   string        `json:"filtered,omitempty" yaml:"filtered,omitempty"`
	ClusterDir string        `json:"clusterDir,omitempty" yaml:"cluster_dir,omitempty"`
	Warnings   []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// RunStatus values stored for a batch run
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)
