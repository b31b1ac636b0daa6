package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"go-amplicon-pipeline/internal/model"
)

// Manifest is the YAML record of a run written next to its outputs
type Manifest struct {
	RunID    string            `yaml:"run_id"`
	Status   string            `yaml:"status"`
	Written  time.Time         `yaml:"written"`
	Elapsed  string            `yaml:"elapsed"`
	DryRun   bool              `yaml:"dry_run"`
	Settings model.GlobalConfig `yaml:"settings"`
	Samples  []SampleSummary   `yaml:"samples"`
}

// WriteManifest writes the manifest of a run to path
func WriteManifest(path string, global model.GlobalConfig, summary *RunSummary) error {
	m := Manifest{
		RunID:    summary.RunID,
		Status:   summary.Status,
		Written:  time.Now().UTC(),
		Elapsed:  summary.Elapsed.Round(time.Millisecond).String(),
		DryRun:   global.DryRun,
		Settings: global,
		Samples:  summary.Samples,
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return &m, nil
}
