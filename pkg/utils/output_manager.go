package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputManager builds the deterministic output paths of a run under one directory.
// Names must stay exactly as they are: downstream tooling relies on them.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// MergedReads is {OUTDIR}/{SAMPLE}_barcode{ID}.fastq.gz
func (om *OutputManager) MergedReads(sample, barcode string) string {
	return filepath.Join(om.BaseOutputDir, fmt.Sprintf("%s_barcode%s.fastq.gz", sample, barcode))
}

// StatReportDir is {OUTDIR}/{SAMPLE}_barcode{ID}_Nanoplot
func (om *OutputManager) StatReportDir(sample, barcode string) string {
	return filepath.Join(om.BaseOutputDir, fmt.Sprintf("%s_barcode%s_Nanoplot", sample, barcode))
}

// FilteredReads is {OUTDIR}/{SAMPLE}_BC{ID}_filtered.fastq.gz
func (om *OutputManager) FilteredReads(sample, barcode string) string {
	return filepath.Join(om.BaseOutputDir, fmt.Sprintf("%s_BC%s_filtered.fastq.gz", sample, barcode))
}

// ClusterDir is {OUTDIR}/{SAMPLE}_BC{ID}_AMPSORT
func (om *OutputManager) ClusterDir(sample, barcode string) string {
	return filepath.Join(om.BaseOutputDir, fmt.Sprintf("%s_BC%s_AMPSORT", sample, barcode))
}

// ManifestPath is where the run manifest for runID is written
func (om *OutputManager) ManifestPath(runID string) string {
	return filepath.Join(om.BaseOutputDir, fmt.Sprintf("nbamplicon_run_%s.yaml", runID))
}

// TrackingDBPath is the default location of the run tracking database
func (om *OutputManager) TrackingDBPath() string {
	return filepath.Join(om.BaseOutputDir, "nbamplicon_runs.db")
}

// FileExists reports whether path exists and is a regular file
func (om *OutputManager) FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory
func (om *OutputManager) DirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	if err := os.MkdirAll(om.BaseOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
