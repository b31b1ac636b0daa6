package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-amplicon-pipeline/internal/config"
	"go-amplicon-pipeline/internal/pipeline"
	"go-amplicon-pipeline/internal/store"
	"go-amplicon-pipeline/internal/tools"
	"go-amplicon-pipeline/pkg/utils"
)

// DefaultConfigName is looked up next to the executable when no path is given
const DefaultConfigName = "NBamplicon_config.json"

// trackingDisabled as TRACKING_DB turns the run ledger off
const trackingDisabled = "-"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nbamplicon [config]",
		Short: "Batch amplicon processing of nanopore reads",
		Long: `Merge, report, filter and cluster nanopore amplicon reads for every sample and
barcode declared in a JSON configuration. Without an argument the configuration is read
from ` + DefaultConfigName + ` next to the executable.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), path)
		},
	}
}

func run(ctx context.Context, configPath string) error {
	if configPath == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Printf("📄 Loaded %s: %s\n", configPath, cfg)
	for _, field := range cfg.Doc.Unknown() {
		fmt.Fprintf(os.Stderr, "⚠️  ignoring unknown config field %q\n", field)
	}

	runner := tools.NewRunner(cfg.Global.Tools, cfg.Global.DryRun, os.Stderr)
	if !cfg.Global.DryRun {
		if err := runner.Preflight(); err != nil {
			return err
		}
	}

	runID := uuid.New().String()
	paths := utils.NewOutputManager(cfg.Global.OutDir)
	if err := paths.EnsureOutputDirExists(); err != nil {
		return err
	}

	// a dry run leaves nothing behind but its manifest
	var recorder pipeline.JobRecorder
	if dbPath := trackingPath(cfg.Global.TrackingDB, paths); dbPath != "" && !cfg.Global.DryRun {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		recorder = st
	}

	tracker := pipeline.NewRunTracker(runID, recorder)
	summary, err := pipeline.NewOrchestrator(cfg, runner, tracker, os.Stdout, os.Stderr).Run(ctx)
	if summary != nil {
		summary.Print(os.Stdout)
	}
	return err
}

func defaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), DefaultConfigName), nil
}

func trackingPath(setting string, paths *utils.OutputManager) string {
	switch setting {
	case trackingDisabled:
		return ""
	case "":
		return paths.TrackingDBPath()
	default:
		return setting
	}
}
