package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"go-amplicon-pipeline/internal/config"
	"go-amplicon-pipeline/internal/fastq"
	"go-amplicon-pipeline/internal/model"
	"go-amplicon-pipeline/internal/tools"
	"go-amplicon-pipeline/pkg/utils"
)

// Orchestrator drives every sample, and every barcode of a sample, through the fixed
// stage order. Samples and barcodes are processed one at a time.
type Orchestrator struct {
	cfg      *config.Model
	params   *ParameterResolver
	barcodes *BarcodeResolver
	tools    tools.Invoker
	paths    *utils.OutputManager
	tracker  *RunTracker

	stdout io.Writer
	stderr io.Writer
}

// NewOrchestrator wires a loaded configuration to a tool invoker. A nil tracker disables
// run tracking; nil writers default to the process streams.
func NewOrchestrator(cfg *config.Model, invoker tools.Invoker, tracker *RunTracker, stdout, stderr io.Writer) *Orchestrator {
	if tracker == nil {
		tracker = NewRunTracker("", nil)
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Orchestrator{
		cfg:      cfg,
		params:   NewParameterResolver(cfg),
		barcodes: NewBarcodeResolver(cfg),
		tools:    invoker,
		paths:    utils.NewOutputManager(cfg.Global.OutDir),
		tracker:  tracker,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// ------------------- Pipeline Runner -------------------

// Run processes every sample in declaration order. Skipped barcodes and tool failures are
// warnings; configuration, resolution and input directory errors abort the run.
func (o *Orchestrator) Run(ctx context.Context) (summary *RunSummary, err error) {
	start := time.Now()
	runID := o.tracker.RunID
	fmt.Fprintf(o.stdout, "🚀 Starting amplicon run %s (%d samples)\n", runID, o.cfg.SampleCount())
	o.tracker.Start(o.cfg.Doc.Path, o.cfg.SampleCount())

	defer func() {
		summary = o.tracker.Summary(time.Since(start))
		if err != nil {
			o.tracker.Fail(err)
			summary.Status = model.RunFailed
		} else {
			o.tracker.Complete()
			summary.Status = model.RunCompleted
		}
		if runID != "" && o.paths.DirExists(o.paths.BaseOutputDir) {
			manifest := o.paths.ManifestPath(runID)
			if werr := WriteManifest(manifest, o.cfg.Global, summary); werr != nil {
				fmt.Fprintf(o.stderr, "⚠️  failed to write run manifest: %v\n", werr)
			} else {
				fmt.Fprintf(o.stdout, "💾 Run manifest written to %s\n", manifest)
			}
		}
	}()

	if err := o.paths.EnsureOutputDirExists(); err != nil {
		return nil, model.NewConfigError(fmt.Sprintf("%s %s: %v", config.FieldOutDir, o.cfg.Global.OutDir, err))
	}

	queue, err := o.plan()
	if err != nil {
		return nil, err
	}

	for i, sp := range queue {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.runSample(ctx, sp, i, len(queue)); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(o.stdout, "🏁 Run %s completed in %v\n", runID, time.Since(start).Round(time.Millisecond))
	return nil, nil
}

// samplePlan is a sample's resolved parameters and barcode set
type samplePlan struct {
	params      model.ResolvedSampleParams
	disclosures []string
	barcodes    []string
}

// plan resolves every sample before any of them is processed and prints the queue.
// The first unresolvable sample aborts the run.
func (o *Orchestrator) plan() ([]samplePlan, error) {
	total := o.cfg.SampleCount()
	queue := make([]samplePlan, 0, total)
	for i := 0; i < total; i++ {
		params, disclosures, err := o.params.Resolve(i)
		if err != nil {
			return nil, err
		}
		ids, err := o.barcodes.BarcodesFor(i)
		if err != nil {
			return nil, err
		}
		queue = append(queue, samplePlan{params: params, disclosures: disclosures, barcodes: ids})
	}

	fmt.Fprintf(o.stdout, "📋 Queue (%d samples):\n", total)
	for i, sp := range queue {
		p := sp.params
		frag := "null"
		if p.FragmentSize != nil {
			frag = utils.FormatNumber(*p.FragmentSize)
		}
		fmt.Fprintf(o.stdout, "   [%d/%d] %s | %s | %s | FRAG=%s CHOPPER_LEN=%d AMP_MIN=%d AMP_MAX=%d\n",
			i+1, total, p.Sample, p.InputDir, strings.Join(sp.barcodes, ","), frag,
			p.FilterLength.Value, p.ClusterMin.Value, p.ClusterMax.Value)
	}
	return queue, nil
}

func (o *Orchestrator) runSample(ctx context.Context, sp samplePlan, i, total int) error {
	params := sp.params
	name := params.Sample
	fmt.Fprintf(o.stdout, "\n📦 Sample %d/%d: %s\n", i+1, total, name)

	for _, d := range sp.disclosures {
		fmt.Fprintf(o.stdout, "ℹ️  %s: %s\n", name, d)
	}
	fmt.Fprintf(o.stdout, "⚙️  %s: quality=%s filter-length=%d cluster-min=%d cluster-max=%d\n",
		name, utils.FormatNumber(params.Quality), params.FilterLength.Value, params.ClusterMin.Value, params.ClusterMax.Value)

	if err := checkInputDir(params); err != nil {
		return err
	}
	o.tracker.Resolved(params, sp.barcodes)

	for _, id := range sp.barcodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome := o.runBarcode(ctx, params, id)
		if !outcome.State.Terminal() {
			return fmt.Errorf("%s barcode%s stopped in state %s", name, id, outcome.State)
		}
		o.tracker.Record(outcome)
	}
	return nil
}

func checkInputDir(p model.ResolvedSampleParams) error {
	if p.InputDir == "" {
		return model.NewInputError(p.Sample, fmt.Errorf("%s is empty or null", config.FieldInputDir))
	}
	info, err := os.Stat(p.InputDir)
	if err != nil {
		return model.NewInputError(p.Sample, fmt.Errorf("%s %s: %w", config.FieldInputDir, p.InputDir, err))
	}
	if !info.IsDir() {
		return model.NewInputError(p.Sample, fmt.Errorf("%s %s is not a directory", config.FieldInputDir, p.InputDir))
	}
	return nil
}

// ------------------- Barcode State Machine -------------------

func (o *Orchestrator) runBarcode(ctx context.Context, p model.ResolvedSampleParams, barcode string) model.JobOutcome {
	start := time.Now()
	dryRun := o.cfg.Global.DryRun
	job := &model.BarcodeJob{Sample: p.Sample, Barcode: barcode}
	outcome := model.JobOutcome{Sample: p.Sample, Barcode: barcode}
	finish := func() model.JobOutcome {
		outcome.State = job.State
		outcome.Merged = job.MergedPath
		outcome.Filtered = job.FilteredPath
		outcome.ClusterDir = job.ClusterDir
		outcome.Warnings = job.Warnings
		outcome.Duration = time.Since(start)
		return outcome
	}

	fmt.Fprintf(o.stdout, "🔍 %s barcode%s\n", p.Sample, barcode)

	// DISCOVER_INPUT
	o.enter(job, model.StateDiscover, p.InputDir)
	fragments, err := fastq.Discover(p.InputDir, barcode)
	if err != nil {
		o.skip(job, model.NewInputError(p.Sample, err))
		return finish()
	}
	if len(fragments) == 0 {
		o.skip(job, model.NewInputError(p.Sample, fmt.Errorf("no fastq files found for barcode%s in %s", barcode, p.InputDir)))
		return finish()
	}
	job.Fragments = fragments
	outcome.Fragments = len(fragments)

	// MERGE
	job.MergedPath = o.paths.MergedReads(p.Sample, barcode)
	o.enter(job, model.StateMerge, job.MergedPath)
	if dryRun {
		fmt.Fprintf(o.stdout, "[dry-run] merge %d fragments into %s\n", len(fragments), job.MergedPath)
	} else {
		size, err := fastq.Merge(fragments, job.MergedPath)
		if err != nil {
			if errors.Is(err, fastq.ErrNoFragments) {
				err = fmt.Errorf("no fastq fragments to merge for barcode%s", barcode)
			}
			job.MergedPath = ""
			o.skip(job, model.NewInputError(p.Sample, err))
			return finish()
		}
		line := fmt.Sprintf("✅ Merged %d fragments into %s (%s", len(fragments), job.MergedPath, bytefmt.ByteSize(uint64(size)))
		if o.cfg.Global.CountReads {
			reads, err := fastq.Count(job.MergedPath)
			if err != nil {
				o.warn(job, fmt.Sprintf("could not count reads of %s: %v", job.MergedPath, err))
			} else {
				outcome.Reads = reads
				line += fmt.Sprintf(", %d reads", reads)
			}
		}
		fmt.Fprintln(o.stdout, line+")")
	}

	// REPORT
	job.StatDir = o.paths.StatReportDir(p.Sample, barcode)
	o.enter(job, model.StateReport, job.StatDir)
	if _, err := o.tools.Report(ctx, tools.ReportRequest{
		Input:   job.MergedPath,
		OutDir:  job.StatDir,
		Threads: o.cfg.Global.Threads,
	}); err != nil {
		o.toolWarning(job, "NanoPlot", err)
	}

	// FILTER
	job.FilteredPath = o.paths.FilteredReads(p.Sample, barcode)
	o.enter(job, model.StateFilter, job.FilteredPath)
	if _, err := o.tools.Filter(ctx, tools.FilterRequest{
		Input:     job.MergedPath,
		Output:    job.FilteredPath,
		Quality:   p.Quality,
		MinLength: p.FilterLength.Value,
		Threads:   o.cfg.Global.Threads,
	}); err != nil {
		o.toolWarning(job, "chopper", err)
	}
	if !dryRun && !o.paths.FileExists(job.FilteredPath) {
		o.warn(job, fmt.Sprintf("filtered reads not found at %s", job.FilteredPath))
		job.FilteredPath = ""
	}

	// CLUSTER
	// an unset filtered path is still handed to the clustering tool
	job.ClusterDir = o.paths.ClusterDir(p.Sample, barcode)
	o.enter(job, model.StateCluster, job.ClusterDir)
	if _, err := o.tools.Cluster(ctx, tools.ClusterRequest{
		Input:    job.FilteredPath,
		OutDir:   job.ClusterDir,
		Min:      p.ClusterMin.Value,
		Max:      p.ClusterMax.Value,
		Threads:  o.cfg.Global.Threads,
		AllReads: o.cfg.Global.AllReads,
	}); err != nil {
		o.toolWarning(job, "amplicon_sorter", err)
	}
	if !dryRun && !o.paths.DirExists(job.ClusterDir) {
		o.warn(job, fmt.Sprintf("cluster output not found at %s", job.ClusterDir))
	}

	o.enter(job, model.StateDone, "")
	fmt.Fprintf(o.stdout, "✅ %s barcode%s done in %v\n", p.Sample, barcode, time.Since(start).Round(time.Millisecond))
	return finish()
}

func (o *Orchestrator) enter(job *model.BarcodeJob, state model.JobState, detail string) {
	job.State = state
	o.tracker.Enter(job, detail)
}

func (o *Orchestrator) skip(job *model.BarcodeJob, err error) {
	fmt.Fprintf(o.stderr, "⚠️  WARNING: skipping %s barcode%s: %v\n", job.Sample, job.Barcode, err)
	job.Warnings = append(job.Warnings, err.Error())
	job.State = model.StateSkipped
	o.tracker.Enter(job, err.Error())
	o.tracker.Error(err)
}

func (o *Orchestrator) toolWarning(job *model.BarcodeJob, tool string, err error) {
	terr := model.NewToolError(job.Sample, tool, err)
	o.warn(job, terr.Error())
	o.tracker.Error(terr)
}

func (o *Orchestrator) warn(job *model.BarcodeJob, msg string) {
	fmt.Fprintf(o.stderr, "⚠️  WARNING: %s barcode%s: %s\n", job.Sample, job.Barcode, msg)
	job.Warnings = append(job.Warnings, msg)
}
