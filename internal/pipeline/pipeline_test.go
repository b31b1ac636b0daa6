package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-amplicon-pipeline/internal/config"
	"go-amplicon-pipeline/internal/model"
	"go-amplicon-pipeline/internal/store"
	"go-amplicon-pipeline/internal/tools"
)

// fakeInvoker stands in for the external programs and produces their outputs
type fakeInvoker struct {
	calls    []string
	reports  []tools.ReportRequest
	filters  []tools.FilterRequest
	clusters []tools.ClusterRequest

	filterWritesNothing bool
	reportErr           error
}

func (f *fakeInvoker) Report(ctx context.Context, req tools.ReportRequest) (*tools.Result, error) {
	f.calls = append(f.calls, "report")
	f.reports = append(f.reports, req)
	if f.reportErr != nil {
		return &tools.Result{ExitCode: 1}, f.reportErr
	}
	return &tools.Result{}, os.MkdirAll(req.OutDir, 0755)
}

func (f *fakeInvoker) Filter(ctx context.Context, req tools.FilterRequest) (*tools.Result, error) {
	f.calls = append(f.calls, "filter")
	f.filters = append(f.filters, req)
	if f.filterWritesNothing {
		return &tools.Result{}, nil
	}
	data, err := os.ReadFile(req.Input)
	if err != nil {
		return nil, err
	}
	return &tools.Result{}, os.WriteFile(req.Output, data, 0644)
}

func (f *fakeInvoker) Cluster(ctx context.Context, req tools.ClusterRequest) (*tools.Result, error) {
	f.calls = append(f.calls, "cluster")
	f.clusters = append(f.clusters, req)
	return &tools.Result{}, os.MkdirAll(req.OutDir, 0755)
}

func writeFastqGz(t *testing.T, path string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for _, name := range names {
		fmt.Fprintf(zw, "@%s\nACGTACGT\n+\nIIIIIIII\n", name)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

type fixture struct {
	root   string
	outDir string
	in1    string
	in2    string
}

// newFixture lays out two sequencer runs: barcode01 has reads for the first sample only
func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	fx := fixture{
		root:   root,
		outDir: filepath.Join(root, "out"),
		in1:    filepath.Join(root, "run1"),
		in2:    filepath.Join(root, "run2"),
	}
	writeFastqGz(t, filepath.Join(fx.in1, "fastq_pass", "barcode01", "a_0.fastq.gz"), "r1", "r2")
	writeFastqGz(t, filepath.Join(fx.in1, "fastq_pass", "barcode01", "a_1.fastq.gz"), "r3")
	writeFastqGz(t, filepath.Join(fx.in1, "fastq_fail", "barcode01", "bad.fastq.gz"), "bad")
	writeFastqGz(t, filepath.Join(fx.in2, "fastq_pass", "barcode02", "b_0.fastq.gz"), "x1")
	return fx
}

func (fx fixture) config(t *testing.T, extra string) *config.Model {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`{
		"SAMPLE": ["s1", "s2"],
		"INPUTDIR": [%q, %q],
		"barcodes": ["1"],
		"OUTDIR": %q,
		"CHOPPER_QUAL": 10,
		"THREADS": 2%s
	}`, fx.in1, fx.in2, fx.outDir, extra)))
	require.NoError(t, err)
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": [1000, 300]`)

	invoker := &fakeInvoker{}
	tracker := NewRunTracker("run-1", nil)
	var stdout, stderr bytes.Buffer

	summary, err := NewOrchestrator(cfg, invoker, tracker, &stdout, &stderr).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, model.RunCompleted, summary.Status)

	// sample 1 runs every stage in order
	assert.Equal(t, []string{"report", "filter", "cluster"}, invoker.calls)
	merged := filepath.Join(fx.outDir, "s1_barcode1.fastq.gz")
	assert.FileExists(t, merged)
	assert.Equal(t, merged, invoker.reports[0].Input)
	assert.Equal(t, filepath.Join(fx.outDir, "s1_barcode1_Nanoplot"), invoker.reports[0].OutDir)

	require.Len(t, invoker.filters, 1)
	assert.Equal(t, 500, invoker.filters[0].MinLength)
	assert.Equal(t, 10.0, invoker.filters[0].Quality)
	assert.Equal(t, 2, invoker.filters[0].Threads)
	assert.Equal(t, filepath.Join(fx.outDir, "s1_BC1_filtered.fastq.gz"), invoker.filters[0].Output)

	require.Len(t, invoker.clusters, 1)
	assert.Equal(t, 750, invoker.clusters[0].Min)
	assert.Equal(t, 1250, invoker.clusters[0].Max)
	assert.True(t, invoker.clusters[0].AllReads)
	assert.Equal(t, invoker.filters[0].Output, invoker.clusters[0].Input)
	assert.Equal(t, filepath.Join(fx.outDir, "s1_BC1_AMPSORT"), invoker.clusters[0].OutDir)

	state, ok := tracker.State("s1", "1")
	require.True(t, ok)
	assert.Equal(t, model.StateDone, state)
	state, ok = tracker.State("s2", "1")
	require.True(t, ok)
	assert.Equal(t, model.StateSkipped, state)
	assert.Len(t, tracker.Outcomes(), 2)

	assert.Contains(t, stderr.String(), "skipping s2 barcode1")
	assert.Contains(t, stdout.String(), "📦 Sample 1/2: s1")
	assert.Contains(t, stdout.String(), "📦 Sample 2/2: s2")
	assert.Contains(t, stdout.String(), "CHOPPER_LEN derived from FRAGMENT_SIZE=1000 at 50%: 500")

	require.Len(t, summary.Samples, 2)
	assert.Equal(t, 1, summary.Samples[0].Done)
	assert.Equal(t, 0, summary.Samples[0].Skipped)
	assert.Equal(t, 0, summary.Samples[1].Done)
	assert.Equal(t, 1, summary.Samples[1].Skipped)
	assert.Equal(t, 2, summary.Samples[0].Jobs[0].Fragments)
	assert.Equal(t, int64(3), summary.Samples[0].Jobs[0].Reads)
	assert.Equal(t, 225, summary.Samples[1].Params.ClusterMin.Value)

	manifest, err := ReadManifest(filepath.Join(fx.outDir, "nbamplicon_run_run-1.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, manifest.Status)
	require.Len(t, manifest.Samples, 2)
	assert.Equal(t, model.StateSkipped, manifest.Samples[1].Jobs[0].State)
}

func TestRun_MergedFileIsFragmentConcatenation(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": 1000`)

	_, err := NewOrchestrator(cfg, &fakeInvoker{}, nil, &bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(fx.in1, "fastq_pass", "barcode01", "a_0.fastq.gz"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(fx.in1, "fastq_pass", "barcode01", "a_1.fastq.gz"))
	require.NoError(t, err)
	merged, err := os.ReadFile(filepath.Join(fx.outDir, "s1_barcode1.fastq.gz"))
	require.NoError(t, err)
	assert.Equal(t, append(a, b...), merged)
}

func TestRun_MissingFilterOutputStillClusters(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": 1000`)
	invoker := &fakeInvoker{filterWritesNothing: true}
	var stderr bytes.Buffer

	summary, err := NewOrchestrator(cfg, invoker, nil, &bytes.Buffer{}, &stderr).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, invoker.clusters, 1)
	assert.Empty(t, invoker.clusters[0].Input)
	assert.Contains(t, stderr.String(), "filtered reads not found")

	job := summary.Samples[0].Jobs[0]
	assert.Equal(t, model.StateDone, job.State)
	assert.Empty(t, job.Filtered)
	assert.NotEmpty(t, job.Warnings)
}

func TestRun_ToolFailureIsAWarning(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": 1000`)
	invoker := &fakeInvoker{reportErr: errors.New("exit status 1")}
	var stderr bytes.Buffer

	summary, err := NewOrchestrator(cfg, invoker, nil, &bytes.Buffer{}, &stderr).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"report", "filter", "cluster"}, invoker.calls)
	assert.Contains(t, stderr.String(), "TOOL_ERROR")
	assert.Equal(t, model.StateDone, summary.Samples[0].Jobs[0].State)
	assert.Equal(t, 2, summary.Errors, "skip of s2 plus the report failure")
}

func TestRun_ResolutionErrorAborts(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": [1000, null]`)
	invoker := &fakeInvoker{}

	summary, err := NewOrchestrator(cfg, invoker, nil, &bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ResolutionError))
	assert.Equal(t, model.RunFailed, summary.Status)

	// the second sample fails to resolve before the first one is touched
	assert.Empty(t, invoker.calls)
	assert.NoFileExists(t, filepath.Join(fx.outDir, "s1_barcode1.fastq.gz"))
}

func TestRun_EmptyNestedBarcodesAbortsBeforeTools(t *testing.T) {
	fx := newFixture(t)
	cfg, err := config.Parse([]byte(fmt.Sprintf(`{
		"SAMPLE": ["s1", "s2"],
		"INPUTDIR": [%q, %q],
		"barcodes": [["1"], []],
		"OUTDIR": %q,
		"CHOPPER_QUAL": 10,
		"FRAGMENT_SIZE": 1000
	}`, fx.in1, fx.in2, fx.outDir)))
	require.NoError(t, err)
	invoker := &fakeInvoker{}
	var stdout bytes.Buffer

	summary, err := NewOrchestrator(cfg, invoker, nil, &stdout, &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ConfigError))
	assert.Equal(t, model.RunFailed, summary.Status)

	var pe *model.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "s2", pe.Sample)
	assert.Empty(t, invoker.calls)
	assert.NotContains(t, stdout.String(), "📦 Sample 1/2")
}

func TestRun_PrintsQueue(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": [1000, null], "CHOPPER_LEN": [null, 200], "AMP_MIN": [null, 300], "AMP_MAX": [null, 500]`)
	var stdout bytes.Buffer

	_, err := NewOrchestrator(cfg, &fakeInvoker{}, nil, &stdout, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, fmt.Sprintf("[1/2] s1 | %s | 1 | FRAG=1000 CHOPPER_LEN=500 AMP_MIN=750 AMP_MAX=1250", fx.in1))
	assert.Contains(t, out, fmt.Sprintf("[2/2] s2 | %s | 1 | FRAG=null CHOPPER_LEN=200 AMP_MIN=300 AMP_MAX=500", fx.in2))
	assert.Less(t, strings.Index(out, "[2/2] s2"), strings.Index(out, "📦 Sample 1/2"))
}

func TestRun_MissingInputDirAborts(t *testing.T) {
	fx := newFixture(t)
	fx.in2 = filepath.Join(fx.root, "does-not-exist")
	cfg := fx.config(t, `, "FRAGMENT_SIZE": 1000`)

	_, err := NewOrchestrator(cfg, &fakeInvoker{}, nil, &bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.InputError))

	var pe *model.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "s2", pe.Sample)
}

func TestRun_NullInputDirAborts(t *testing.T) {
	fx := newFixture(t)
	cfg, err := config.Parse([]byte(fmt.Sprintf(`{
		"SAMPLE": "s1",
		"INPUTDIR": null,
		"barcodes": ["1"],
		"OUTDIR": %q,
		"CHOPPER_QUAL": 10,
		"FRAGMENT_SIZE": 1000
	}`, fx.outDir)))
	require.NoError(t, err)

	_, err = NewOrchestrator(cfg, &fakeInvoker{}, nil, &bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.InputError))
	assert.Contains(t, err.Error(), "INPUTDIR is empty or null")
}

func TestRun_PaddedAndNestedBarcodes(t *testing.T) {
	fx := newFixture(t)
	cfg, err := config.Parse([]byte(fmt.Sprintf(`{
		"SAMPLE": ["s1", "s2"],
		"INPUTDIR": [%q, %q],
		"barcodes": [["01", "5"], [2]],
		"OUTDIR": %q,
		"CHOPPER_QUAL": 10,
		"FRAGMENT_SIZE": 1000
	}`, fx.in1, fx.in2, fx.outDir)))
	require.NoError(t, err)

	summary, err := NewOrchestrator(cfg, &fakeInvoker{}, nil, &bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Samples[0].Done)
	assert.Equal(t, 1, summary.Samples[0].Skipped)
	assert.Equal(t, 1, summary.Samples[1].Done)
	assert.FileExists(t, filepath.Join(fx.outDir, "s1_barcode01.fastq.gz"))
	assert.FileExists(t, filepath.Join(fx.outDir, "s2_barcode2.fastq.gz"))
}

func TestRun_DryRunWritesNoReads(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": 1000, "DRY_RUN": true`)
	invoker := &fakeInvoker{filterWritesNothing: true}
	var stdout, stderr bytes.Buffer

	summary, err := NewOrchestrator(cfg, invoker, NewRunTracker("dry", nil), &stdout, &stderr).Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(fx.outDir, "s1_barcode1.fastq.gz"))
	assert.Contains(t, stdout.String(), "[dry-run] merge 2 fragments")
	assert.NotContains(t, stderr.String(), "filtered reads not found")
	assert.Equal(t, filepath.Join(fx.outDir, "s1_BC1_filtered.fastq.gz"), invoker.clusters[0].Input)
	assert.Equal(t, 1, summary.Samples[0].Done)
	assert.FileExists(t, filepath.Join(fx.outDir, "nbamplicon_run_dry.yaml"))
}

func TestRun_RecordsTransitions(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t, `, "FRAGMENT_SIZE": 1000, "COUNT_READS": false`)

	st, err := store.Open(filepath.Join(fx.root, "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	tracker := NewRunTracker("run-db", st)
	_, err = NewOrchestrator(cfg, &fakeInvoker{}, tracker, &bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	run, err := st.GetRun("run-db")
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Samples)

	events, err := st.ListJobEvents("run-db")
	require.NoError(t, err)
	var states []model.JobState
	for _, ev := range events {
		states = append(states, ev.State)
	}
	assert.Equal(t, []model.JobState{
		model.StateDiscover, model.StateMerge, model.StateReport, model.StateFilter, model.StateCluster, model.StateDone,
		model.StateDiscover, model.StateSkipped,
	}, states)

	msgs, err := st.ListRunErrors("run-db")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "INPUT_ERROR [s2]")
}
