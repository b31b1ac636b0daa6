// Package tools is the boundary to the external programs of the pipeline: the read-stat
// reporter (NanoPlot), the quality/length filter (chopper) and the amplicon clustering
// tool (amplicon_sorter). Each call blocks until the program exits.
package tools

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"

	"go-amplicon-pipeline/internal/model"
	"go-amplicon-pipeline/pkg/utils"
)

// ReportRequest runs the stat reporter on the merged reads
type ReportRequest struct {
	Input   string
	OutDir  string
	Threads int
}

// FilterRequest runs the quality/length filter, writing gzip-compressed reads to Output
type FilterRequest struct {
	Input     string
	Output    string
	Quality   float64
	MinLength int
	Threads   int
}

// ClusterRequest runs the amplicon clustering tool
type ClusterRequest struct {
	Input    string
	OutDir   string
	Min      int
	Max      int
	Threads  int
	AllReads bool
}

// Invoker is the contract the orchestrator drives
type Invoker interface {
	Report(ctx context.Context, req ReportRequest) (*Result, error)
	Filter(ctx context.Context, req FilterRequest) (*Result, error)
	Cluster(ctx context.Context, req ClusterRequest) (*Result, error)
}

// Runner invokes the real programs
type Runner struct {
	cfg       model.ToolConfig
	sorterEnv Environment
	dryRun    bool
	console   io.Writer
	lookPath  func(string) (string, error)
}

// NewRunner builds a Runner from the tool configuration. When a sorter environment is
// named, the clustering call runs inside it through conda.
func NewRunner(cfg model.ToolConfig, dryRun bool, console io.Writer) *Runner {
	var env Environment = Host{}
	if cfg.SorterEnv != "" {
		env = CondaEnv{Conda: cfg.Conda, Env: cfg.SorterEnv}
	}
	if console == nil {
		console = os.Stderr
	}
	return &Runner{cfg: cfg, sorterEnv: env, dryRun: dryRun, console: console, lookPath: exec.LookPath}
}

// Preflight checks that every required executable resolves before any sample is touched
func (r *Runner) Preflight() error {
	required := []string{r.cfg.NanoPlot, r.cfg.Chopper}
	if launcher := r.sorterEnv.Launcher(); launcher != "" {
		required = append(required, launcher)
	} else {
		required = append(required, r.cfg.AmpliconSorter)
	}

	var missing []string
	for _, program := range required {
		if _, err := r.lookPath(program); err != nil {
			missing = append(missing, program)
		}
	}
	if len(missing) > 0 {
		return model.NewToolError("", "preflight", fmt.Errorf("required tools not found on PATH: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// ReportArgs is the stat reporter command line
func ReportArgs(req ReportRequest) []string {
	return []string{"-t", strconv.Itoa(req.Threads), "--fastq", req.Input, "-o", req.OutDir}
}

// FilterArgs is the filter command line; reads go to stdout
func FilterArgs(req FilterRequest) []string {
	return []string{
		"-q", utils.FormatNumber(req.Quality),
		"-l", strconv.Itoa(req.MinLength),
		"-t", strconv.Itoa(req.Threads),
		"-i", req.Input,
	}
}

// ClusterArgs is the clustering command line
func ClusterArgs(req ClusterRequest) []string {
	args := []string{
		"-i", req.Input,
		"-o", req.OutDir,
		"-min", strconv.Itoa(req.Min),
		"-max", strconv.Itoa(req.Max),
		"-np", strconv.Itoa(req.Threads),
	}
	if req.AllReads {
		args = append(args, "-ar")
	}
	return args
}

// Report runs the stat reporter
func (r *Runner) Report(ctx context.Context, req ReportRequest) (*Result, error) {
	return r.run(ctx, Host{}, r.cfg.NanoPlot, ReportArgs(req))
}

// Filter runs the filter and streams its output through a gzip writer into req.Output.
// A failed run leaves no output file behind.
func (r *Runner) Filter(ctx context.Context, req FilterRequest) (*Result, error) {
	args := FilterArgs(req)
	if r.dryRun {
		return r.run(ctx, Host{}, r.cfg.Chopper, append(args, ">", req.Output))
	}

	out, err := xopen.Wopen(req.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create filtered output %s: %w", req.Output, err)
	}
	result, runErr := r.run(ctx, Host{}, r.cfg.Chopper, args, WithStdout(out))
	closeErr := out.Close()
	if runErr == nil && closeErr != nil {
		runErr = fmt.Errorf("failed to finish filtered output %s: %w", req.Output, closeErr)
	}
	if runErr != nil {
		os.Remove(req.Output)
	}
	return result, runErr
}

// Cluster runs the clustering tool inside its environment
func (r *Runner) Cluster(ctx context.Context, req ClusterRequest) (*Result, error) {
	// amplicon_sorter is a python script; keep its progress output line buffered
	return r.run(ctx, r.sorterEnv, r.cfg.AmpliconSorter, ClusterArgs(req), WithEnvVar("PYTHONUNBUFFERED", "1"))
}

func (r *Runner) run(ctx context.Context, env Environment, program string, args []string, opts ...Option) (*Result, error) {
	name, wrapped := env.Wrap(program, args)
	if r.dryRun {
		log.Printf("[dry-run] %s %s", name, strings.Join(wrapped, " "))
		return &Result{Program: name, Args: wrapped}, nil
	}
	log.Printf("▶️  %s %s", name, strings.Join(wrapped, " "))
	opts = append([]Option{WithConsole(r.console)}, opts...)
	return NewCommand(name, wrapped...).Execute(ctx, opts...)
}
