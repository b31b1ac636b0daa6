package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures. Kinds are strings so they read well in logs
// and in the tracking database.
type ErrorKind string

const (
	// ConfigError: malformed document, missing required field, length mismatch, empty barcode list.
	ConfigError ErrorKind = "CONFIG_ERROR"

	// ResolutionError: a sample threshold could not be resolved.
	ResolutionError ErrorKind = "RESOLUTION_ERROR"

	// InputError: missing input directory or missing fastq fragments.
	InputError ErrorKind = "INPUT_ERROR"

	// ToolError: an external tool failed or produced no output.
	ToolError ErrorKind = "TOOL_ERROR"
)

// PipelineError carries a kind, the sample it concerns and, for configuration
// problems, every problem found in the document.
type PipelineError struct {
	Kind     ErrorKind
	Sample   string
	Field    string
	Problems []string
	Err      error
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Sample != "" {
		fmt.Fprintf(&b, " [%s]", e.Sample)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " %s", e.Field)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "\n  %s", p)
	}
	return b.String()
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewConfigError reports one or more configuration problems
func NewConfigError(problems ...string) *PipelineError {
	if len(problems) == 1 {
		return &PipelineError{Kind: ConfigError, Err: errors.New(problems[0])}
	}
	return &PipelineError{Kind: ConfigError, Err: fmt.Errorf("%d configuration problems", len(problems)), Problems: problems}
}

// NewResolutionError reports an unresolvable threshold for a sample
func NewResolutionError(sample, field, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: ResolutionError, Sample: sample, Field: field, Err: fmt.Errorf(format, args...)}
}

// NewInputError reports a missing input for a sample
func NewInputError(sample string, err error) *PipelineError {
	return &PipelineError{Kind: InputError, Sample: sample, Err: err}
}

// NewToolError reports a failed or silent tool invocation
func NewToolError(sample, tool string, err error) *PipelineError {
	return &PipelineError{Kind: ToolError, Sample: sample, Field: tool, Err: err}
}

// IsKind reports whether err wraps a PipelineError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == kind
}
