// Package duct implements §4.I, the orchestrator: it wires the path
// planner, output tees, sampler, aggregator, report writer, monitor loop,
// signal bridge, and system-info probe around one child process's
// lifecycle, and produces the final ExecutionSummary.
package duct

import (
	"time"

	"github.com/duct-hpc/duct/pkg/logpath"
)

// SessionMode selects whether the child is spawned in a new process
// session (the default, so its entire descendant tree is observable) or
// the wrapper's current session (§6 session_mode).
type SessionMode int

const (
	SessionNew SessionMode = iota
	SessionCurrent
)

// RecordTypes selects which of the two output records the run produces
// (§6 record_types): the periodic processes-samples usage log, the
// end-of-run system-summary info document, or both.
type RecordTypes struct {
	ProcessSamples bool
	SystemSummary  bool
}

// Config is the configuration surface the core consumes (§6). The CLI/env
// layers are responsible for producing one of these; the core never parses
// flags or .env files itself.
type Config struct {
	Command     string
	CommandArgs []string

	OutputPrefix string

	SampleInterval time.Duration
	ReportInterval time.Duration

	// FailTime: exit-code-nonzero runs shorter than this are trimmed.
	// Negative means trim all failures; zero means trim nothing.
	FailTime time.Duration

	CaptureOutputs logpath.Capture // which streams are captured to files
	Outputs        logpath.Capture // which streams pass through to the terminal

	RecordTypes RecordTypes

	Clobber bool
	Message string

	SessionMode SessionMode

	// WorkingDirectory defaults to the wrapper's own cwd when empty.
	WorkingDirectory string
}

// Validate checks the user/config-error class of §7 kind 1 that is the
// core's own responsibility (path conflicts are checked separately by the
// path planner at Prepare time).
func (c Config) Validate() error {
	if c.SampleInterval <= 0 {
		return ErrBadSampleInterval
	}
	if c.ReportInterval < c.SampleInterval {
		return ErrReportLessThanSample
	}
	if len(c.Command) == 0 {
		return ErrNoCommand
	}
	return nil
}
