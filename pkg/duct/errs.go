package duct

import "errors"

var (
	// ErrBadSampleInterval means sample_interval was <= 0 (§6, §7 kind 1).
	ErrBadSampleInterval = errors.New("duct: sample_interval must be > 0")

	// ErrReportLessThanSample means report_interval < sample_interval.
	ErrReportLessThanSample = errors.New("duct: report_interval must be >= sample_interval")

	// ErrNoCommand means no command was given to execute.
	ErrNoCommand = errors.New("duct: no command given")

	// ErrCommandNotFound means the child binary could not be located or
	// executed at all (§6, §7 kind 2): Start never succeeded, so there is
	// no exit status to normalize. Run returns this error (with no
	// summary), and cmd/duct exits with CommandNotFoundExitCode.
	ErrCommandNotFound = errors.New("command not found")
)

// CommandNotFoundExitCode is the wrapper's exit code when the child command
// cannot be found (§7 kind 2, §4.I step 4): cmd/duct exits with it when Run
// returns ErrCommandNotFound.
const CommandNotFoundExitCode = 127

// SignalExitBase is added to a killing signal's number to produce the
// wrapper's reported exit code (§3, §7, P7): exit code = 128 + |signal|.
const SignalExitBase = 128
