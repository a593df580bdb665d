//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/duct-hpc/duct/pkg/duct"
	"github.com/duct-hpc/duct/pkg/logpath"
	"github.com/duct-hpc/duct/pkg/types"
)

type cliOpts struct {
	outputPrefix   string
	sampleInterval time.Duration
	reportInterval time.Duration
	failTime       time.Duration
	captureOutputs string
	outputs        string
	recordTypes    string
	clobber        bool
	message        string
	sessionMode    string
}

func main() {
	var o cliOpts

	root := &cobra.Command{
		Use:   "duct -- COMMAND [ARGS...]",
		Short: "Run a command under session-scoped resource monitoring",
		Long: `duct runs a command as a child process, samples every process in its
POSIX session on a fixed cadence, and streams peak/average resource usage
to a JSON Lines log alongside a captured stdout/stderr and an end-of-run
system-summary document.

Examples:
  duct --output-prefix ./logs/{datetime}_{pid} -- sleep 5
  duct --capture-outputs all --outputs stdout -- make -j8`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o, args)
		},
	}

	root.Flags().StringVar(&o.outputPrefix, "output-prefix", "./duct_{datetime}_{pid}", "output path prefix, supports {datetime}/{pid}")
	root.Flags().DurationVar(&o.sampleInterval, "sample-interval", time.Second, "time between samples, as a duration (e.g. 1s, 500ms)")
	root.Flags().DurationVar(&o.reportInterval, "report-interval", time.Second, "time between written usage records, as a duration (e.g. 1s, 500ms)")
	root.Flags().DurationVar(&o.failTime, "fail-time", 0, "failing runs shorter than this are trimmed; negative trims all failures")
	root.Flags().StringVar(&o.captureOutputs, "capture-outputs", "all", "streams captured to files: all|stdout|stderr|none")
	root.Flags().StringVar(&o.outputs, "outputs", "all", "streams passed through to the terminal: all|stdout|stderr|none")
	root.Flags().StringVar(&o.recordTypes, "record-types", "all", "records to emit: all|processes|system")
	root.Flags().BoolVar(&o.clobber, "clobber", false, "overwrite pre-existing log files")
	root.Flags().StringVar(&o.message, "message", "", "opaque string recorded in the info document")
	root.Flags().StringVar(&o.sessionMode, "session-mode", "new-session", "new-session (default) or current-session")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o cliOpts, args []string) error {
	capture, err := parseCapture(o.captureOutputs)
	if err != nil {
		return err
	}
	outputs, err := parseCapture(o.outputs)
	if err != nil {
		return err
	}
	recordTypes, err := parseRecordTypes(o.recordTypes)
	if err != nil {
		return err
	}
	sessionMode, err := parseSessionMode(o.sessionMode)
	if err != nil {
		return err
	}

	cfg := duct.Config{
		Command:        args[0],
		CommandArgs:    args[1:],
		OutputPrefix:   o.outputPrefix,
		SampleInterval: o.sampleInterval,
		ReportInterval: o.reportInterval,
		FailTime:       o.failTime,
		CaptureOutputs: capture,
		Outputs:        outputs,
		RecordTypes:    recordTypes,
		Clobber:        o.clobber,
		Message:        o.message,
		SessionMode:    sessionMode,
	}

	// No context-cancellation-on-signal here: pkg/signalbridge owns the
	// SIGINT/SIGTERM escalation ladder, forwarding to the child's process
	// group directly rather than through ctx, so an early SIGKILL from
	// exec's own context watcher never preempts it.
	summary, err := duct.Run(ctx, cfg, slog.Default())
	if err != nil {
		if errors.Is(err, duct.ErrCommandNotFound) {
			fmt.Fprintf(os.Stderr, "%s: command not found\n", cfg.Command)
			os.Exit(duct.CommandNotFoundExitCode)
		}
		return fmt.Errorf("duct: %w", err)
	}

	peak := "n/a"
	if summary.PeakRSS != nil {
		peak = types.Bytes(*summary.PeakRSS).Humanized()
	}
	fmt.Printf("duct: exit=%d wall=%.2fs peak_rss=%s reports=%d\n",
		summary.ExitCode, summary.WallClockTime, peak, summary.NumReports)

	os.Exit(summary.ExitCode)
	return nil
}

func parseCapture(s string) (logpath.Capture, error) {
	switch s {
	case "all":
		return logpath.CaptureAll, nil
	case "stdout":
		return logpath.CaptureStdout, nil
	case "stderr":
		return logpath.CaptureStderr, nil
	case "none":
		return logpath.CaptureNone, nil
	default:
		return 0, fmt.Errorf("duct: invalid stream selector %q (want all|stdout|stderr|none)", s)
	}
}

func parseRecordTypes(s string) (duct.RecordTypes, error) {
	switch s {
	case "all":
		return duct.RecordTypes{ProcessSamples: true, SystemSummary: true}, nil
	case "processes":
		return duct.RecordTypes{ProcessSamples: true}, nil
	case "system":
		return duct.RecordTypes{SystemSummary: true}, nil
	default:
		return duct.RecordTypes{}, fmt.Errorf("duct: invalid record-types %q (want all|processes|system)", s)
	}
}

func parseSessionMode(s string) (duct.SessionMode, error) {
	switch s {
	case "new-session", "":
		return duct.SessionNew, nil
	case "current-session":
		return duct.SessionCurrent, nil
	default:
		return 0, fmt.Errorf("duct: invalid session-mode %q (want new-session|current-session)", s)
	}
}
