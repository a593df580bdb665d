//go:build linux

package duct

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/duct-hpc/duct/pkg/aggregate"
	"github.com/duct-hpc/duct/pkg/logpath"
	"github.com/duct-hpc/duct/pkg/monitor"
	"github.com/duct-hpc/duct/pkg/report"
	"github.com/duct-hpc/duct/pkg/sampler"
	"github.com/duct-hpc/duct/pkg/signalbridge"
	"github.com/duct-hpc/duct/pkg/sysinfo"
	"github.com/duct-hpc/duct/pkg/tee"

	"golang.org/x/sys/unix"
)

// Run executes cfg.Command under full monitoring (§4.I) and returns the
// ExecutionSummary once the child has exited and every artefact has been
// written (or trimmed). It blocks for the lifetime of the child.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (*ExecutionSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wd := cfg.WorkingDirectory
	if wd == "" {
		if cwd, err := os.Getwd(); err == nil {
			wd = cwd
		}
	}

	paths := logpath.Plan(cfg.OutputPrefix, os.Getpid(), cfg.CaptureOutputs)
	if err := paths.Prepare(cfg.Clobber); err != nil {
		return nil, err
	}

	wantCaptureStdout := cfg.CaptureOutputs.WantsStdout()
	wantCaptureStderr := cfg.CaptureOutputs.WantsStderr()
	wantPassStdout := cfg.Outputs.WantsStdout()
	wantPassStderr := cfg.Outputs.WantsStderr()

	cmdLine := cfg.Command
	if len(cfg.CommandArgs) > 0 {
		cmdLine = cmdLine + " " + strings.Join(cfg.CommandArgs, " ")
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.CommandArgs...)
	cmd.Dir = wd
	if cfg.SessionMode == SessionNew {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	var stdoutFile, stderrFile *os.File
	var stdoutTee, stderrTee *tee.Tee
	var err error

	stdoutFile, cmd.Stdout, stdoutTee, err = buildSink(paths.Stdout, wantCaptureStdout, wantPassStdout, os.Stdout)
	if err != nil {
		return nil, err
	}
	stderrFile, cmd.Stderr, stderrTee, err = buildSink(paths.Stderr, wantCaptureStderr, wantPassStderr, os.Stderr)
	if err != nil {
		closeAll(stdoutFile)
		return nil, err
	}

	start := time.Now()

	if err := cmd.Start(); err != nil {
		closeAll(stdoutFile, stderrFile)
		// Nothing useful was captured; leave no empty artefacts behind
		// (§4.I step 4, §7 kind 2).
		_ = paths.Remove()
		if isCommandNotFound(err) {
			return nil, fmt.Errorf("%s: %w", cfg.Command, ErrCommandNotFound)
		}
		return nil, fmt.Errorf("duct: start command: %w", err)
	}

	childPID := cmd.Process.Pid
	sessionID, err := unix.Getsid(childPID)
	if err != nil {
		sessionID = childPID
	}

	if stdoutTee != nil {
		if err := stdoutTee.Start(); err != nil {
			logger.Warn("duct: stdout tee failed to start", "err", err)
			stdoutTee = nil
		}
	}
	if stderrTee != nil {
		if err := stderrTee.Start(); err != nil {
			logger.Warn("duct: stderr tee failed to start", "err", err)
			stderrTee = nil
		}
	}

	childDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(childDone)
	}()
	isChildExited := func() bool {
		select {
		case <-childDone:
			return true
		default:
			return false
		}
	}

	bridge := signalbridge.New(childPID, logger)
	bridge.Start()
	defer bridge.Stop()

	var usageWriter *report.Writer
	if cfg.RecordTypes.ProcessSamples {
		usageWriter, err = report.Open(paths.Usage)
		if err != nil {
			logger.Warn("duct: open usage log failed", "err", err)
		}
	}

	var loop *monitor.Loop
	agg := aggregate.New()
	if usageWriter != nil {
		loop, err = monitor.New(monitor.Loop{
			Sampler:        sampler.New(),
			Aggregator:     agg,
			Writer:         usageWriter,
			SessionID:      sessionID,
			SampleInterval: cfg.SampleInterval,
			ReportInterval: cfg.ReportInterval,
			IsChildExited:  isChildExited,
			Logger:         logger,
		})
		if err != nil {
			logger.Warn("duct: monitor loop rejected", "err", err)
			loop = nil
		}
	}
	if loop != nil {
		loop.Start(ctx)
	}

	var sysWG sync.WaitGroup
	var sysInfo sysinfo.Info
	var sysEnv map[string]string
	var gpus []sysinfo.GPU
	if cfg.RecordTypes.SystemSummary {
		sysWG.Add(1)
		go func() {
			defer sysWG.Done()
			sysInfo, sysEnv = sysinfo.Collect()
			gpus = sysinfo.CollectGPUs()
		}()
	}

	<-childDone

	if loop != nil {
		loop.Stop()
	}
	if stdoutTee != nil {
		_ = stdoutTee.Stop()
	}
	if stderrTee != nil {
		_ = stderrTee.Stop()
	}
	sysWG.Wait()

	if loop != nil && agg.HasWindow() {
		if err := usageWriter.Write(agg.Window()); err != nil {
			logger.Warn("duct: final partial report write failed", "err", err)
		}
		agg.ClearWindow()
	}
	if usageWriter != nil {
		_ = usageWriter.Close()
	}
	closeAll(stdoutFile, stderrFile)

	end := time.Now()
	exitCode := exitCodeOf(waitErr)

	summary := buildExecutionSummary(agg.FullRun(), exitCode, cmdLine, cfg.OutputPrefix,
		loopReportCount(loop), float64(start.Unix()), float64(end.Unix()), wd)
	summary.WallClockTime = end.Sub(start).Seconds()

	if cfg.RecordTypes.SystemSummary {
		doc := InfoDocument{
			Command:          cmdLine,
			System:           &sysInfo,
			Env:              sysEnv,
			GPU:              gpus,
			DuctVersion:      DuctVersion,
			SchemaVersion:    SchemaVersion,
			ExecutionSummary: summary,
			OutputPaths: OutputPaths{
				Stdout: paths.Stdout,
				Stderr: paths.Stderr,
				Usage:  paths.Usage,
				Info:   paths.Info,
				Prefix: cfg.OutputPrefix,
			},
			WorkingDirectory: wd,
			Message:          cfg.Message,
		}
		if err := writeInfoDocument(paths.Info, doc); err != nil {
			logger.Warn("duct: write info document failed", "err", err)
		}
	}

	// Failure trimming (§4.I step 13, §8 P8): a short-lived failing run's
	// artefacts are more often noise than signal.
	if exitCode != 0 && (cfg.FailTime < 0 || summary.WallClockTime < cfg.FailTime.Seconds()) {
		if err := paths.Remove(); err != nil {
			logger.Warn("duct: failure trim cleanup failed", "err", err)
		}
	}

	return &summary, nil
}

// buildSink decides the stream policy for one child stream (§9 sink
// sum-type: File | Tee | Passthrough | Discard) from the capture/passthrough
// flags and returns the capture file (if any, for closing later), the
// destination to hand the child, and a Tee to start (if any).
func buildSink(path string, capture, passthrough bool, term *os.File) (*os.File, io.Writer, *tee.Tee, error) {
	switch {
	case capture && passthrough:
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("duct: create capture file: %w", err)
		}
		return f, f, tee.New(path, term), nil
	case capture:
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("duct: create capture file: %w", err)
		}
		return f, f, nil, nil
	case passthrough:
		return nil, term, nil, nil
	default:
		return nil, nil, nil, nil
	}
}

// isCommandNotFound reports whether err is Start's failure to even locate
// the child binary, whether via PATH lookup (exec.ErrNotFound) or a direct
// path that doesn't exist (os.ErrNotExist) — the two shapes exec.Cmd.Start
// can return for a missing executable.
func isCommandNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

func loopReportCount(l *monitor.Loop) int {
	if l == nil {
		return 0
	}
	return l.ReportCount()
}

// exitCodeOf normalizes the child's exit into the wrapper's own reported
// exit code: signal-killed children report 128+signal (P7); a clean Wait
// error that isn't an ExitError (e.g. command never started) reports 127.
func exitCodeOf(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return CommandNotFoundExitCode
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.ExitCode()
	}
	if ws.Signaled() {
		return SignalExitBase + int(ws.Signal())
	}
	return ws.ExitStatus()
}

func writeInfoDocument(path string, doc InfoDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("duct: create info document: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("duct: marshal info document: %w", err)
	}
	return f.Sync()
}
