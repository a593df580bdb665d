// Package logpath implements §4.A: deriving the four output file paths from
// a user prefix template, expanding placeholders, and preparing the
// filesystem (directory creation, conflict detection) atomically — no
// partial creation when any path conflicts (§8 P9).
package logpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Capture selects which streams get their own capture file (§6
// capture_outputs).
type Capture int

const (
	CaptureNone Capture = iota
	CaptureStdout
	CaptureStderr
	CaptureAll
)

func (c Capture) wantsStdout() bool { return c == CaptureStdout || c == CaptureAll }
func (c Capture) wantsStderr() bool { return c == CaptureStderr || c == CaptureAll }

// WantsStdout reports whether c selects the stdout stream. Exported so
// callers outside this package (the orchestrator's sink selection) can
// reuse the same (capture, outputs) matrix logic instead of duplicating it.
func (c Capture) WantsStdout() bool { return c.wantsStdout() }

// WantsStderr reports whether c selects the stderr stream.
func (c Capture) WantsStderr() bool { return c.wantsStderr() }

// Paths is the §3 LogPaths artefact set. Stdout/Stderr are empty strings
// when capture is disabled for that stream (and are then not created, and
// not considered for conflicts).
type Paths struct {
	Stdout string
	Stderr string
	Usage  string
	Info   string
}

// ErrConflict is returned when one or more output paths already exist and
// clobber is false. No file or directory is created when this is returned
// (§8 P9).
type ErrConflict struct {
	Paths []string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("duct: output paths already exist (use clobber to overwrite): %s", strings.Join(e.Paths, ", "))
}

// Plan expands prefix's placeholders and derives the four output paths.
// prefix may contain "{datetime}" (local wall clock, filesystem-safe),
// its legacy alias "{datetime_filesafe}", and "{pid}" (the wrapper's own
// pid), each expanded exactly once. If prefix ends in a path separator it
// names a directory (files are named "duct.stdout"/"duct.stderr"/
// "duct.usage.jsonl"/"duct.info.json" within it); otherwise its last
// segment is a filename stem.
func Plan(prefix string, pid int, capture Capture) Paths {
	expanded := expandPlaceholders(prefix, pid)

	var stem string
	if strings.HasSuffix(expanded, string(os.PathSeparator)) || strings.HasSuffix(expanded, "/") {
		stem = filepath.Join(expanded, "duct")
	} else {
		stem = expanded
	}

	p := Paths{
		Usage: stem + ".usage.jsonl",
		Info:  stem + ".info.json",
	}
	if capture.wantsStdout() {
		p.Stdout = stem + ".stdout"
	}
	if capture.wantsStderr() {
		p.Stderr = stem + ".stderr"
	}
	return p
}

// Prepare creates parent directories for every non-empty path in p and
// refuses to proceed if any of them already exists, unless clobber is
// true. No partial filesystem state is left behind on refusal (§8 P9):
// conflicts are checked before any directory or file is created.
func (p Paths) Prepare(clobber bool) error {
	all := p.all()

	if !clobber {
		var conflicts []string
		for _, path := range all {
			if _, err := os.Stat(path); err == nil {
				conflicts = append(conflicts, path)
			}
		}
		if len(conflicts) > 0 {
			return &ErrConflict{Paths: conflicts}
		}
	}

	dirs := make(map[string]struct{})
	for _, path := range all {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("logpath: create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Remove deletes every existing path in p, used by the orchestrator's
// failure-trimming step (§4.I step 13, §8 P8). Missing files are not an
// error.
func (p Paths) Remove() error {
	for _, path := range p.all() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("logpath: remove %s: %w", path, err)
		}
	}
	return nil
}

func (p Paths) all() []string {
	out := make([]string, 0, 4)
	for _, path := range []string{p.Stdout, p.Stderr, p.Usage, p.Info} {
		if path != "" {
			out = append(out, path)
		}
	}
	return out
}

func expandPlaceholders(prefix string, pid int) string {
	now := time.Now().Format("20060102T150405")
	r := strings.NewReplacer(
		"{datetime}", now,
		"{datetime_filesafe}", now,
		"{pid}", fmt.Sprintf("%d", pid),
	)
	return r.Replace(prefix)
}
