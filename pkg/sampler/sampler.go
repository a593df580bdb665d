// Package sampler implements the §4.C Sampler contract: given a session id,
// enumerate every live process in that session via a ps-equivalent tool and
// return a typed snapshot, or a "no data this tick" indicator.
//
// The spec leaves the Linux/macOS backend split implementation-defined
// (§9 Open Question); this package uses a single ps-based backend on both,
// since ps is POSIX and its column output is stable enough to parse
// portably. Short-lived processes born and dying within one sample
// interval may be missed, and a pid that disappears mid-enumeration must
// not crash the sampler — both are accepted, not bugs (§9).
package sampler

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/duct-hpc/duct/pkg/sample"
)

// Sampler is the §4.C contract.
type Sampler interface {
	// Sample enumerates the session and returns a populated Sample, or
	// (nil, nil) when nothing was observed this tick — an expected
	// transient condition at startup and near shutdown, never an error.
	Sample(ctx context.Context, sessionID int) (*sample.Sample, error)
}

// PSSampler samples a session by invoking the system's ps tool.
type PSSampler struct {
	// Bin overrides the ps binary name/path; defaults to "ps" on PATH.
	Bin string
}

// New returns a PSSampler using the system ps binary.
func New() *PSSampler { return &PSSampler{Bin: "ps"} }

// Sample implements Sampler. If the session id is invalid, it returns
// ErrNoSessionID — a configuration error, not an observability failure. If
// ps exits non-zero, its output is unparsable, or zero rows match the
// session, Sample returns (nil, nil): "no data", per §4.C.
func (p *PSSampler) Sample(ctx context.Context, sessionID int) (*sample.Sample, error) {
	if sessionID <= 0 {
		return nil, ErrNoSessionID
	}

	bin := p.Bin
	if bin == "" {
		bin = "ps"
	}

	cmd := exec.CommandContext(ctx, bin, "-e", "-o", psColumns)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// Observability failures (non-zero exit, missing binary) are not
	// fatal to the run — §7 kind 4 — so the error is swallowed here.
	if err := cmd.Run(); err != nil {
		return nil, nil
	}

	now := nowISO8601()
	stats := parsePS(&stdout, sessionID, now)
	if len(stats) == 0 {
		return nil, nil
	}

	s := sample.New()
	for _, st := range stats {
		s.Insert(st)
	}
	return s, nil
}
