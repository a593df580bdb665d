// Package sample holds the core data model shared by the sampler, the
// aggregator, and the report writer: one process observation, one
// session-wide snapshot, and the incremental running average bound to it.
package sample

import "github.com/duct-hpc/duct/pkg/types"

// StatCounter is a multiset of ps-style state codes (e.g. "R", "Ss", "Z"),
// counting how many observations of a process carried each code (§3).
type StatCounter map[string]int

// NewStatCounter builds a single-observation multiset from one ps state code.
func NewStatCounter(code string) StatCounter {
	if code == "" {
		return nil
	}
	return StatCounter{code: 1}
}

// Union returns a new multiset counting both a and b's observations, the
// same way the ground-truth model's Counter union works: addition, not
// replacement.
func (a StatCounter) Union(b StatCounter) StatCounter {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(StatCounter, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

// ProcessStat is a single process observed in one sample. All numeric
// fields are non-negative; rss/vsz are always bytes regardless of the
// source unit, conversion happens at ingest in the sampler.
type ProcessStat struct {
	PID       int         `json:"pid"`
	PCPU      float64     `json:"pcpu"`
	PMem      float64     `json:"pmem"`
	RSS       types.Bytes `json:"rss"`
	VSZ       types.Bytes `json:"vsz"`
	Timestamp string      `json:"timestamp"`
	Etime     string      `json:"etime"`
	Stat      StatCounter `json:"stat"`
	Cmd       string      `json:"cmd"`
}

// maxStat returns the element-wise peak of two ProcessStats for the same pid.
// Non-numeric, non-multiset fields (timestamp, etime, cmd) are taken from
// whichever side has the later timestamp, i.e. the most recent
// observation, independently of which side peaked on any metric. Stat is
// a multiset and is unioned across both sides regardless of which peaked,
// per §3's accumulated-state-codes semantics.
func maxStat(a, b ProcessStat) ProcessStat {
	out := a
	if b.PCPU > a.PCPU {
		out.PCPU = b.PCPU
	}
	if b.PMem > a.PMem {
		out.PMem = b.PMem
	}
	if b.RSS > a.RSS {
		out.RSS = b.RSS
	}
	if b.VSZ > a.VSZ {
		out.VSZ = b.VSZ
	}
	if b.Timestamp > a.Timestamp {
		out.Timestamp = b.Timestamp
		out.Etime = b.Etime
		out.Cmd = b.Cmd
	}
	out.Stat = a.Stat.Union(b.Stat)
	return out
}
