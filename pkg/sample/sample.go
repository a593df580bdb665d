package sample

import "github.com/duct-hpc/duct/pkg/types"

// Sample is one observation of an entire session: one ProcessStat per pid,
// plus totals computed eagerly as stats are inserted (§3 invariant: totals
// always equal the sums over Stats) and a RunningAverages bound to the
// sample (num_samples==1, values equal the totals, per FromSingleSample).
type Sample struct {
	Stats     map[int]ProcessStat `json:"processes"`
	Timestamp string              `json:"timestamp"`

	TotalPCPU float64     `json:"-"`
	TotalPMem float64     `json:"-"`
	TotalRSS  types.Bytes `json:"-"`
	TotalVSZ  types.Bytes `json:"-"`

	Averages RunningAverages `json:"averages"`
}

// New builds an empty Sample ready for Insert calls.
func New() *Sample {
	return &Sample{Stats: make(map[int]ProcessStat)}
}

// Insert adds or replaces a ProcessStat by pid, updating totals and the
// sample's timestamp (the max of per-process timestamps seen so far) and
// recomputing the single-sample RunningAverages.
func (s *Sample) Insert(p ProcessStat) {
	if s.Stats == nil {
		s.Stats = make(map[int]ProcessStat)
	}
	if old, ok := s.Stats[p.PID]; ok {
		s.TotalPCPU -= old.PCPU
		s.TotalPMem -= old.PMem
		s.TotalRSS -= old.RSS
		s.TotalVSZ -= old.VSZ
	}
	s.Stats[p.PID] = p
	s.TotalPCPU += p.PCPU
	s.TotalPMem += p.PMem
	s.TotalRSS += p.RSS
	s.TotalVSZ += p.VSZ
	if p.Timestamp > s.Timestamp {
		s.Timestamp = p.Timestamp
	}
	s.Averages = FromSingleSample(float64(s.TotalRSS), float64(s.TotalVSZ), s.TotalPMem, s.TotalPCPU)
}

// Empty reports whether the sample has no observed processes — the "no
// data this tick" condition the sampler signals on zero enumeration (§4.C).
func (s *Sample) Empty() bool { return s == nil || len(s.Stats) == 0 }

// Clone returns a deep copy so callers can hand a Sample to the aggregator
// without aliasing its map.
func (s *Sample) Clone() *Sample {
	if s == nil {
		return nil
	}
	out := &Sample{
		Stats:     make(map[int]ProcessStat, len(s.Stats)),
		Timestamp: s.Timestamp,
		TotalPCPU: s.TotalPCPU,
		TotalPMem: s.TotalPMem,
		TotalRSS:  s.TotalRSS,
		TotalVSZ:  s.TotalVSZ,
		Averages:  s.Averages,
	}
	for pid, st := range s.Stats {
		out.Stats[pid] = st
	}
	return out
}

// MaxMerge folds other into s by the §3 two-Sample aggregation rule:
// per-pid stats are the element-wise maximum over shared pids (and the
// original value for pids present in only one side); totals are
// element-wise maxima of the two totals, independently — this is the §9
// "peak simultaneous totals, not summed-peaks-per-pid" subtlety, and must
// not be "fixed" by recomputing totals from the merged per-pid map.
func (s *Sample) MaxMerge(other *Sample) {
	if other == nil {
		return
	}
	if s.Stats == nil {
		s.Stats = make(map[int]ProcessStat, len(other.Stats))
	}
	for pid, os := range other.Stats {
		if cur, ok := s.Stats[pid]; ok {
			s.Stats[pid] = maxStat(cur, os)
		} else {
			s.Stats[pid] = os
		}
	}
	if other.TotalPCPU > s.TotalPCPU {
		s.TotalPCPU = other.TotalPCPU
	}
	if other.TotalPMem > s.TotalPMem {
		s.TotalPMem = other.TotalPMem
	}
	if other.TotalRSS > s.TotalRSS {
		s.TotalRSS = other.TotalRSS
	}
	if other.TotalVSZ > s.TotalVSZ {
		s.TotalVSZ = other.TotalVSZ
	}
	if other.Timestamp > s.Timestamp {
		s.Timestamp = other.Timestamp
	}
}
