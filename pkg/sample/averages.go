package sample

import "encoding/json"

// RunningAverages is an incremental mean of per-sample totals, using the
// same "new = old + (x-old)/n" update the teacher's EMA helper uses for its
// exponential variant, here with n itself advancing instead of a fixed
// smoothing constant — an ordinary running mean, exact from the first
// sample (P3) and well-defined at n==0 (P "averages identity" sentinel).
type RunningAverages struct {
	RSS        float64 `json:"rss"`
	VSZ        float64 `json:"vsz"`
	PMem       float64 `json:"pmem"`
	PCPU       float64 `json:"pcpu"`
	NumSamples int     `json:"num_samples"`
}

// FromSingleSample builds a RunningAverages with num_samples=1 and each
// field equal to the given totals exactly (no division), matching §3's
// single-sample exactness invariant.
func FromSingleSample(rss, vsz, pmem, pcpu float64) RunningAverages {
	return RunningAverages{RSS: rss, VSZ: vsz, PMem: pmem, PCPU: pcpu, NumSamples: 1}
}

// Update folds one more sample's totals into the running mean in place.
func (a *RunningAverages) Update(rss, vsz, pmem, pcpu float64) {
	a.NumSamples++
	n := float64(a.NumSamples)
	a.RSS += (rss - a.RSS) / n
	a.VSZ += (vsz - a.VSZ) / n
	a.PMem += (pmem - a.PMem) / n
	a.PCPU += (pcpu - a.PCPU) / n
}

// HasData reports whether at least one sample has been folded in.
func (a RunningAverages) HasData() bool { return a.NumSamples > 0 }

// averagesWire is the null-capable JSON shape: num_samples==0 means "no
// data", rendered as JSON null for every numeric field rather than a
// misleading zero.
type averagesWire struct {
	RSS        *float64 `json:"rss"`
	VSZ        *float64 `json:"vsz"`
	PMem       *float64 `json:"pmem"`
	PCPU       *float64 `json:"pcpu"`
	NumSamples int      `json:"num_samples"`
}

// MarshalJSON renders every numeric field as null when no sample has ever
// been folded in, instead of a misleading zero.
func (a RunningAverages) MarshalJSON() ([]byte, error) {
	w := averagesWire{NumSamples: a.NumSamples}
	if a.HasData() {
		w.RSS, w.VSZ, w.PMem, w.PCPU = &a.RSS, &a.VSZ, &a.PMem, &a.PCPU
	}
	return json.Marshal(w)
}
