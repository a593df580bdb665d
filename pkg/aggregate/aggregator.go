// Package aggregate implements the §4.D Aggregator: two rolling
// accumulators — the current report window and the whole-run totals —
// folded from raw per-tick samples by peak-merge plus incremental average.
package aggregate

import "github.com/duct-hpc/duct/pkg/sample"

// Aggregator holds the current-report window (absent between a report
// boundary and the next raw sample) and the full-run accumulator, which
// persists unchanged across report boundaries.
type Aggregator struct {
	window  *sample.Sample
	fullRun *sample.Sample
}

// New returns an Aggregator with no samples folded in yet.
func New() *Aggregator {
	return &Aggregator{}
}

// Fold applies the §3 two-Sample aggregation rule to both accumulators: the
// per-pid stats and totals become element-wise peaks, and each
// accumulator's RunningAverages is updated by folding the raw sample's
// totals in. If the window is absent it is initialized from raw, matching
// §4.D ("If current_window is absent, it is initialized from s").
func (a *Aggregator) Fold(raw *sample.Sample) {
	if raw.Empty() {
		return
	}
	if a.window == nil {
		a.window = raw.Clone()
	} else {
		a.window.MaxMerge(raw)
		a.window.Averages.Update(float64(raw.TotalRSS), float64(raw.TotalVSZ), raw.TotalPMem, raw.TotalPCPU)
	}
	if a.fullRun == nil {
		a.fullRun = raw.Clone()
	} else {
		a.fullRun.MaxMerge(raw)
		a.fullRun.Averages.Update(float64(raw.TotalRSS), float64(raw.TotalVSZ), raw.TotalPMem, raw.TotalPCPU)
	}
}

// Window returns the current report window, or nil if no raw sample has
// been folded in since the last report boundary.
func (a *Aggregator) Window() *sample.Sample { return a.window }

// FullRun returns the whole-run accumulator, or nil if no sample has ever
// been folded in.
func (a *Aggregator) FullRun() *sample.Sample { return a.fullRun }

// ClearWindow resets the current report window after it has been handed to
// the report writer; full_run is left untouched.
func (a *Aggregator) ClearWindow() { a.window = nil }

// HasWindow reports whether a partially-filled window remains, used by the
// orchestrator to decide whether a final partial-window flush is needed
// (§4.I step 9, P4/P10).
func (a *Aggregator) HasWindow() bool { return a.window != nil }
