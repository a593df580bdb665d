package aggregate

import (
	"testing"

	"github.com/duct-hpc/duct/pkg/sample"
	"github.com/duct-hpc/duct/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawSample(pcpu, pmem float64, rss, vsz uint64, ts string) *sample.Sample {
	s := sample.New()
	s.Insert(sample.ProcessStat{PID: 1, PCPU: pcpu, PMem: pmem, RSS: types.Bytes(rss), VSZ: types.Bytes(vsz), Timestamp: ts})
	return s
}

// TestAggregator_P1_AveragesIdentity verifies that after folding N samples,
// full_run.averages equals the arithmetic mean of each total_* field.
func TestAggregator_P1_AveragesIdentity(t *testing.T) {
	a := New()
	samples := []*sample.Sample{
		rawSample(10, 1, 100, 200, "t1"),
		rawSample(20, 2, 300, 400, "t2"),
		rawSample(30, 3, 500, 600, "t3"),
	}
	for _, s := range samples {
		a.Fold(s)
	}

	fr := a.FullRun()
	require.NotNil(t, fr)
	assert.Equal(t, 3, fr.Averages.NumSamples)
	assert.InDelta(t, 20.0, fr.Averages.PCPU, 1e-9) // mean(10,20,30)
	assert.InDelta(t, 2.0, fr.Averages.PMem, 1e-9)  // mean(1,2,3)
	assert.InDelta(t, 300.0, fr.Averages.RSS, 1e-9) // mean(100,300,500)
	assert.InDelta(t, 400.0, fr.Averages.VSZ, 1e-9) // mean(200,400,600)
}

// TestAggregator_P2_PeakMonotonicity verifies full_run totals never
// decrease as more samples are folded in.
func TestAggregator_P2_PeakMonotonicity(t *testing.T) {
	a := New()
	samples := []*sample.Sample{
		rawSample(50, 5, 500, 500, "t1"),
		rawSample(10, 1, 100, 100, "t2"), // dip
		rawSample(80, 2, 200, 900, "t3"), // mixed peaks
	}

	var prevPCPU, prevRSS, prevVSZ, prevPMem float64
	for i, s := range samples {
		a.Fold(s)
		fr := a.FullRun()
		if i > 0 {
			assert.GreaterOrEqual(t, fr.TotalPCPU, prevPCPU)
			assert.GreaterOrEqual(t, fr.TotalPMem, prevPMem)
			assert.GreaterOrEqual(t, float64(fr.TotalRSS), prevRSS)
			assert.GreaterOrEqual(t, float64(fr.TotalVSZ), prevVSZ)
		}
		prevPCPU, prevPMem, prevRSS, prevVSZ = fr.TotalPCPU, fr.TotalPMem, float64(fr.TotalRSS), float64(fr.TotalVSZ)
	}

	fr := a.FullRun()
	assert.Equal(t, 80.0, fr.TotalPCPU)
	assert.Equal(t, types.Bytes(900), fr.TotalVSZ)
}

// TestAggregator_P3_SingleSampleExactness checks that after exactly one
// sample, the window's averages equal the totals with no division.
func TestAggregator_P3_SingleSampleExactness(t *testing.T) {
	a := New()
	a.Fold(rawSample(42, 7, 4096, 8192, "t1"))

	w := a.Window()
	require.NotNil(t, w)
	assert.Equal(t, 1, w.Averages.NumSamples)
	assert.Equal(t, 42.0, w.Averages.PCPU)
	assert.Equal(t, float64(4096), w.Averages.RSS)
}

func TestAggregator_WindowClearPreservesFullRun(t *testing.T) {
	a := New()
	a.Fold(rawSample(1, 1, 1, 1, "t1"))
	a.Fold(rawSample(2, 2, 2, 2, "t2"))
	require.True(t, a.HasWindow())

	fullBefore := a.FullRun()
	require.NotNil(t, fullBefore)

	a.ClearWindow()
	assert.False(t, a.HasWindow())
	assert.Nil(t, a.Window())
	assert.NotNil(t, a.FullRun())
	assert.Equal(t, 2, a.FullRun().Averages.NumSamples)

	// Folding again re-initializes the window from the next raw sample.
	a.Fold(rawSample(3, 3, 3, 3, "t3"))
	require.NotNil(t, a.Window())
	assert.Equal(t, 1, a.Window().Averages.NumSamples)
	assert.Equal(t, 3, a.FullRun().Averages.NumSamples)
}

func TestAggregator_EmptySampleIgnored(t *testing.T) {
	a := New()
	a.Fold(sample.New()) // empty: no pids inserted
	assert.False(t, a.HasWindow())
	assert.Nil(t, a.FullRun())
}
