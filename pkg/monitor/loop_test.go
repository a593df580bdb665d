package monitor

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duct-hpc/duct/pkg/aggregate"
	"github.com/duct-hpc/duct/pkg/report"
	"github.com/duct-hpc/duct/pkg/sample"
	"github.com/stretchr/testify/require"
)

// fakeSampler returns a fresh one-pid sample on every call, counting calls.
type fakeSampler struct {
	calls int64
}

func (f *fakeSampler) Sample(_ context.Context, _ int) (*sample.Sample, error) {
	n := atomic.AddInt64(&f.calls, 1)
	s := sample.New()
	s.Insert(sample.ProcessStat{PID: 1, PCPU: float64(n), Timestamp: time.Now().Format(time.RFC3339Nano)})
	return s, nil
}

func newLoop(t *testing.T, sampleInterval, reportInterval time.Duration) (*Loop, *fakeSampler) {
	t.Helper()
	dir := t.TempDir()
	w, err := report.Open(filepath.Join(dir, "usage.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	fs := &fakeSampler{}
	l, err := New(Loop{
		Sampler:        fs,
		Aggregator:     aggregate.New(),
		Writer:         w,
		SessionID:      1234,
		SampleInterval: sampleInterval,
		ReportInterval: reportInterval,
	})
	require.NoError(t, err)
	return l, fs
}

func TestNew_RejectsBadIntervals(t *testing.T) {
	_, err := New(Loop{SampleInterval: 0, ReportInterval: time.Second})
	require.ErrorIs(t, err, ErrBadSampleInterval)

	_, err = New(Loop{SampleInterval: time.Second, ReportInterval: 10 * time.Millisecond})
	require.ErrorIs(t, err, ErrReportLessThanSample)
}

func TestLoop_WritesReportsOnCadence(t *testing.T) {
	l, _ := newLoop(t, 10*time.Millisecond, 50*time.Millisecond)
	l.Start(context.Background())
	time.Sleep(220 * time.Millisecond)
	l.Stop()

	// The first sample reports at once, then one report per 50ms boundary
	// (50, 100, 150, 200ms) => about 5 reports in ~220ms, plus/minus timing
	// slop; assert a sane range rather than an exact count.
	n := l.ReportCount()
	require.GreaterOrEqual(t, n, 2)
	require.LessOrEqual(t, n, 6)
}

func TestLoop_StopLatencyBoundedBySampleInterval(t *testing.T) {
	l, _ := newLoop(t, 100*time.Millisecond, 100*time.Millisecond)
	l.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	l.Stop()
	elapsed := time.Since(start)

	require.Less(t, elapsed, 150*time.Millisecond)
}

func TestLoop_ChildAlreadyExitedSkipsSampling(t *testing.T) {
	dir := t.TempDir()
	w, err := report.Open(filepath.Join(dir, "usage.jsonl"))
	require.NoError(t, err)
	defer w.Close()

	fs := &fakeSampler{}
	exited := true
	l, err := New(Loop{
		Sampler:        fs,
		Aggregator:     aggregate.New(),
		Writer:         w,
		SessionID:      1,
		SampleInterval: 10 * time.Millisecond,
		ReportInterval: 10 * time.Millisecond,
		IsChildExited:  func() bool { return exited },
	})
	require.NoError(t, err)

	l.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	l.Stop()

	require.EqualValues(t, 0, atomic.LoadInt64(&fs.calls))
}
