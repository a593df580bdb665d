// Package monitor implements §4.F: the loop that drives sampler →
// aggregator → report writer on a fixed cadence until told to stop,
// anchoring report boundaries to start time so drift does not accumulate.
//
// This is the one component with a direct 1:1 ancestor in the teacher: its
// shape is the teacher's own ticker/select loop in cmd/consumption's run(),
// generalized from "tick, sample fixed pids, print a row" to "tick, sample
// a session, fold into the aggregator, report on a separate cadence."
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/duct-hpc/duct/pkg/aggregate"
	"github.com/duct-hpc/duct/pkg/report"
	"github.com/duct-hpc/duct/pkg/sampler"
)

// Loop drives the sample/aggregate/report cycle for one session.
type Loop struct {
	Sampler        sampler.Sampler
	Aggregator     *aggregate.Aggregator
	Writer         *report.Writer
	SessionID      int
	SampleInterval time.Duration
	ReportInterval time.Duration
	// IsChildExited, if set, lets the loop notice the child already died
	// before spending a sample on it (§4.F step 1). Nil means "never".
	IsChildExited func() bool
	Logger        *slog.Logger

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	reports int
}

// New validates the cadence configuration (report_interval >= sample_interval,
// both > 0, per §4.F/§6) and returns a Loop ready to Start.
func New(l Loop) (*Loop, error) {
	if l.SampleInterval <= 0 {
		return nil, ErrBadSampleInterval
	}
	if l.ReportInterval < l.SampleInterval {
		return nil, ErrReportLessThanSample
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	return &l, nil
}

// Start launches the background loop.
func (l *Loop) Start(ctx context.Context) {
	go l.run(ctx)
}

// Stop signals the loop to stop and blocks until it has settled. The loop
// responds within at most one sample_interval (§4.F, §8 P10).
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

// ReportCount returns the number of records written so far.
func (l *Loop) ReportCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reports
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	start := time.Now()
	reportNumber := 1

	for {
		if l.IsChildExited != nil && l.IsChildExited() {
			return
		}

		snap, err := l.Sampler.Sample(ctx, l.SessionID)
		if err != nil {
			// Observability failure (§7 kind 4): never abort the run.
			l.Logger.Warn("duct: sample failed", "err", err)
		} else if snap != nil {
			l.Aggregator.Fold(snap)

			elapsed := time.Since(start)
			boundary := time.Duration(reportNumber-1) * l.ReportInterval
			if elapsed >= boundary {
				if window := l.Aggregator.Window(); window != nil {
					if err := l.Writer.Write(window); err != nil {
						l.Logger.Warn("duct: write report failed", "err", err)
					} else {
						l.mu.Lock()
						l.reports++
						l.mu.Unlock()
					}
					l.Aggregator.ClearWindow()
				}
				reportNumber++
			}
		}

		select {
		case <-l.stop:
			return
		case <-time.After(l.SampleInterval):
		}
	}
}
