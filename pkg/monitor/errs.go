package monitor

import "errors"

var (
	// ErrBadSampleInterval means sample_interval was <= 0.
	ErrBadSampleInterval = errors.New("monitor: sample_interval must be > 0")

	// ErrReportLessThanSample means report_interval was less than
	// sample_interval, violating §4.F's timing guarantee.
	ErrReportLessThanSample = errors.New("monitor: report_interval must be >= sample_interval")
)
