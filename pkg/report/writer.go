// Package report implements §4.E: appending one JSON Lines record per
// report boundary to the usage log, flushed immediately so readers can
// tail the file.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/duct-hpc/duct/pkg/sample"
)

// Record is one usage-log line, matching §4.E exactly.
type Record struct {
	Timestamp  string                        `json:"timestamp"`
	NumSamples int                           `json:"num_samples"`
	Processes  map[string]sample.ProcessStat `json:"processes"`
	Totals     recordTotals                  `json:"totals"`
	Averages   sample.RunningAverages        `json:"averages"`
}

type recordTotals struct {
	PCPU float64 `json:"pcpu"`
	PMem float64 `json:"pmem"`
	RSS  uint64  `json:"rss"`
	VSZ  uint64  `json:"vsz"`
}

// FromWindow builds the usage-log Record for a finished (or final partial)
// report window.
func FromWindow(window *sample.Sample) Record {
	processes := make(map[string]sample.ProcessStat, len(window.Stats))
	for pid, st := range window.Stats {
		processes[fmt.Sprintf("%d", pid)] = st
	}
	return Record{
		Timestamp:  window.Timestamp,
		NumSamples: window.Averages.NumSamples,
		Processes:  processes,
		Totals: recordTotals{
			PCPU: window.TotalPCPU,
			PMem: window.TotalPMem,
			RSS:  uint64(window.TotalRSS),
			VSZ:  uint64(window.TotalVSZ),
		},
		Averages: window.Averages,
	}
}

// Writer appends newline-terminated JSON records to a usage log file,
// flushing after every write.
type Writer struct {
	f *os.File
}

// Open creates (or truncates) the usage log at path for appending records.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("report: open usage log: %w", err)
	}
	return &Writer{f: f}, nil
}

// Write appends one record as a single JSON line, flushing immediately.
func (w *Writer) Write(window *sample.Sample) error {
	if window == nil {
		return nil
	}
	rec := FromWindow(window)
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("report: marshal record: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.f.Write(b); err != nil {
		return fmt.Errorf("report: write record: %w", err)
	}
	return w.f.Sync()
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}
