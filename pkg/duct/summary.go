package duct

import (
	"github.com/duct-hpc/duct/pkg/sample"
	"github.com/duct-hpc/duct/pkg/sysinfo"
)

// SchemaVersion is the info document's schema version (§6). Additive
// changes only within a major version, per §4.E.
const SchemaVersion = "1.0.0"

// DuctVersion is this build's reported version (§3, §6).
const DuctVersion = "0.1.0"

// ExecutionSummary is produced once at the end of a run (§3).
type ExecutionSummary struct {
	ExitCode         int      `json:"exit_code"`
	Command          string   `json:"command"`
	LogsPrefix       string   `json:"logs_prefix"`
	WallClockTime    float64  `json:"wall_clock_time"`
	PeakRSS          *uint64  `json:"peak_rss"`
	AverageRSS       *float64 `json:"average_rss"`
	PeakVSZ          *uint64  `json:"peak_vsz"`
	AverageVSZ       *float64 `json:"average_vsz"`
	PeakPMem         *float64 `json:"peak_pmem"`
	AveragePMem      *float64 `json:"average_pmem"`
	PeakPCPU         *float64 `json:"peak_pcpu"`
	AveragePCPU      *float64 `json:"average_pcpu"`
	NumSamples       int      `json:"num_samples"`
	NumReports       int      `json:"num_reports"`
	StartTime        float64  `json:"start_time"`
	EndTime          float64  `json:"end_time"`
	WorkingDirectory string   `json:"working_directory"`
}

// OutputPaths mirrors the four log artefacts plus the prefix that produced
// them, for the info document's "output_paths" object (§6).
type OutputPaths struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Usage  string `json:"usage"`
	Info   string `json:"info"`
	Prefix string `json:"prefix"`
}

// InfoDocument is the single JSON document written once at end-of-run
// (§6 File 4).
type InfoDocument struct {
	Command          string            `json:"command"`
	System           *sysinfo.Info     `json:"system"`
	Env              map[string]string `json:"env"`
	GPU              []sysinfo.GPU     `json:"gpu"`
	DuctVersion      string            `json:"duct_version"`
	SchemaVersion    string            `json:"schema_version"`
	ExecutionSummary ExecutionSummary  `json:"execution_summary"`
	OutputPaths      OutputPaths       `json:"output_paths"`
	WorkingDirectory string            `json:"working_directory"`
	Message          string            `json:"message"`
}

// buildExecutionSummary derives the §3 ExecutionSummary from the full-run
// accumulator (peaks and averages) and the run's timing/outcome facts.
// fullRun may be nil when monitoring never observed any process.
func buildExecutionSummary(fullRun *sample.Sample, exitCode int, cmdLine, prefix string, numReports int, start, end float64, wd string) ExecutionSummary {
	s := ExecutionSummary{
		ExitCode:         exitCode,
		Command:          cmdLine,
		LogsPrefix:       prefix,
		WallClockTime:    end - start,
		NumReports:       numReports,
		StartTime:        start,
		EndTime:          end,
		WorkingDirectory: wd,
	}
	if fullRun != nil {
		rss := uint64(fullRun.TotalRSS)
		vsz := uint64(fullRun.TotalVSZ)
		pmem := fullRun.TotalPMem
		pcpu := fullRun.TotalPCPU
		s.PeakRSS, s.PeakVSZ, s.PeakPMem, s.PeakPCPU = &rss, &vsz, &pmem, &pcpu
		s.NumSamples = fullRun.Averages.NumSamples
		if fullRun.Averages.HasData() {
			avgRSS, avgVSZ, avgPMem, avgPCPU := fullRun.Averages.RSS, fullRun.Averages.VSZ, fullRun.Averages.PMem, fullRun.Averages.PCPU
			s.AverageRSS, s.AverageVSZ, s.AveragePMem, s.AveragePCPU = &avgRSS, &avgVSZ, &avgPMem, &avgPCPU
		}
	}
	return s
}
