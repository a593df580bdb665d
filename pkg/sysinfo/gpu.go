package sysinfo

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/duct-hpc/duct/pkg/types"
)

// GPUTimeout bounds how long the GPU-query tool may run before the probe
// gives up and reports no GPUs (§4.H).
const GPUTimeout = 2 * time.Second

// GPU is one entry of the GPU inventory (§4.H).
type GPU struct {
	Index         int         `json:"index"`
	Name          string      `json:"name"`
	BusID         string      `json:"bus_id"`
	DriverVersion string      `json:"driver_version"`
	MemoryTotal   types.Bytes `json:"memory_total"`
	ComputeMode   string      `json:"compute_mode"`
}

var gpuQueryFields = "index,name,pci.bus_id,driver_version,memory.total,compute_mode"

// CollectGPUs invokes nvidia-smi with a bounded timeout and parses its CSV
// response into a GPU inventory. Any error — tool missing, timeout,
// unparsable output — is treated as "no GPUs reported" without failing the
// run (§4.H, §7 kind 4): in every such case it returns nil.
func CollectGPUs() []GPU {
	ctx, cancel := context.WithTimeout(context.Background(), GPUTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu="+gpuQueryFields, "--format=csv,noheader,nounits")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil
	}

	gpus, err := parseGPUCSV(&stdout)
	if err != nil {
		return nil
	}
	return gpus
}

func parseGPUCSV(r io.Reader) ([]GPU, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var out []GPU
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip a malformed row rather than abandoning the whole probe.
			continue
		}
		g, ok := parseGPURow(row)
		if ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func parseGPURow(row []string) (GPU, bool) {
	if len(row) < 6 {
		return GPU{}, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return GPU{}, false
	}
	memMB, err := strconv.ParseUint(strings.TrimSpace(row[4]), 10, 64)
	if err != nil {
		memMB = 0
	}
	return GPU{
		Index:         idx,
		Name:          strings.TrimSpace(row[1]),
		BusID:         strings.TrimSpace(row[2]),
		DriverVersion: strings.TrimSpace(row[3]),
		MemoryTotal:   types.Bytes(memMB * 1024 * 1024),
		ComputeMode:   strings.TrimSpace(row[5]),
	}, true
}
