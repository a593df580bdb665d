// Package sysinfo implements §4.H: host facts, an HPC-prefixed environment
// variable subset, and an optional GPU inventory, collected concurrently
// with the monitor loop without blocking the child.
package sysinfo

import (
	"bufio"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"

	"github.com/duct-hpc/duct/pkg/types"
)

// hpcEnvPrefixes is the fixed set of environment-variable name prefixes
// considered HPC-relevant (§4.H).
var hpcEnvPrefixes = []string{
	"SLURM_", "PBS_", "LSB_", "SGE_", "OMPI_", "MPI_", "CUDA_", "ROCM_",
}

// Info is the host-facts portion of §4.H / the info document's "system"
// object.
type Info struct {
	CPUTotal   int         `json:"cpu_total"`
	MemoryTotal types.Bytes `json:"memory_total"`
	Hostname   string      `json:"hostname"`
	UID        int         `json:"uid"`
	User       string      `json:"user"`
}

// Collect gathers host facts and the HPC environment-variable subset. It
// never returns an error: every sub-probe degrades to a zero value on
// failure rather than aborting the run (§7 kind 4).
func Collect() (Info, map[string]string) {
	info := Info{
		CPUTotal:    runtime.NumCPU(),
		MemoryTotal: readMemTotal(),
		Hostname:    readHostname(),
	}
	info.UID, info.User = readUser()
	return info, envSubset()
}

func readHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func readUser() (int, string) {
	u, err := user.Current()
	if err != nil {
		return os.Getuid(), ""
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		uid = os.Getuid()
	}
	return uid, u.Username
}

// readMemTotal parses /proc/meminfo's MemTotal line (reported in KiB),
// converting to bytes at ingest like every other byte-valued field in this
// system (§4.C). Returns 0 on any platform/parse failure.
func readMemTotal() types.Bytes {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return types.Bytes(kb * 1024)
	}
	return 0
}

// envSubset returns the environment variables whose names start with any
// of hpcEnvPrefixes.
func envSubset() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		for _, prefix := range hpcEnvPrefixes {
			if strings.HasPrefix(k, prefix) {
				out[k] = v
				break
			}
		}
	}
	return out
}
