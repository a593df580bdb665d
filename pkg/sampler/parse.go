package sampler

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/duct-hpc/duct/pkg/sample"
	"github.com/duct-hpc/duct/pkg/types"
)

// psColumns is the no-header, stable-order column list requested from ps.
// The trailing "=" on each spec suppresses ps's header line (portable
// across GNU and BSD/macOS ps), and args must be last since it is the only
// column that can itself contain spaces.
const psColumns = "sess=,pid=,pcpu=,pmem=,rss=,vsz=,etime=,stat=,args="

const psFixedFields = 8 // sess,pid,pcpu,pmem,rss,vsz,etime,stat (args is the remainder)

// parsePS scans ps output in psColumns order, keeping only rows whose
// session id matches sessionID. Unparsable or short rows are skipped rather
// than treated as fatal, per §4.C/§9 ("must not crash when a pid
// disappears mid-enumeration").
func parsePS(r io.Reader, sessionID int, now string) []sample.ProcessStat {
	var out []sample.ProcessStat
	sc := bufio.NewScanner(r)
	// ps can emit very long command lines; grow the scanner's buffer.
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < psFixedFields {
			continue
		}
		sess, err := strconv.Atoi(fields[0])
		if err != nil || sess != sessionID {
			continue
		}
		stat, ok := parseRow(fields, now)
		if !ok {
			continue
		}
		out = append(out, stat)
	}
	return out
}

func parseRow(fields []string, now string) (sample.ProcessStat, bool) {
	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		return sample.ProcessStat{}, false
	}
	pcpu, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		pcpu = 0
	}
	pmem, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		pmem = 0
	}
	rssKB, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		rssKB = 0
	}
	vszKB, err := strconv.ParseUint(fields[5], 10, 64)
	if err != nil {
		vszKB = 0
	}
	etime := fields[6]
	stat := sample.NewStatCounter(fields[7])
	cmd := ""
	if len(fields) > psFixedFields {
		cmd = strings.Join(fields[psFixedFields:], " ")
	}

	return sample.ProcessStat{
		PID:       pid,
		PCPU:      pcpu,
		PMem:      pmem,
		RSS:       types.Bytes(rssKB * 1024),
		VSZ:       types.Bytes(vszKB * 1024),
		Timestamp: now,
		Etime:     etime,
		Stat:      stat,
		Cmd:       cmd,
	}, true
}

// nowISO8601 returns the current wall-clock time formatted with an explicit
// timezone offset, matching §3's "ISO-8601 with timezone" requirement.
func nowISO8601() string { return time.Now().Format(time.RFC3339) }
