package sampler

import (
	"strings"
	"testing"

	"github.com/duct-hpc/duct/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePSOutput = `` +
	"1234    1   0.5  1.2   4096   8192 00:10 Ss   /bin/sh -c sleep 400\n" +
	"1234  567   2.1  0.3   1024   2048 00:05 R    sleep 0.4\n" +
	"9999  111   0.0  0.0    512   1024 00:01 S    other-session-proc\n" +
	"garbage line that should be skipped\n" +
	"1234  bogus 0.0  0.0    512   1024 00:01 S    unparsable-pid\n"

func TestParsePS_FiltersBySessionAndSkipsBadRows(t *testing.T) {
	stats := parsePS(strings.NewReader(samplePSOutput), 1234, "2024-01-01T00:00:00Z")

	require.Len(t, stats, 2)
	pids := map[int]bool{}
	for _, s := range stats {
		pids[s.PID] = true
	}
	assert.True(t, pids[1])
	assert.True(t, pids[567])
	assert.False(t, pids[111])
}

func TestParsePS_ConvertsKBToBytes(t *testing.T) {
	stats := parsePS(strings.NewReader(samplePSOutput), 1234, "ts")
	require.NotEmpty(t, stats)
	for _, s := range stats {
		if s.PID == 1 {
			assert.Equal(t, types.Bytes(4096*1024), s.RSS)
			assert.Equal(t, types.Bytes(8192*1024), s.VSZ)
		}
	}
}

func TestParsePS_JoinsMultiWordCommand(t *testing.T) {
	stats := parsePS(strings.NewReader(samplePSOutput), 1234, "ts")
	for _, s := range stats {
		if s.PID == 1 {
			assert.Equal(t, "/bin/sh -c sleep 400", s.Cmd)
		}
	}
}

func TestParsePS_EmptyInputYieldsNoStats(t *testing.T) {
	stats := parsePS(strings.NewReader(""), 1234, "ts")
	assert.Empty(t, stats)
}

func TestParseRow_DefaultsInvalidNumericsToZero(t *testing.T) {
	fields := []string{"1234", "1", "notanumber", "notanumber", "notanumber", "notanumber", "00:00", "R", "cmd"}
	st, ok := parseRow(fields, "ts")
	require.True(t, ok)
	assert.Equal(t, 0.0, st.PCPU)
	assert.Equal(t, 0.0, st.PMem)
	assert.Equal(t, types.Bytes(0), st.RSS)
	assert.Equal(t, types.Bytes(0), st.VSZ)
}

func TestParseRow_RejectsUnparsablePID(t *testing.T) {
	fields := []string{"1234", "notapid", "0", "0", "0", "0", "00:00", "R", "cmd"}
	_, ok := parseRow(fields, "ts")
	assert.False(t, ok)
}
