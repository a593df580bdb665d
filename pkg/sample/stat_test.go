package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatCounter_EmptyCodeYieldsNil(t *testing.T) {
	assert.Nil(t, NewStatCounter(""))
}

func TestNewStatCounter_SingleObservation(t *testing.T) {
	assert.Equal(t, StatCounter{"R": 1}, NewStatCounter("R"))
}

func TestStatCounter_UnionAddsCounts(t *testing.T) {
	a := StatCounter{"R": 2, "S": 1}
	b := StatCounter{"R": 1, "Z": 3}

	assert.Equal(t, StatCounter{"R": 3, "S": 1, "Z": 3}, a.Union(b))
}

func TestStatCounter_UnionOfNilsIsNil(t *testing.T) {
	var a, b StatCounter
	assert.Nil(t, a.Union(b))
}

func TestMaxStat_UnionsStatRegardlessOfWhichSidePeaked(t *testing.T) {
	a := ProcessStat{PCPU: 10, Timestamp: "t1", Stat: StatCounter{"R": 1}}
	b := ProcessStat{PCPU: 5, Timestamp: "t2", Stat: StatCounter{"S": 1}}

	out := maxStat(a, b)

	assert.Equal(t, 10.0, out.PCPU) // a peaked on pcpu
	assert.Equal(t, "t2", out.Timestamp) // b is the later observation
	assert.Equal(t, StatCounter{"R": 1, "S": 1}, out.Stat)
}
