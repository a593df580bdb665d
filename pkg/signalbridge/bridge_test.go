package signalbridge

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// injectSignal feeds a synthetic signal directly into the bridge's internal
// channel, exercising the escalation ladder without needing to actually
// deliver an OS signal to this test process.
func injectSignal(b *Bridge, sig os.Signal) {
	b.ch <- sig
}

func TestBridge_EscalationLadder(t *testing.T) {
	exited := make(chan struct{})
	b := New(0, nil) // pid 0: forward() no-ops, we only assert the counting/escalation logic
	b.Exit = func() { close(exited) }

	go b.run()

	injectSignal(b, syscall.SIGINT) // 1st: forward
	injectSignal(b, syscall.SIGINT) // 2nd: forward
	injectSignal(b, syscall.SIGINT) // 3rd: force-kill
	time.Sleep(10 * time.Millisecond)

	b.mu.Lock()
	count := b.count
	b.mu.Unlock()
	assert.Equal(t, 3, count)

	select {
	case <-exited:
		t.Fatal("exit should not fire before the 4th signal")
	default:
	}

	injectSignal(b, syscall.SIGINT) // 4th: exit immediately

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("expected Exit to be called on the 4th signal")
	}
}

func TestBridge_StartStop(t *testing.T) {
	b := New(0, nil)
	b.Start()
	require.NotPanics(t, b.Stop)
}
