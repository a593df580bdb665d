// Package signalbridge implements §4.G: forwarding interrupts delivered to
// the wrapper's controlling terminal to the child, with escalation.
//
// The teacher only ever arms a one-shot signal.NotifyContext; duct needs to
// count repeated signals to climb the escalation ladder, so this package
// generalizes to signal.Notify on a channel plus golang.org/x/sys/unix.Kill
// to reach the child's entire process group (the session leader's pid
// doubles as its process group id, since the orchestrator starts the child
// with Setsid).
package signalbridge

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Bridge forwards SIGINT/SIGTERM received by the wrapper to the child's
// process group, escalating on repeated signals:
//
//  1. forward SIGINT
//  2. forward SIGINT again
//  3. force-kill (SIGKILL)
//  4. exit the wrapper immediately, skipping cleanup
type Bridge struct {
	PID    int // child's pid, which is also its process group id
	Logger *slog.Logger

	// Exit is called on the 4th+ signal instead of completing cleanup.
	// Defaults to os.Exit(130). Overridable for tests.
	Exit func()

	ch    chan os.Signal
	done  chan struct{}
	once  sync.Once
	count int
	mu    sync.Mutex
}

// New returns a Bridge targeting the given child pid/pgid.
func New(pid int, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		PID:    pid,
		Logger: logger,
		ch:     make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
}

// Start installs the signal handler and begins forwarding in the
// background.
func (b *Bridge) Start() {
	signal.Notify(b.ch, syscall.SIGINT, syscall.SIGTERM)
	go b.run()
}

// Stop uninstalls the signal handler and waits for the background
// goroutine to exit.
func (b *Bridge) Stop() {
	signal.Stop(b.ch)
	b.once.Do(func() { close(b.ch) })
	<-b.done
}

func (b *Bridge) run() {
	defer close(b.done)
	for range b.ch {
		b.mu.Lock()
		b.count++
		n := b.count
		b.mu.Unlock()

		switch {
		case n <= 2:
			b.forward(syscall.SIGINT)
		case n == 3:
			b.forward(syscall.SIGKILL)
		default:
			b.exit()
			return
		}
	}
}

func (b *Bridge) forward(sig syscall.Signal) {
	if b.PID <= 0 {
		return
	}
	// Negative pid targets the whole process group, reaching every
	// descendant the child spawned within the same session.
	if err := unix.Kill(-b.PID, sig); err != nil {
		b.Logger.Warn("duct: signal forward failed", "signal", sig, "err", err)
	}
}

func (b *Bridge) exit() {
	if b.Exit != nil {
		b.Exit()
		return
	}
	os.Exit(130)
}
