package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"tapr/internal/tap"
)

// State is a step of the run cycle
type State int

const (
	Idle State = iota
	Building
	Running
	Parsing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Running:
		return "running"
	case Parsing:
		return "parsing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Busy reports whether a cycle is in flight in this state
func (s State) Busy() bool {
	return s == Building || s == Running || s == Parsing
}

// stderrTail bounds how much of a process's stderr is kept for display.
const stderrTail = 4096

// Results is one finished run. It is never modified once published.
type Results struct {
	Tree       *tap.Tree
	Failures   []tap.Failure
	Command    string
	ExitCode   int
	Stderr     string
	Duration   time.Duration
	FinishedAt time.Time
}

// Update reports a state transition. Results is the latest published run,
// which on failure is the previous one and is marked Stale.
type Update struct {
	State   State
	Results *Results
	Err     error
	Stale   bool
}

// Controller drives the build, test, parse cycle. At most one cycle is in
// flight; launches while busy are dropped.
type Controller struct {
	executor Executor
	build    *Command
	test     Command
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	// pub orders the updates of back to back cycles.
	pub sync.Mutex

	current atomic.Pointer[Results]
	updates chan Update
}

// NewController creates a new Controller. build may be nil.
func NewController(executor Executor, build *Command, test Command) *Controller {
	return &Controller{
		executor: executor,
		build:    build,
		test:     test,
		logger:   slog.Default(),
		updates:  make(chan Update, 8),
	}
}

// SetLogger sets the logger used for cycle transitions
func (c *Controller) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Updates returns the channel every transition is reported on. It has a
// single reader.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Current returns the latest successfully parsed run, or nil.
func (c *Controller) Current() *Results {
	return c.current.Load()
}

// State returns the current state of the cycle
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Launch starts a cycle in the background. It returns false without doing
// anything when a cycle is already in flight.
func (c *Controller) Launch(ctx context.Context) bool {
	c.mu.Lock()
	if state := c.state; state.Busy() {
		c.mu.Unlock()
		c.logger.Debug("launch ignored", "state", state)
		return false
	}
	first := Running
	if c.build != nil {
		first = Building
	}
	c.state = first
	c.mu.Unlock()

	go c.cycle(ctx, first)
	return true
}

func (c *Controller) cycle(ctx context.Context, first State) {
	start := time.Now()
	c.logger.Info("cycle started", "state", first, "command", c.test.String())
	c.publish(ctx, Update{State: first, Results: c.Current()})

	if c.build != nil {
		out, err := c.executor.Execute(ctx, *c.build)
		if err != nil {
			c.fail(ctx, &SpawnError{Stage: "build", Command: c.build.String(), Err: err})
			return
		}
		if out.ExitCode != 0 {
			c.fail(ctx, &BuildError{ExitCode: out.ExitCode, Stderr: tail(out.Stderr)})
			return
		}
		c.enter(ctx, Running)
	}

	out, err := c.executor.Execute(ctx, c.test)
	if err != nil {
		c.fail(ctx, &SpawnError{Stage: "test", Command: c.test.String(), Err: err})
		return
	}

	c.enter(ctx, Parsing)
	tree, err := tap.ParseBytes(out.Stdout)
	if err != nil {
		c.fail(ctx, fmt.Errorf("parse test output: %w", err))
		return
	}

	res := &Results{
		Tree:       tree,
		Failures:   tap.IndexFailures(tree),
		Command:    c.test.String(),
		ExitCode:   out.ExitCode,
		Stderr:     tail(out.Stderr),
		Duration:   time.Since(start),
		FinishedAt: time.Now(),
	}
	c.current.Store(res)
	c.logger.Info("cycle finished", "exit_code", res.ExitCode, "failures", len(res.Failures),
		"anomalies", len(tree.Anomalies()), "duration", res.Duration)

	c.publish(ctx, Update{State: Ready, Results: res})
}

func (c *Controller) enter(ctx context.Context, s State) {
	c.publish(ctx, Update{State: s, Results: c.Current()})
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.logger.Error("cycle failed", "error", err)
	prev := c.Current()
	c.publish(ctx, Update{State: Failed, Results: prev, Err: err, Stale: prev != nil})
}

// publish enters u.State before reporting it, so a reader that sees Ready or
// Failed can launch again right away.
func (c *Controller) publish(ctx context.Context, u Update) {
	c.pub.Lock()
	defer c.pub.Unlock()
	c.setState(u.State)
	c.send(ctx, u)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) send(ctx context.Context, u Update) {
	select {
	case c.updates <- u:
	case <-ctx.Done():
	}
}

func tail(b []byte) string {
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
		for len(b) > 0 && !utf8.RuneStart(b[0]) {
			b = b[1:]
		}
	}
	return strings.TrimSpace(string(b))
}
