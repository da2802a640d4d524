package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers commands by their program name.
type fakeExecutor struct {
	mu      sync.Mutex
	outputs map[string]Output
	errs    map[string]error
	gate    chan struct{}
	calls   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{outputs: map[string]Output{}, errs: map[string]error{}}
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd Command) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd.Args[0])
	out, err, gate := f.outputs[cmd.Args[0]], f.errs[cmd.Args[0]], f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}
	return out, err
}

func (f *fakeExecutor) set(name, stdout string, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[name] = Output{Stdout: []byte(stdout), ExitCode: exitCode}
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// collect reads updates until the cycle settles in Ready or Failed.
func collect(t *testing.T, c *Controller) []Update {
	t.Helper()
	var got []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u := <-c.Updates():
			got = append(got, u)
			if u.State == Ready || u.State == Failed {
				return got
			}
		case <-timeout:
			t.Fatalf("cycle did not finish, updates so far: %v", got)
		}
	}
}

func states(updates []Update) []State {
	var out []State
	for _, u := range updates {
		out = append(out, u.State)
	}
	return out
}

const flatTAP = "TAP version 14\n1..3\nok 1 - a\nnot ok 2 - b\nnot ok 3 - c\n"

func TestController_TestOnly(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("tests", flatTAP, 1)
	c := NewController(fx, nil, Command{Args: []string{"tests"}})

	require.Equal(t, Idle, c.State())
	require.True(t, c.Launch(context.Background()))

	updates := collect(t, c)
	assert.Equal(t, []State{Running, Parsing, Ready}, states(updates))

	res := updates[len(updates)-1].Results
	require.NotNil(t, res)
	assert.Equal(t, 1, res.ExitCode, "non-zero test exit is still a ready run")
	assert.Len(t, res.Tree.Children(), 3)
	assert.Len(t, res.Failures, 2)
	assert.Same(t, res, c.Current())
	assert.Equal(t, Ready, c.State())
}

func TestController_WithBuild(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("make", "", 0)
	fx.set("tests", flatTAP, 0)
	build := Command{Args: []string{"make"}}
	c := NewController(fx, &build, Command{Args: []string{"tests"}})

	require.True(t, c.Launch(context.Background()))
	updates := collect(t, c)
	assert.Equal(t, []State{Building, Running, Parsing, Ready}, states(updates))
	assert.Equal(t, 2, fx.callCount())
}

func TestController_BuildFailedKeepsPreviousResults(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("make", "", 0)
	fx.set("tests", flatTAP, 0)
	build := Command{Args: []string{"make"}}
	c := NewController(fx, &build, Command{Args: []string{"tests"}})

	require.True(t, c.Launch(context.Background()))
	first := collect(t, c)
	prev := first[len(first)-1].Results
	require.NotNil(t, prev)
	require.Equal(t, Ready, c.State())

	fx.mu.Lock()
	fx.outputs["make"] = Output{Stderr: []byte("main.go:3: syntax error"), ExitCode: 2}
	fx.mu.Unlock()

	require.True(t, c.Launch(context.Background()))
	second := collect(t, c)
	last := second[len(second)-1]
	assert.Equal(t, Failed, last.State)
	assert.True(t, errors.Is(last.Err, ErrBuildFailed))
	var buildErr *BuildError
	require.ErrorAs(t, last.Err, &buildErr)
	assert.Equal(t, 2, buildErr.ExitCode)
	assert.Contains(t, buildErr.Stderr, "syntax error")

	assert.True(t, last.Stale)
	assert.Same(t, prev, last.Results)
	assert.Same(t, prev, c.Current())
	assert.Equal(t, 3, fx.callCount(), "tests must not run after a failed build")
}

func TestController_SpawnError(t *testing.T) {
	fx := newFakeExecutor()
	fx.errs["missing"] = errors.New("executable file not found in $PATH")
	c := NewController(fx, nil, Command{Args: []string{"missing", "--flag"}})

	require.True(t, c.Launch(context.Background()))
	updates := collect(t, c)
	last := updates[len(updates)-1]
	assert.Equal(t, Failed, last.State)
	var spawnErr *SpawnError
	require.ErrorAs(t, last.Err, &spawnErr)
	assert.Equal(t, "test", spawnErr.Stage)
	assert.Equal(t, "missing --flag", spawnErr.Command)
	assert.False(t, last.Stale, "nothing was displayed before")
	assert.Nil(t, c.Current())
}

func TestController_EncodingError(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("tests", "ok 1\n\xff\n", 0)
	c := NewController(fx, nil, Command{Args: []string{"tests"}})

	require.True(t, c.Launch(context.Background()))
	updates := collect(t, c)
	last := updates[len(updates)-1]
	assert.Equal(t, Failed, last.State)
	assert.Equal(t, []State{Running, Parsing, Failed}, states(updates))
	assert.Nil(t, c.Current())
}

func TestController_LaunchWhileBusyIsDropped(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("tests", flatTAP, 0)
	fx.gate = make(chan struct{})
	c := NewController(fx, nil, Command{Args: []string{"tests"}})

	require.True(t, c.Launch(context.Background()))
	u := <-c.Updates()
	require.Equal(t, Running, u.State)

	assert.False(t, c.Launch(context.Background()))
	assert.False(t, c.Launch(context.Background()))

	close(fx.gate)
	rest := collect(t, c)
	assert.Equal(t, []State{Parsing, Ready}, states(rest))
	assert.Equal(t, 1, fx.callCount())

	require.Equal(t, Ready, c.State())
	assert.True(t, c.Launch(context.Background()), "ready accepts a relaunch")
	collect(t, c)
}

func TestController_RelaunchRightAfterSettling(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("tests", flatTAP, 0)
	fx.set("make", "", 1)
	build := Command{Args: []string{"make"}}

	tests := []struct {
		name  string
		build *Command
		want  State
	}{
		{"ready", nil, Ready},
		{"failed", &build, Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(fx, tt.build, Command{Args: []string{"tests"}})
			for i := 0; i < 200; i++ {
				require.True(t, c.Launch(context.Background()), "launch %d", i)
				updates := collect(t, c)
				require.Equal(t, tt.want, updates[len(updates)-1].State)
			}
		})
	}
}

func TestController_RelaunchReplacesResults(t *testing.T) {
	fx := newFakeExecutor()
	fx.set("tests", flatTAP, 1)
	c := NewController(fx, nil, Command{Args: []string{"tests"}})

	require.True(t, c.Launch(context.Background()))
	first := collect(t, c)
	require.Equal(t, Ready, c.State())

	fx.set("tests", "1..1\nok 1 - fixed\n", 0)
	require.True(t, c.Launch(context.Background()))
	second := collect(t, c)

	old, cur := first[len(first)-1].Results, second[len(second)-1].Results
	assert.NotSame(t, old, cur)
	assert.Len(t, old.Failures, 2, "published results are never modified")
	assert.Empty(t, cur.Failures)
	assert.Same(t, cur, c.Current())
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand(`cargo test -- --format "tap output"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"cargo", "test", "--", "--format", "tap output"}, cmd.Args)
	assert.Equal(t, `cargo test -- --format 'tap output'`, cmd.String())

	_, err = ParseCommand("   ")
	assert.Error(t, err)
	_, err = ParseCommand(`echo "unterminated`)
	assert.Error(t, err)
}
