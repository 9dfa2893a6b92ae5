package agent

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
)

func TestWatchTransparent(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	add := func(x, y int) int { return x + y }
	wrapped, ok := a.Watch(add).(func(x, y int) int)
	require.True(t, ok, "the wrapper keeps the original signature")

	assert.Equal(t, 5, wrapped(2, 3))
}

func TestWatchIdempotent(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	f := func() {}
	w1 := a.Watch(f)
	w2 := a.Watch(f)
	assert.Equal(t, funcID(w1), funcID(w2),
		"re-watching the original returns the cached wrapper")

	w3 := a.Watch(w1)
	assert.Equal(t, funcID(w1), funcID(w3),
		"watching a wrapper never double-wraps")
}

func TestWatchDistinguishesClosureInstances(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	mk := func(n int) func() int { return func() int { return n } }
	f1, f2 := mk(1), mk(2)

	w1 := a.Watch(f1).(func() int)
	w2 := a.Watch(f2).(func() int)

	// Closures from one constructor share a code pointer but not state;
	// each instance must get its own wrapper over its own captured value.
	assert.Equal(t, 1, w1())
	assert.Equal(t, 2, w2())
	assert.NotEqual(t, funcID(w1), funcID(w2))

	assert.Equal(t, funcID(w1), funcID(a.Watch(f1)),
		"re-watching an instance hits its own cache entry")
	assert.Equal(t, funcID(w2), funcID(a.Watch(f2)))
}

func TestWatchNonCallableUnchanged(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	assert.Equal(t, "not a func", a.Watch("not a func"))
	assert.Nil(t, a.Watch(nil))

	var nilFn func()
	assert.Nil(t, a.Watch(nilFn))
}

func TestWatchVariadic(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	join, ok := a.Watch(fmt.Sprint).(func(...any) string)
	require.True(t, ok)
	assert.Equal(t, "a1b", join("a", 1, "b"))
}

func TestWatchReportsAndRethrowsPanic(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, nil)

	boom := a.Watch(func() { panic("kaboom") }).(func())

	assert.PanicsWithValue(t, "kaboom", boom,
		"the identical panic value reaches downstream recovery")

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, domain.KindCatch, payloads[0].EntryKind)
	assert.Equal(t, "kaboom", payloads[0].Error.Message)
}

func TestWatchAttachesBindStack(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.BindStack = true
	})

	boom := a.Watch(func() { panic("with context") }).(func())
	assert.Panics(t, func() { boom() })

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.NotEmpty(t, payloads[0].Error.BindStack)
	assert.False(t, payloads[0].Error.BindTime.IsZero())
}

func TestWatchCapturesReturnedErrors(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.CaptureReturnedErrors = true
	})

	failing := a.Watch(func() (string, error) {
		return "", errors.New("lookup failed")
	}).(func() (string, error))

	_, err := failing()
	require.Error(t, err)
	assert.Equal(t, "lookup failed", err.Error(), "the error still reaches the caller")

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, domain.KindCatch, payloads[0].EntryKind)
	assert.Equal(t, "lookup failed", payloads[0].Error.Message)
}

func TestWatchReturnedNilErrorIgnored(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.CaptureReturnedErrors = true
	})

	fine := a.Watch(func() error { return nil }).(func() error)
	require.NoError(t, fine())

	require.True(t, a.Flush(time.Second))
	assert.Empty(t, fs.payloads())
}

func TestWatchAllMap(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	handlers := map[string]any{
		"create": func() {},
		"delete": func() {},
		"config": "not callable",
	}
	createBefore := funcID(handlers["create"])
	deleteBefore := funcID(handlers["delete"])

	a.WatchAll(handlers, "delete")

	assert.Equal(t, deleteBefore, funcID(handlers["delete"]), "excluded members are skipped")
	assert.NotEqual(t, createBefore, funcID(handlers["create"]))
	assert.Equal(t, "not callable", handlers["config"])

	// The kept members are now cached wrappers.
	assert.Equal(t, funcID(handlers["create"]), funcID(a.Watch(handlers["create"])))
}

func TestWatchAllStructPointer(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	type callbacks struct {
		OnSave   func() int
		OnClose  func()
		Name     string
		disabled func()
	}
	c := &callbacks{
		OnSave:  func() int { return 7 },
		OnClose: func() {},
		Name:    "editor",
	}
	before := funcID(c.OnSave)

	out := a.WatchAll(c, "OnClose")
	assert.Same(t, c, out)

	assert.NotEqual(t, before, funcID(c.OnSave))
	assert.Equal(t, 7, c.OnSave(), "wrapped field still behaves like the original")
	assert.Equal(t, "editor", c.Name)
	assert.Nil(t, c.disabled)
}

func TestWatchAllNonContainerUnchanged(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	assert.Equal(t, 42, a.WatchAll(42))
	assert.Nil(t, a.WatchAll(nil))
}

func TestGoRunsFunction(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	done := make(chan struct{})
	a.Go(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}
}
