package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakePinger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("ping without deadline")
	}
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePinger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type transitions struct {
	mu     sync.Mutex
	states []bool
}

func (r *transitions) record(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, online)
}

func (r *transitions) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

func TestProbe_FiresOnTransitionsOnly(t *testing.T) {
	t.Parallel()

	p := &fakePinger{}
	m := NewMonitor(p, time.Hour, nopLogger{})
	var rec transitions
	m.OnChange(rec.record)
	ctx := context.Background()

	assert.False(t, m.IsOnline())

	assert.True(t, m.Probe(ctx))
	assert.True(t, m.Probe(ctx))
	assert.True(t, m.IsOnline())

	p.set(errors.New("down"))
	assert.False(t, m.Probe(ctx))
	assert.False(t, m.Probe(ctx))
	assert.False(t, m.IsOnline())

	p.set(nil)
	m.Probe(ctx)

	assert.Equal(t, []bool{true, false, true}, rec.get())
}

func TestProbe_OfflineAtStartDoesNotFire(t *testing.T) {
	t.Parallel()

	p := &fakePinger{err: errors.New("down")}
	m := NewMonitor(p, time.Hour, nopLogger{})
	var rec transitions
	m.OnChange(rec.record)

	m.Probe(context.Background())
	assert.Empty(t, rec.get())
}

func TestOnChange_Unregister(t *testing.T) {
	t.Parallel()

	p := &fakePinger{}
	m := NewMonitor(p, time.Hour, nopLogger{})
	var a, b transitions
	unregister := m.OnChange(a.record)
	m.OnChange(b.record)

	unregister()
	unregister()
	m.Probe(context.Background())

	assert.Empty(t, a.get())
	assert.Equal(t, []bool{true}, b.get())
}

func TestRun_ProbesImmediatelyAndPeriodically(t *testing.T) {
	t.Parallel()

	p := &fakePinger{}
	m := NewMonitor(p, 10*time.Millisecond, nopLogger{})
	var rec transitions
	m.OnChange(rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return p.count() >= 3 }, time.Second, 5*time.Millisecond)

	p.set(errors.New("down"))
	require.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []bool{true, false}, rec.get())
}

func TestWatch_WaitsForFirstTick(t *testing.T) {
	t.Parallel()

	p := &fakePinger{}
	m := NewMonitor(p, time.Hour, nopLogger{})
	require.True(t, m.Probe(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Watch(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, p.count(), "only the explicit probe pinged")
}
