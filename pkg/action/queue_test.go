package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/canopy/pkg/lifecycle"
)

func startedQueue(t *testing.T, capacity int) *Queue {
	t.Helper()
	q := NewQueue(capacity, nil)
	require.NoError(t, q.Start())
	t.Cleanup(func() {
		if q.Active() {
			_ = q.Stop()
		}
	})
	return q
}

func value(v int, delay time.Duration) Operation {
	return func(ctx context.Context, emit func(any)) error {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		emit(v)
		return nil
	}
}

func blocking(release <-chan struct{}) Operation {
	return func(ctx context.Context, emit func(any)) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestQueue_DeliversInPostOrder(t *testing.T) {
	q := startedQueue(t, DefaultCapacity)

	var mu sync.Mutex
	var got []int
	delays := []time.Duration{40 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond, 0}
	var proxies []*Proxy
	for i, d := range delays {
		p, err := q.Post(value(i+1, d))
		require.NoError(t, err)
		p.Subscribe(Observer{OnNext: func(item any) {
			mu.Lock()
			got = append(got, item.(int))
			mu.Unlock()
		}})
		proxies = append(proxies, p)
	}

	for _, p := range proxies {
		_, err := p.Wait(waitCtx(t))
		require.NoError(t, err)
	}
	// The last OnNext may still be draining after Done closes.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestQueue_CapacityExceeded(t *testing.T) {
	q := startedQueue(t, 4)

	release := make(chan struct{})
	_, err := q.Post(blocking(release))
	require.NoError(t, err)

	var accepted []*Proxy
	var rejected []error
	for i := 1; i <= 5; i++ {
		p, err := q.Post(value(i, 0))
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		accepted = append(accepted, p)
	}

	require.Len(t, accepted, 4)
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], ErrCannotExecute)
	assert.Equal(t, 4, q.Pending())

	close(release)
	for i, p := range accepted {
		v, err := First[int](waitCtx(t), p)
		require.NoError(t, err)
		assert.Equal(t, i+1, v)
	}
}

func TestQueue_PostWhileInactive(t *testing.T) {
	q := NewQueue(0, nil)
	assert.Equal(t, DefaultCapacity, q.Capacity())

	_, err := q.Post(value(1, 0))
	assert.ErrorIs(t, err, ErrCannotExecute)
	assert.Contains(t, err.Error(), "host inactive")
}

func TestQueue_StartStopMisuse(t *testing.T) {
	q := NewQueue(1, nil)
	assert.ErrorIs(t, q.Stop(), lifecycle.ErrLifecycle)
	require.NoError(t, q.Start())
	assert.ErrorIs(t, q.Start(), lifecycle.ErrLifecycle)
	require.NoError(t, q.Stop())
}

func TestQueue_StopFailsActiveAndPending(t *testing.T) {
	q := NewQueue(DefaultCapacity, nil)
	require.NoError(t, q.Start())

	release := make(chan struct{})
	defer close(release)
	active, err := q.Post(blocking(release))
	require.NoError(t, err)
	pending, err := q.Post(value(2, 0))
	require.NoError(t, err)

	var doneErr error
	var doneWG sync.WaitGroup
	doneWG.Add(1)
	pending.Subscribe(Observer{OnDone: func(err error) {
		doneErr = err
		doneWG.Done()
	}})

	require.NoError(t, q.Stop())

	_, err = active.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrPrematureTermination)
	_, err = pending.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrCannotExecute)

	doneWG.Wait()
	assert.ErrorIs(t, doneErr, ErrCannotExecute)
	assert.Equal(t, 0, q.Pending())
	assert.False(t, q.Running())

	_, err = q.Post(value(3, 0))
	assert.ErrorIs(t, err, ErrCannotExecute)
}

func TestProxy_SharesResultWithoutReexecution(t *testing.T) {
	q := startedQueue(t, DefaultCapacity)

	var runs int
	var runsMu sync.Mutex
	release := make(chan struct{})
	p, err := q.Post(func(ctx context.Context, emit func(any)) error {
		runsMu.Lock()
		runs++
		runsMu.Unlock()
		emit("first")
		<-release
		emit("second")
		return nil
	})
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string][]any{}
	record := func(name string) Observer {
		return Observer{OnNext: func(item any) {
			mu.Lock()
			seen[name] = append(seen[name], item)
			mu.Unlock()
		}}
	}
	p.Subscribe(record("a"))
	p.Subscribe(record("b"))
	close(release)

	_, err = p.Wait(waitCtx(t))
	require.NoError(t, err)

	late := make(chan []any, 1)
	var lateItems []any
	p.Subscribe(Observer{
		OnNext: func(item any) { lateItems = append(lateItems, item) },
		OnDone: func(err error) { late <- lateItems },
	})

	assert.Equal(t, []any{"first", "second"}, <-late)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen["a"]) == 2 && len(seen["b"]) == 2
	}, time.Second, 5*time.Millisecond)
	runsMu.Lock()
	assert.Equal(t, 1, runs)
	runsMu.Unlock()
}

func TestProxy_LastObserverCancels(t *testing.T) {
	q := startedQueue(t, DefaultCapacity)

	release := make(chan struct{})
	defer close(release)
	p, err := q.Post(blocking(release))
	require.NoError(t, err)
	next, err := q.Post(value(7, 0))
	require.NoError(t, err)

	s1 := p.Subscribe(Observer{})
	s2 := p.Subscribe(Observer{})

	s1.Cancel()
	select {
	case <-p.Done():
		t.Fatal("operation cancelled while another observer remained")
	case <-time.After(20 * time.Millisecond):
	}

	s2.Cancel()
	_, err = p.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.True(t, p.Cancelled())

	// The freed slot runs the next operation.
	v, err := First[int](waitCtx(t), next)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	// Late observers complete instead of hanging.
	done := make(chan error, 1)
	p.Subscribe(Observer{OnDone: func(err error) { done <- err }})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("late observer never completed")
	}
}

func TestProxy_CancelPending(t *testing.T) {
	q := startedQueue(t, DefaultCapacity)

	release := make(chan struct{})
	first, err := q.Post(blocking(release))
	require.NoError(t, err)
	second, err := q.Post(value(2, 0))
	require.NoError(t, err)
	require.Equal(t, 1, q.Pending())

	second.Cancel()
	assert.Equal(t, 0, q.Pending())
	assert.True(t, second.Cancelled())

	close(release)
	_, err = first.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Empty(t, second.Items())
}

func TestProxy_ErrorsAndPanicsReachObservers(t *testing.T) {
	q := startedQueue(t, DefaultCapacity)
	boom := errors.New("boom")

	failing, err := q.Post(func(context.Context, func(any)) error { return boom })
	require.NoError(t, err)
	panicking, err := q.Post(func(context.Context, func(any)) error { panic("bad") })
	require.NoError(t, err)
	after, err := q.Post(value(3, 0))
	require.NoError(t, err)

	_, err = failing.Wait(waitCtx(t))
	assert.ErrorIs(t, err, boom)
	_, err = panicking.Wait(waitCtx(t))
	assert.ErrorContains(t, err, "panicked")

	v, err := First[int](waitCtx(t), after)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
