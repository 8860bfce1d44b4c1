package lane

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLane_RunsInPostOrder(t *testing.T) {
	l := New("test", nil)
	defer l.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestLane_ReentrantPost(t *testing.T) {
	l := New("test", nil)
	defer l.Close()

	var order []string
	l.Post(func() {
		order = append(order, "outer")
		l.Post(func() { order = append(order, "inner") })
		order = append(order, "outer-end")
	})
	if err := l.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	// The inner task was posted before the flush marker ran.
	if err := l.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"outer", "outer-end", "inner"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestLane_SurvivesPanic(t *testing.T) {
	l := New("test", nil)
	defer l.Close()

	l.Post(func() { panic("boom") })
	ran := false
	l.Post(func() { ran = true })
	if err := l.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("task after panic did not run")
	}
}

func TestLane_Close(t *testing.T) {
	l := New("test", nil)

	ran := false
	l.Post(func() { ran = true })
	l.Close()
	l.Close()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lane did not finish after Close")
	}
	if !ran {
		t.Error("task posted before Close did not run")
	}
	if l.Post(func() {}) {
		t.Error("Post() after Close = true, want false")
	}
	if err := l.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush() after Close error = %v, want ErrClosed", err)
	}
}

func TestLane_DoHonoursContext(t *testing.T) {
	l := New("test", nil)
	defer l.Close()

	release := make(chan struct{})
	l.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want DeadlineExceeded", err)
	}
}
