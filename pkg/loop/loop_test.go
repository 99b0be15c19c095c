package loop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRunPendingFIFO(t *testing.T) {
	l := New()
	var got []int
	for i := 1; i <= 3; i++ {
		l.Post(func() { got = append(got, i) })
	}
	if n := l.RunPending(); n != 3 {
		t.Fatalf("RunPending = %d, want 3", n)
	}
	for i, v := range got {
		if v != i+1 {
			t.Errorf("got[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestRunPendingDefersNestedPosts(t *testing.T) {
	l := New()
	ran := 0
	l.Post(func() {
		l.Post(func() { ran++ })
	})
	l.RunPending()
	if ran != 0 {
		t.Errorf("nested task ran in same pass")
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
	if n := l.Drain(); n != 1 || ran != 1 {
		t.Errorf("Drain = %d ran = %d", n, ran)
	}
}

func TestPostFromOtherGoroutines(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() {})
		}()
	}
	wg.Wait()
	if n := l.Drain(); n != 50 {
		t.Errorf("Drain = %d, want 50", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted task did not run")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCloseDropsTasks(t *testing.T) {
	l := New()
	l.Post(func() { t.Error("task ran after Close") })
	l.Close()
	l.Post(func() { t.Error("task ran after Close") })
	if n := l.RunPending(); n != 0 {
		t.Errorf("RunPending = %d, want 0", n)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Errorf("Run on closed loop = %v", err)
	}
}

func TestImmediateAndFunc(t *testing.T) {
	ran := false
	Immediate{}.Post(func() { ran = true })
	if !ran {
		t.Error("Immediate did not run task")
	}
	var got func()
	PosterFunc(func(fn func()) { got = fn }).Post(func() {})
	if got == nil {
		t.Error("PosterFunc did not receive task")
	}
}
