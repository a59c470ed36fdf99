package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDispatcher_SameKeyNeverOverlaps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(4, zerolog.Nop())
	d.Start(ctx)

	var running, maxRunning, total int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Do(ctx, "event-1", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&total, 1)
				atomic.AddInt32(&running, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if total != 50 {
		t.Fatalf("expected 50 runs, got %d", total)
	}
	if maxRunning != 1 {
		t.Fatalf("writes to one key overlapped: max concurrency %d", maxRunning)
	}
}

func TestDispatcher_ReturnsFunctionError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(2, zerolog.Nop())
	d.Start(ctx)

	boom := errors.New("boom")
	if err := d.Do(ctx, "k", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(1, zerolog.Nop())
	d.Start(ctx)

	if err := d.Do(ctx, "k", func(context.Context) error { panic("bad") }); err == nil {
		t.Fatal("expected an error from a panicking write")
	}
	if err := d.Do(ctx, "k", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("worker must survive a panic: %v", err)
	}
}

func TestDispatcher_StoppedRejectsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(1, zerolog.Nop())
	d.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		err := d.Do(context.Background(), "k", func(context.Context) error { return nil })
		if errors.Is(err, ErrStopped) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected ErrStopped after shutdown, got %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcher_QueuedCallerHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(1, zerolog.Nop())
	d.Start(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	busy := make(chan error, 1)
	go func() {
		busy <- d.Do(ctx, "event-a", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var ran atomic.Bool
	reqCtx, reqCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer reqCancel()
	begin := time.Now()
	err := d.Do(reqCtx, "event-b", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if waited := time.Since(begin); waited > time.Second {
		t.Fatalf("Do waited %v past the caller deadline", waited)
	}

	close(release)
	if err := <-busy; err != nil {
		t.Fatalf("busy job: %v", err)
	}
	// Jobs on one worker run in order, so this one runs after the expired job was handled.
	if err := d.Do(ctx, "event-b", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Do after release: %v", err)
	}
	if ran.Load() {
		t.Fatal("job whose caller gave up must not run")
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, zerolog.Nop())
	first := d.shardIndex("665f1c2e9b1d4a0012345678")
	for range 10 {
		if got := d.shardIndex("665f1c2e9b1d4a0012345678"); got != first {
			t.Fatalf("shard index changed: %d vs %d", got, first)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}

func TestInline_RunsOnCaller(t *testing.T) {
	called := false
	err := Inline{}.Do(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("inline Do: called=%v err=%v", called, err)
	}
}
