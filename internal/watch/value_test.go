package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoadReturnsInitial(t *testing.T) {
	v := New("hello")
	got, ver := v.Load()
	if got != "hello" || ver != 1 {
		t.Errorf("expected hello@1, got %s@%d", got, ver)
	}
}

func TestWaitReturnsImmediatelyWhenNewer(t *testing.T) {
	v := New(1)
	got, ver, err := v.Wait(context.Background(), 0)
	if err != nil || got != 1 || ver != 1 {
		t.Errorf("unexpected wait result %d %d %v", got, ver, err)
	}
}

func TestPublishOverwrites(t *testing.T) {
	v := New(0)
	v.Publish(1)
	v.Publish(2)
	v.Publish(3)

	got, ver, err := v.Wait(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 || ver != 4 {
		t.Errorf("slow reader should see only the newest value, got %d@%d", got, ver)
	}
}

func TestWaitWakesOnPublish(t *testing.T) {
	v := New(0)
	_, seen := v.Load()

	done := make(chan int, 1)
	go func() {
		got, _, err := v.Wait(context.Background(), seen)
		if err != nil {
			done <- -1
			return
		}
		done <- got
	}()

	time.Sleep(10 * time.Millisecond)
	v.Publish(42)
	select {
	case got := <-done:
		if got != 42 {
			t.Errorf("expected 42, got %d", got)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestWaitManyReaders(t *testing.T) {
	v := New(0)
	_, seen := v.Load()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := v.Wait(context.Background(), seen); err != nil {
				errs <- err
			}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	v.Publish(1)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("reader failed: %v", err)
	}
}

func TestWaitContextCancel(t *testing.T) {
	v := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, _, err := v.Wait(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	v := New(0)
	done := make(chan error, 1)
	go func() {
		_, _, err := v.Wait(context.Background(), 1)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	v.Close()
	v.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not wake waiter")
	}

	v.Publish(5)
	if got, _ := v.Load(); got != 0 {
		t.Errorf("publish after close should be ignored, got %d", got)
	}
}
