package scheduler

import (
	"errors"
	"testing"
)

func TestPoolRunsTask(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Close()

	f, ok := p.TrySubmit(func() (any, error) {
		return 42, nil
	})
	if !ok {
		t.Fatal("expected idle pool to accept the task")
	}

	v, err := f.Wait()
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	f, ok := p.TrySubmit(func() (any, error) {
		close(started)
		<-block
		return nil, nil
	})
	if !ok {
		t.Fatal("expected first task to be accepted")
	}
	<-started

	// The single worker is busy; the next submission must be rejected, not
	// queued.
	if _, ok := p.TrySubmit(func() (any, error) { return nil, nil }); ok {
		t.Error("expected saturated pool to reject the task")
	}

	close(block)
	if _, err := f.Wait(); err != nil {
		t.Fatalf("task failed: %v", err)
	}

	// The slot is released before the future completes, so capacity is
	// back by the time Wait returns.
	if _, ok := p.TrySubmit(func() (any, error) { return nil, nil }); !ok {
		t.Error("expected pool to accept work after the task finished")
	}
}

func TestPoolSubmitNowBypassesLimit(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	p.TrySubmit(func() (any, error) {
		close(started)
		<-block
		return nil, nil
	})
	<-started

	f := p.SubmitNow(func() (any, error) { return "now", nil })
	v, err := f.Wait()
	if err != nil {
		t.Fatalf("priority task failed: %v", err)
	}
	if v != "now" {
		t.Errorf("expected \"now\", got %v", v)
	}
	close(block)
}

func TestPoolTaskError(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Close()

	want := errors.New("boom")
	f, ok := p.TrySubmit(func() (any, error) { return nil, want })
	if !ok {
		t.Fatal("expected task to be accepted")
	}
	if _, err := f.Wait(); !errors.Is(err, want) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestPoolTaskPanicBecomesError(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Close()

	f, ok := p.TrySubmit(func() (any, error) { panic("oh no") })
	if !ok {
		t.Fatal("expected task to be accepted")
	}
	if _, err := f.Wait(); err == nil {
		t.Error("expected panic to surface as an error")
	}
}

func TestPoolRejectsAfterClose(t *testing.T) {
	p := NewPool(1, nil)
	p.Close()

	if _, ok := p.TrySubmit(func() (any, error) { return nil, nil }); ok {
		t.Error("expected closed pool to reject submissions")
	}
}

func TestCompletedFuture(t *testing.T) {
	f := Completed("done", nil)
	select {
	case <-f.Done():
	default:
		t.Fatal("expected completed future to be done")
	}
	v, err := f.Wait()
	if err != nil || v != "done" {
		t.Errorf("unexpected result %v, %v", v, err)
	}
}
