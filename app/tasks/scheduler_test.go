package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	calls    int32
	failures int32 // fail the first N calls
}

func (r *countingRunner) Generate(ctx context.Context) error {
	n := atomic.AddInt32(&r.calls, 1)
	if n <= atomic.LoadInt32(&r.failures) {
		return fmt.Errorf("generation failed")
	}
	return nil
}

func waitForCalls(t *testing.T, runner *countingRunner, expected int32) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if atomic.LoadInt32(&runner.calls) >= expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Expected %d runner calls, got %d", expected, atomic.LoadInt32(&runner.calls))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_Start_RunsStartupTask(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour)

	s.Start()
	defer s.Stop()

	waitForCalls(t, runner, 1)
}

func TestScheduler_Start_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 50*time.Millisecond)

	s.Start()
	defer s.Stop()

	// Startup task plus at least one tick.
	waitForCalls(t, runner, 2)
}

func TestScheduler_EnqueueTask(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour)

	s.Start()
	defer s.Stop()

	waitForCalls(t, runner, 1)

	if err := s.EnqueueTask(NewGenerateDigestTask(runner)); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	waitForCalls(t, runner, 2)
}

func TestScheduler_EnqueueTask_AfterStop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour)

	s.Start()
	s.Stop()

	if err := s.EnqueueTask(NewGenerateDigestTask(runner)); err == nil {
		t.Errorf("Expected error enqueueing after stop")
	}
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	runner := &countingRunner{failures: 1}
	s := NewScheduler(runner, time.Hour)

	s.Start()
	defer s.Stop()

	// The startup task fails once, then the retry succeeds.
	waitForCalls(t, runner, 2)
}

func TestTask_CanRetry(t *testing.T) {
	task := NewTask(TaskTypeGenerateDigest)

	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected default max retries %d, got %d", DefaultMaxRetries, task.MaxRetries)
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected CanRetry at retry count %d", task.RetryCount)
		}
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Errorf("Expected CanRetry false after %d retries", task.RetryCount)
	}
}

func TestGenerateDigestTask_Execute_CancelledContext(t *testing.T) {
	runner := &countingRunner{}
	task := NewGenerateDigestTask(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); err == nil {
		t.Errorf("Expected error for cancelled context")
	}
	if atomic.LoadInt32(&runner.calls) != 0 {
		t.Errorf("Expected the runner not to be invoked after cancellation")
	}
}
