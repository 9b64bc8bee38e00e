package infra

import (
	"errors"
	"testing"
	"time"
)

func testBreaker(failures, successes int, cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Cooldown:         cooldown,
	})
}

func TestCircuitBreaker_AllowInClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("rpc"))

	if !cb.Allow() {
		t.Error("Expected Allow() to return true in CLOSED state")
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state CLOSED, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := testBreaker(3, 2, 100*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Error("Should still be CLOSED after 2 failures")
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	cb := testBreaker(2, 2, 20*time.Millisecond)
	cb.RecordFailure()
	cb.RecordFailure()

	time.Sleep(30 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("Expected probe to be allowed after cooldown")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HALF_OPEN, got %s", cb.GetState())
	}

	cb.RecordSuccess()
	if cb.GetState() != StateHalfOpen {
		t.Error("Should still be HALF_OPEN after 1 success")
	}
	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after 2 successes, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := testBreaker(1, 1, 10*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	cb.Allow()

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after failed probe, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Error("cooldown should restart after a failed probe")
	}
}

func TestCircuitBreaker_Do(t *testing.T) {
	boom := errors.New("boom")
	notFound := errors.New("not found")
	countable := func(err error) bool { return !errors.Is(err, notFound) }

	cb := testBreaker(2, 1, time.Hour)

	for i := 0; i < 5; i++ {
		if err := cb.Do(func() error { return notFound }, countable); !errors.Is(err, notFound) {
			t.Fatalf("got %v", err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Fatal("uncountable errors must not open the breaker")
	}

	cb.Do(func() error { return boom }, countable)
	cb.Do(func() error { return boom }, countable)

	called := false
	err := cb.Do(func() error {
		called = true
		return nil
	}, countable)
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker: err=%v called=%v", err, called)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("rpc"))
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	if cb.GetState() != StateOpen {
		t.Fatal("Expected OPEN state")
	}

	cb.Reset()

	if cb.GetState() != StateClosed || !cb.Allow() {
		t.Errorf("Expected CLOSED after Reset, got %s", cb.GetState())
	}
}
