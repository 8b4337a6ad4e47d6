package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	for i := 0; i < 10; i++ {
		err := cb.Call(func() error { return nil })
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected state closed, got %v", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errors.New("boom") })
	}

	if cb.State() != StateOpen {
		t.Errorf("Expected state open after 3 failures, got %v", cb.State())
	}

	err := cb.Call(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen while open, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)

	cb.Call(func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatalf("Expected state open, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// First call after the reset timeout is allowed as a probe
	err := cb.Call(func() error { return nil })
	if err != nil {
		t.Errorf("Expected probe call to be allowed, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("Expected state half-open after first probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)

	cb.Call(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("Probe call %d failed: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected state closed after successful probes, got %v", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)

	cb.Call(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	cb.Call(func() error { return errors.New("still broken") })

	if cb.State() != StateOpen {
		t.Errorf("Expected state open after half-open failure, got %v", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Hour)

	cb.Call(func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatalf("Expected state open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Expected state closed after reset, got %v", cb.State())
	}
}
