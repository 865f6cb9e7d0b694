package ratelimit

import (
	"strings"
	"testing"
)

func TestCheckAllowsUnderLimit(t *testing.T) {
	c := New(3)

	for i := 0; i < 3; i++ {
		allowed, _ := c.Check()
		if !allowed {
			t.Fatalf("call %d: expected allowed", i)
		}
		c.Increment()
	}

	allowed, warning := c.Check()
	if allowed {
		t.Error("expected blocked at limit")
	}
	if warning == "" {
		t.Error("expected a warning string on rejection")
	}
}

func TestCheckHasNoSideEffects(t *testing.T) {
	c := New(10)

	for i := 0; i < 100; i++ {
		c.Check()
	}
	if got := c.Status().CallsMade; got != 0 {
		t.Errorf("expected 0 calls after checks only, got %d", got)
	}
}

func TestIncrementReflectedInStatus(t *testing.T) {
	c := New(100)

	for i := 0; i < 7; i++ {
		c.Increment()
	}
	st := c.Status()
	if st.CallsMade != 7 {
		t.Errorf("expected calls_made 7, got %d", st.CallsMade)
	}
	if st.Remaining != 93 {
		t.Errorf("expected remaining 93, got %d", st.Remaining)
	}
	if st.Status != "ok" {
		t.Errorf("expected status ok, got %q", st.Status)
	}
}

func TestStatusWarningAt80Percent(t *testing.T) {
	c := New(100)
	for i := 0; i < 80; i++ {
		c.Increment()
	}

	st := c.Status()
	if st.Status != "warning" {
		t.Errorf("expected warning at 80%%, got %q", st.Status)
	}

	allowed, warning := c.Check()
	if !allowed {
		t.Error("expected still allowed at 80%")
	}
	if !strings.Contains(warning, "approaching") {
		t.Errorf("expected approaching warning, got %q", warning)
	}
}

func TestStatusBlockedOverLimit(t *testing.T) {
	c := New(100)
	for i := 0; i < 101; i++ {
		c.Increment()
	}

	st := c.Status()
	if st.Status != "blocked" {
		t.Errorf("expected blocked, got %q", st.Status)
	}
	if st.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", st.Remaining)
	}
}

func TestDefaultLimit(t *testing.T) {
	c := New(0)
	if got := c.Status().Limit; got != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, got)
	}
}
