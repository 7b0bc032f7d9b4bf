package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransientPermanentClassification(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantPermanent bool
	}{
		{
			name:          "transient wrapper",
			err:           Transient(base),
			wantTransient: true,
			wantPermanent: false,
		},
		{
			name:          "permanent wrapper",
			err:           Permanent(base),
			wantTransient: false,
			wantPermanent: true,
		},
		{
			name:          "unclassified error",
			err:           base,
			wantTransient: false,
			wantPermanent: false,
		},
		{
			name:          "transient under fmt wrapping",
			err:           fmt.Errorf("outer: %w", Transient(base)),
			wantTransient: true,
			wantPermanent: false,
		},
		{
			name:          "transient under subscription context",
			err:           WrapSubscriptionError("sub-1", Transient(base)),
			wantTransient: true,
			wantPermanent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.wantTransient)
			}
			if got := IsPermanent(tt.err); got != tt.wantPermanent {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.wantPermanent)
			}
		})
	}
}

func TestTransientNilStaysNil(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestSentinelHelpers(t *testing.T) {
	if !IsCircuitOpen(fmt.Errorf("guard: %w", ErrCircuitOpen)) {
		t.Error("IsCircuitOpen should unwrap wrapped sentinel")
	}
	if IsCircuitOpen(errors.New("other")) {
		t.Error("IsCircuitOpen should be false for unrelated errors")
	}
	if !IsRunTimeout(WrapSubscriptionError("sub-2", ErrRunTimeout)) {
		t.Error("IsRunTimeout should see through SubscriptionError")
	}
}

func TestSubscriptionError(t *testing.T) {
	base := errors.New("list failed")
	err := WrapSubscriptionError("prod-sub", base)

	if !strings.Contains(err.Error(), "prod-sub") {
		t.Errorf("error message should contain subscription id, got %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should match with errors.Is")
	}

	var subErr *SubscriptionError
	if !errors.As(err, &subErr) {
		t.Fatal("errors.As should find SubscriptionError")
	}
	if subErr.SubscriptionID != "prod-sub" {
		t.Errorf("SubscriptionID = %q, want %q", subErr.SubscriptionID, "prod-sub")
	}

	if WrapSubscriptionError("x", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError("maxWorkers", 0, "must be at least 1")

	if !IsPrecondition(err) {
		t.Error("IsPrecondition should be true")
	}
	if IsPrecondition(errors.New("plain")) {
		t.Error("IsPrecondition should be false for plain errors")
	}
	if !strings.Contains(err.Error(), "maxWorkers") {
		t.Errorf("message should name the field, got %q", err.Error())
	}
}

func TestMultiError(t *testing.T) {
	t.Run("empty is nil", func(t *testing.T) {
		m := &MultiError{}
		if m.ErrorOrNil() != nil {
			t.Error("empty MultiError should be nil")
		}
	})

	t.Run("single error message", func(t *testing.T) {
		m := NewMultiError([]error{errors.New("only")})
		if m.Error() != "only" {
			t.Errorf("single-error message = %q", m.Error())
		}
	})

	t.Run("nil errors filtered", func(t *testing.T) {
		m := NewMultiError([]error{nil, errors.New("a"), nil})
		if len(m.Errors) != 1 {
			t.Errorf("expected 1 error, got %d", len(m.Errors))
		}
	})

	t.Run("errors.Is through multi", func(t *testing.T) {
		err := CombineErrors(errors.New("a"), ErrThrottled)
		if !errors.Is(err, ErrThrottled) {
			t.Error("errors.Is should find member of MultiError")
		}
	})

	t.Run("message truncated past ten", func(t *testing.T) {
		m := &MultiError{}
		for i := 0; i < 15; i++ {
			m.Add(fmt.Errorf("err-%d", i))
		}
		msg := m.Error()
		if !strings.Contains(msg, "and 5 more errors") {
			t.Errorf("long message should be truncated, got %q", msg)
		}
	})
}

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "nil",
			err:      nil,
			contains: "",
		},
		{
			name:     "circuit open",
			err:      fmt.Errorf("wrapped: %w", ErrCircuitOpen),
			contains: "short-circuited",
		},
		{
			name:     "run timeout",
			err:      ErrRunTimeout,
			contains: "--timeout",
		},
		{
			name:     "throttled",
			err:      Transient(ErrThrottled),
			contains: "throttled",
		},
		{
			name:     "auth",
			err:      Permanent(ErrAuthFailed),
			contains: "credentials",
		},
		{
			name:     "unknown passes through",
			err:      errors.New("some upstream detail"),
			contains: "some upstream detail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FriendlyError(tt.err)
			if tt.contains == "" {
				if got != "" {
					t.Errorf("expected empty, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FriendlyError() = %q, want substring %q", got, tt.contains)
			}
		})
	}
}
