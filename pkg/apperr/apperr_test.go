package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(New(NotFound, "missing")); got != NotFound {
		t.Errorf("got %v, want NotFound", got)
	}
	if got := KindOf(errors.New("plain")); got != Internal {
		t.Errorf("untagged error: got %v, want Internal", got)
	}
	if got := KindOf(nil); got != Internal {
		t.Errorf("nil error: got %v, want Internal", got)
	}

	// kind survives further wrapping
	wrapped := fmt.Errorf("outer: %w", New(Conflict, "event full"))
	if got := KindOf(wrapped); got != Conflict {
		t.Errorf("wrapped: got %v, want Conflict", got)
	}
}

func TestWrap(t *testing.T) {
	if err := Wrap(Internal, "load", nil); err != nil {
		t.Errorf("wrap nil: got %v", err)
	}

	cause := errors.New("connection refused")
	err := Wrap(Internal, "load registration", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if want := "load registration: connection refused"; err.Error() != want {
		t.Errorf("message: got %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := New(InvalidState, "registration closed")
	if !Is(err, InvalidState) {
		t.Error("expected InvalidState match")
	}
	if Is(err, NotFound) {
		t.Error("unexpected NotFound match")
	}
	if Is(nil, Internal) {
		t.Error("nil error must not match any kind")
	}
}
