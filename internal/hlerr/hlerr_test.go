package hlerr

import (
	"errors"
	"testing"
)

func TestWrapAndIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: timeout")
	err := Wrap(TransientNetwork, "fetch leaderboard", cause)

	if !Is(err, TransientNetwork) {
		t.Error("expected Is(err, TransientNetwork) to be true")
	}
	if Is(err, RateLimited) {
		t.Error("expected Is(err, RateLimited) to be false")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to see through the wrap to the cause")
	}
	if KindOf(err) != TransientNetwork {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), TransientNetwork)
	}
}

func TestKindOfPlainError(t *testing.T) {
	t.Parallel()

	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf on a plain error should be empty")
	}
}
