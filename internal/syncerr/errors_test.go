package syncerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessageIncludesOpKindAndContext(t *testing.T) {
	err := New(KindRemoteRejected, "program.create").
		With("status", 503).
		With("id", "abc")

	msg := err.Error()
	for _, want := range []string{"program.create", "remote_rejected", "status=503", "id=abc"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	base := New(KindNotFound, "workout.get").With("id", "w1")
	wrapped := fmt.Errorf("loading workout: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %v, want KindNotFound", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want KindUnknown", got)
	}
}

func TestErrorsIsMatchesOnKind(t *testing.T) {
	err := Wrap(KindStorage, "tx.commit", errors.New("disk full"))

	if !errors.Is(err, &Error{Kind: KindStorage}) {
		t.Error("errors.Is should match on equal kind")
	}
	if errors.Is(err, &Error{Kind: KindValidation}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindNetworkUnavailable, "sync.all", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

func TestStatusCode(t *testing.T) {
	err := New(KindRemoteRejected, "workout.update").With("status", 409)
	if got := StatusCode(err); got != 409 {
		t.Errorf("StatusCode = %d, want 409", got)
	}
	if got := StatusCode(errors.New("nope")); got != 0 {
		t.Errorf("StatusCode(plain) = %d, want 0", got)
	}
}
