package zvdberr

import (
	"errors"
	"strings"
	"testing"
)

func TestOfMatchesKind(t *testing.T) {
	err := New(NodeNotFound, "Delete")
	if !Of(err, NodeNotFound) {
		t.Fatal("expected Of to match NodeNotFound")
	}
	if Of(err, Corrupted) {
		t.Fatal("expected Of not to match a different kind")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IoError, "Save", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	var zerr *Error
	if !errors.As(err, &zerr) {
		t.Fatal("expected errors.As to recover *Error")
	}
	if zerr.Kind != IoError {
		t.Fatalf("expected Kind IoError, got %s", zerr.Kind)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(IoError, "Save", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestErrorStringIncludesOpAndKind(t *testing.T) {
	err := New(DimensionMismatch, "Insert")
	msg := err.Error()
	if !strings.Contains(msg, "Insert") || !strings.Contains(msg, "DimensionMismatch") {
		t.Fatalf("expected error string to include op and kind, got %q", msg)
	}
}
