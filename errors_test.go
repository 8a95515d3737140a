package mainmemory

import (
	"errors"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("table.insert", SeverityRecoverable, CodeExists, "cas mismatch")

	if err.Op != "table.insert" {
		t.Errorf("expected Op=table.insert, got %s", err.Op)
	}
	if err.Code != CodeExists {
		t.Errorf("expected Code=CodeExists, got %s", err.Code)
	}

	expected := "mainmemory: cas mismatch (op=table.insert)"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestComponentError(t *testing.T) {
	err := NewComponentError("ring.enqueue", "thread-2", SeverityOperational, CodeRingFull, "ring saturated")

	if err.Component != "thread-2" {
		t.Errorf("expected Component=thread-2, got %s", err.Component)
	}

	expected := "mainmemory: ring saturated (op=ring.enqueue)"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapErrorPreservesCodeAndSeverity(t *testing.T) {
	inner := NewError("table.lookup", SeverityRecoverable, CodeNotFound, "no such key")
	wrapped := WrapError("handler.get", inner)

	if wrapped.Code != CodeNotFound {
		t.Errorf("expected Code=CodeNotFound, got %s", wrapped.Code)
	}
	if wrapped.Severity != SeverityRecoverable {
		t.Errorf("expected Severity=SeverityRecoverable, got %s", wrapped.Severity)
	}
	if wrapped.Op != "handler.get" {
		t.Errorf("expected Op=handler.get, got %s", wrapped.Op)
	}
}

func TestWrapErrorOnPlainErrorIsOperational(t *testing.T) {
	wrapped := WrapError("table.close", errors.New("region close failed"))

	if wrapped.Severity != SeverityOperational {
		t.Errorf("expected Severity=SeverityOperational, got %s", wrapped.Severity)
	}
	if !errors.Is(wrapped, wrapped.Inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}

func TestWrapErrorOnNilReturnsNil(t *testing.T) {
	if WrapError("noop", nil) != nil {
		t.Error("expected WrapError(nil) to return nil")
	}
}

func TestErrorIsComparesByCode(t *testing.T) {
	a := NewError("a", SeverityRecoverable, CodeTimeout, "timed out")
	b := NewError("b", SeverityFatal, CodeTimeout, "different message, same code")

	if !errors.Is(a, b) {
		t.Error("expected errors with the same Code to satisfy errors.Is")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("future.wait", SeverityRecoverable, CodeTimeout, "wait timed out")

	if !IsCode(err, CodeTimeout) {
		t.Error("IsCode should return true for a matching code")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("IsCode should return false for a non-matching code")
	}
	if IsCode(nil, CodeTimeout) {
		t.Error("IsCode should return false for a nil error")
	}
}

func TestIsFatal(t *testing.T) {
	fatal := NewError("arena.alloc", SeverityFatal, CodeAllocatorOOM, "out of memory")
	if !IsFatal(fatal) {
		t.Error("expected IsFatal to return true for SeverityFatal")
	}

	recoverable := NewError("table.lookup", SeverityRecoverable, CodeNotFound, "no such key")
	if IsFatal(recoverable) {
		t.Error("expected IsFatal to return false for SeverityRecoverable")
	}

	if IsFatal(errors.New("plain error")) {
		t.Error("expected IsFatal to return false for a non-*Error")
	}
}

func TestRecoverableSentinels(t *testing.T) {
	if ErrNotFound.Error() == "" || ErrExists.Error() == "" || ErrCanceled.Error() == "" || ErrWouldBlock.Error() == "" {
		t.Error("expected every sentinel to carry a non-empty message")
	}
}
