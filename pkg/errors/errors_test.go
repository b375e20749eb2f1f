package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(CodeStateConflict, "order already started")

	if err.Code() != CodeStateConflict {
		t.Fatalf("expected code %s, got %s", CodeStateConflict, err.Code())
	}
	if err.Message() != "order already started" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Error() != "STATE_CONFLICT: order already started" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("balance row missing")
	err := Wrap(CodeDependency, cause, "load account")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Unwrap() != cause {
		t.Fatal("expected Unwrap to return cause")
	}
}

func TestAsMatchesNestedTypedError(t *testing.T) {
	inner := New(CodeTransferFailed, "insufficient buyer balance")
	outer := Wrap(CodeInternal, inner, "create order")

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInternal {
		t.Fatalf("expected outermost code, got %s", typed.Code())
	}
}

func TestMetadataForTransferFailed(t *testing.T) {
	meta := MetadataFor(CodeTransferFailed)
	if meta.HTTPStatus != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatal("transfer failures must not be flagged retryable")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}
