package apperror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew_DefaultsFromCode(t *testing.T) {
	err := New(CodeCooldownActive, WithContext("pool=abc"))

	if err.Message != messages[CodeCooldownActive] {
		t.Errorf("message = %q", err.Message)
	}
	if err.Kind != KindLimit {
		t.Errorf("kind = %q, want limit", err.Kind)
	}
	if !strings.Contains(err.Error(), "pool=abc") {
		t.Errorf("Error() missing context: %s", err.Error())
	}
}

func TestNew_UnknownCodeFallsBack(t *testing.T) {
	err := New(Code("SOMETHING_NEW"))
	if err.Message != "SOMETHING_NEW" {
		t.Errorf("message = %q", err.Message)
	}
	if err.Kind != KindInternal {
		t.Errorf("kind = %q", err.Kind)
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Execution(CodeConfirmationTimeout, "sig", errors.New("deadline")))

	if !errors.Is(err, New(CodeConfirmationTimeout)) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeSubmissionFailed)) {
		t.Error("different code must not match")
	}
	if !IsExecution(err) {
		t.Error("expected execution kind")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Fatal("Wrap(nil) must be nil")
	}

	base := errors.New("socket closed")
	wrapped := Wrap(base, CodeConnectionError, "dial")
	if !errors.Is(wrapped, base) {
		t.Error("cause should be reachable")
	}
	if !IsConnection(wrapped) {
		t.Errorf("kind = %s", wrapped.Kind)
	}

	again := Wrap(wrapped, CodeInternalError, "ignored")
	if again.Code != CodeConnectionError {
		t.Errorf("rewrap changed code to %s", again.Code)
	}
}

func TestKindHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"validation", Validation(CodeInvalidOrderBook, "empty"), KindValidation},
		{"limit", Limit(CodeDuplicateTransaction, "tx"), KindLimit},
		{"connection", Connection(CodeConnectionExhausted, "all", nil), KindConnection},
		{"plain", errors.New("x"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetKind(tt.err); got != tt.kind {
				t.Errorf("GetKind = %s, want %s", got, tt.kind)
			}
		})
	}
}

func TestToLog(t *testing.T) {
	err := Internal(CodeInternalError, "handler", errors.New("panic"))
	fields := err.ToLog()
	if fields["cause"] != "panic" {
		t.Errorf("cause = %v", fields["cause"])
	}
	if _, ok := fields["stack"]; !ok {
		t.Error("expected stack")
	}
}
