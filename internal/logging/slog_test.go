package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "test_operation")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError {
		t.Errorf("expected key %q, got %q", KeyError, attr.Key)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("expected value 'boom', got %q", attr.Value.String())
	}
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	// A nil error must produce an empty group that slog omits.
	if attr.Key != "" {
		t.Errorf("expected empty key for nil error, got %q", attr.Key)
	}
	if attr.Value.Kind() != slog.KindGroup {
		t.Errorf("expected group kind for nil error, got %v", attr.Value.Kind())
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		empty bool
	}{
		{name: "empty email", email: "", empty: true},
		{name: "normal email", email: "user@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			if tt.empty {
				if got != "" {
					t.Errorf("expected empty result, got %q", got)
				}
				return
			}
			if got == tt.email {
				t.Error("anonymized email must not equal the input")
			}
			if got != AnonymizeEmail(tt.email) {
				t.Error("anonymization must be deterministic")
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("expected <empty>, got %q", got)
	}
	got := SanitizeToken("ya29.secret-token")
	if got == "ya29.secret-token" {
		t.Error("sanitized token must not contain the token")
	}
	if got != "[token:17 chars]" {
		t.Errorf("unexpected sanitized form: %q", got)
	}
}
