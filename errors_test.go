package chronolog_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyperengineering/chronolog"
	"github.com/hyperengineering/chronolog/internal/sync"
)

func TestSentinelErrors_ErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"ErrNotFound", chronolog.ErrNotFound},
		{"ErrOffline", chronolog.ErrOffline},
		{"ErrStoreClosed", chronolog.ErrStoreClosed},
		{"ErrNoContracts", chronolog.ErrNoContracts},
		{"ErrTimerNotFound", chronolog.ErrTimerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("operation failed: %w", tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestSyncError_MatchesKind(t *testing.T) {
	var err error = fmt.Errorf("pull: %w", &chronolog.SyncError{
		Kind: sync.KindAuth, Operation: "pull", StatusCode: 401, Err: errors.New("unauthorized"),
	})

	if !errors.Is(err, chronolog.ErrAuth) {
		t.Error("errors.Is(err, ErrAuth) = false, want true")
	}
	if errors.Is(err, chronolog.ErrServer) || errors.Is(err, chronolog.ErrNetwork) {
		t.Error("auth error matched another kind")
	}
	var se *chronolog.SyncError
	if !errors.As(err, &se) || se.StatusCode != 401 {
		t.Errorf("errors.As() = %+v", se)
	}
}

func TestValidationError_ErrorFormat(t *testing.T) {
	err := &chronolog.ValidationError{Field: "Token", Message: "required when ServerURL is set"}
	want := "invalid Token: required when ServerURL is set"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
