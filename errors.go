package chronolog

import (
	"errors"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sync"
)

// Common errors returned by the Chronolog client.
var (
	// ErrNotFound is returned when a row or attachment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreClosed is returned when operating on a closed client.
	ErrStoreClosed = model.ErrStoreClosed

	// ErrOffline is returned when a network operation is attempted in offline mode.
	ErrOffline = errors.New("operation unavailable in offline mode")

	// ErrNoContracts is returned when a timer is started with no contract to
	// book it against.
	ErrNoContracts = errors.New("no contracts available")

	// ErrTimerNotFound is returned when stopping a timer entry that does not exist.
	ErrTimerNotFound = errors.New("timer entry not found")
)

// Sync transport errors. Match with errors.Is; extract *SyncError with errors.As.
var (
	ErrAuth    = sync.ErrAuth
	ErrNetwork = sync.ErrNetwork
	ErrServer  = sync.ErrServer
)

// SyncError describes a failed exchange with the sync server.
type SyncError = sync.SyncError

// ValidationError is returned when configuration or input validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
