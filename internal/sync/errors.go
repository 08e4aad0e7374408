package sync

import (
	"errors"
	"fmt"
)

// ErrorKind classifies transport failures. It is the only thing higher layers
// branch on; nothing above the transport inspects HTTP status codes.
type ErrorKind int

const (
	// KindNetwork means the request never produced a response.
	KindNetwork ErrorKind = iota
	// KindAuth means the server rejected the credentials (HTTP 401).
	KindAuth
	// KindServer covers any other non-2xx status and undecodable responses.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	}
	return "network"
}

// Sentinels matched by SyncError.Is.
var (
	ErrAuth    = errors.New("session expired")
	ErrServer  = errors.New("server error")
	ErrNetwork = errors.New("network unavailable")
)

// SyncError is returned by the transport. Extractable via errors.As();
// errors.Is(err, ErrAuth|ErrServer|ErrNetwork) matches on Kind.
type SyncError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *SyncError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("sync: %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("sync: %s failed (status %d): %v", e.Operation, e.StatusCode, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrServer:
		return e.Kind == KindServer
	case ErrNetwork:
		return e.Kind == KindNetwork
	}
	return false
}

// newStatusError classifies a non-2xx response.
func newStatusError(op string, statusCode int, body []byte) *SyncError {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	kind := KindServer
	if statusCode == 401 {
		kind = KindAuth
	}
	return &SyncError{
		Kind:       kind,
		Operation:  op,
		StatusCode: statusCode,
		Body:       string(body),
		Err:        fmt.Errorf("HTTP %d: %s", statusCode, msg),
	}
}

func newNetworkError(op string, err error) *SyncError {
	return &SyncError{Kind: KindNetwork, Operation: op, Err: err}
}

// newDecodeError reports a 2xx response whose body could not be decoded.
func newDecodeError(op string, statusCode int, err error) *SyncError {
	return &SyncError{Kind: KindServer, Operation: op, StatusCode: statusCode, Err: fmt.Errorf("decode response: %w", err)}
}
