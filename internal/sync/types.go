package sync

// State is the engine's sync state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
	StateOffline State = "offline"
)

// User-facing messages for classified transport failures.
const (
	MsgAuthExpired    = "Session expired — please log in again."
	MsgOffline        = "Network unavailable — changes saved locally."
	MsgSyncInProgress = "Sync already in progress"
)

// Status is a snapshot of the engine's observable state.
type Status struct {
	State        State  `json:"state"`
	PendingCount int    `json:"pendingCount"`
	LastError    string `json:"lastError,omitempty"`
	AuthExpired  bool   `json:"authExpired"`
}

// PullResult reports rows written by a pull. Transport failures appear in
// Errors, never as a returned error.
type PullResult struct {
	Pulled int      `json:"pulled"`
	Errors []string `json:"errors"`
}

// PushResult reports the server's aggregate push counts.
type PushResult struct {
	Pushed    int      `json:"pushed"`
	Conflicts int      `json:"conflicts"`
	Errors    []string `json:"errors"`
}

// SyncResult combines a push and the pull that follows it.
type SyncResult struct {
	Pulled    int      `json:"pulled"`
	Pushed    int      `json:"pushed"`
	Conflicts int      `json:"conflicts"`
	Errors    []string `json:"errors"`
}
