package chronolog

import (
	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sync"
)

// Sync state and results.
type (
	State      = sync.State
	Status     = sync.Status
	SyncResult = sync.SyncResult
	PullResult = sync.PullResult
	PushResult = sync.PushResult
)

const (
	StateIdle    = sync.StateIdle
	StateSyncing = sync.StateSyncing
	StateError   = sync.StateError
	StateOffline = sync.StateOffline
)

// Read models served by the server views and the local fallback.
type (
	ContractSummary  = model.ContractSummary
	NoteSummary      = model.NoteSummary
	NoteDetail       = model.NoteDetail
	WeekData         = model.WeekData
	DayData          = model.DayData
	TimeEntryDisplay = model.TimeEntryDisplay
	TimerEntry       = model.TimerEntry
	Attachment       = model.Attachment
)

// Write inputs.
type (
	NoteUpdate      = model.NoteUpdate
	TimeEntryCreate = model.TimeEntryCreate
	TimeEntryUpdate = model.TimeEntryUpdate
	TimerSave       = model.TimerSave
)

// DraftUpdate changes a running timer's draft entry. Nil means unchanged.
type DraftUpdate struct {
	ContractID  *string `json:"contractId,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Weekly status values.
const (
	StatusUnsubmitted = model.Unsubmitted
	StatusSubmitted   = "Submitted"
	StatusApproved    = "Approved"
)
