package model

// ContractSummary is one entry of the contracts sidebar.
type ContractSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IsActive        bool   `json:"isActive"`
	SortOrder       int64  `json:"sortOrder"`
	ClientID        string `json:"clientId"`
	ClientName      string `json:"clientName"`
	ClientShortCode string `json:"clientShortCode"`
	NoteCount       int64  `json:"noteCount"`
}

// NoteSummary is a note list entry with a two-line text preview.
type NoteSummary struct {
	ID         string `json:"id"`
	ContractID string `json:"contractId"`
	IsPinned   bool   `json:"isPinned"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	FirstLine  string `json:"firstLine"`
	SecondLine string `json:"secondLine"`
}

type NoteDetail struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	ContentJSON *string `json:"contentJson"`
	ContractID  string  `json:"contractId"`
	WordCount   int64   `json:"wordCount"`
	IsPinned    bool    `json:"isPinned"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// NoteDetailFromNote projects a stored note onto the detail view.
func NoteDetailFromNote(n Note) NoteDetail {
	return NoteDetail{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		ContentJSON: n.ContentJSON,
		ContractID:  n.ContractID,
		WordCount:   n.WordCount,
		IsPinned:    n.IsPinned,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

// WeekData groups a week's non-draft time entries by day.
type WeekData struct {
	WeekStart          string    `json:"weekStart"`
	Days               []DayData `json:"days"`
	WeeklyTotalMinutes int64     `json:"weeklyTotalMinutes"`
	Status             string    `json:"status"`
}

type DayData struct {
	Date         string             `json:"date"`
	Entries      []TimeEntryDisplay `json:"entries"`
	TotalMinutes int64              `json:"totalMinutes"`
}

type TimeEntryDisplay struct {
	ID              string  `json:"id"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	DurationMinutes int64   `json:"durationMinutes"`
	ContractID      string  `json:"contractId"`
	ContractName    string  `json:"contractName"`
	ClientName      string  `json:"clientName"`
	ClientShortCode string  `json:"clientShortCode"`
	DeliverableName *string `json:"deliverableName"`
	WorkTypeName    *string `json:"workTypeName"`
	Description     *string `json:"description"`
	Date            string  `json:"date"`
}

// Placeholders for lookups that do not resolve.
const (
	UnknownName      = "Unknown"
	UnknownShortCode = "??"
	Unsubmitted      = "Unsubmitted"
)

// TimerEntry is the running or stopped draft time entry.
type TimerEntry struct {
	ID              string  `json:"id"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	DurationMinutes int64   `json:"durationMinutes"`
}

// NoteUpdate holds the note fields a caller may change. Nil means unchanged.
type NoteUpdate struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	ContentJSON *string `json:"contentJson,omitempty"`
}

type TimeEntryCreate struct {
	Date            string `json:"date"`
	DurationMinutes int64  `json:"durationMinutes"`
	ContractID      string `json:"contractId"`
	Description     string `json:"description,omitempty"`
}

// TimeEntryUpdate changes selected time entry fields. The Clear flags set a
// nullable reference to NULL.
type TimeEntryUpdate struct {
	ContractID       *string `json:"contractId,omitempty"`
	DeliverableID    *string `json:"deliverableId,omitempty"`
	ClearDeliverable bool    `json:"-"`
	WorkTypeID       *string `json:"workTypeId,omitempty"`
	ClearWorkType    bool    `json:"-"`
	Description      *string `json:"description,omitempty"`
	DurationMinutes  *int64  `json:"durationMinutes,omitempty"`
}

// TimerSave assigns the draft to a contract when the timer is saved.
type TimerSave struct {
	ContractID    string `json:"contractId"`
	DeliverableID string `json:"deliverableId"`
	WorkTypeID    string `json:"workTypeId"`
	Description   string `json:"description"`
}
