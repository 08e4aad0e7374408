package model

// Client is the root of every ownership chain.
type Client struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	ShortCode string `json:"shortCode"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Contract struct {
	ID          string  `json:"id"`
	ClientID    string  `json:"clientId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"isActive"`
	SortOrder   int64   `json:"sortOrder"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type Deliverable struct {
	ID         string `json:"id"`
	ContractID string `json:"contractId"`
	Name       string `json:"name"`
	SortOrder  int64  `json:"sortOrder"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type WorkType struct {
	ID            string `json:"id"`
	DeliverableID string `json:"deliverableId"`
	Name          string `json:"name"`
	SortOrder     int64  `json:"sortOrder"`
}

type TimeEntry struct {
	ID              string  `json:"id"`
	UserID          string  `json:"userId"`
	ContractID      string  `json:"contractId"`
	DeliverableID   *string `json:"deliverableId"`
	WorkTypeID      *string `json:"workTypeId"`
	Date            string  `json:"date"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	DurationMinutes int64   `json:"durationMinutes"`
	Description     *string `json:"description"`
	IsDraft         bool    `json:"isDraft"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

type Note struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	ContractID  string  `json:"contractId"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	ContentJSON *string `json:"contentJson"`
	WordCount   int64   `json:"wordCount"`
	IsPinned    bool    `json:"isPinned"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type NoteLink struct {
	SourceNoteID  string  `json:"sourceNoteId"`
	TargetNoteID  string  `json:"targetNoteId"`
	HeadingAnchor *string `json:"headingAnchor"`
	CreatedAt     string  `json:"createdAt"`
}

type NoteTimeEntry struct {
	NoteID        string  `json:"noteId"`
	TimeEntryID   string  `json:"timeEntryId"`
	HeadingAnchor *string `json:"headingAnchor"`
}

type WeeklyStatus struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	WeekStart  string `json:"weekStart"`
	Year       int64  `json:"year"`
	WeekNumber int64  `json:"weekNumber"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// Attachment is attachment metadata. The payload travels separately.
type Attachment struct {
	ID        string `json:"id"`
	NoteID    string `json:"noteId"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
	CreatedAt string `json:"createdAt"`
}
