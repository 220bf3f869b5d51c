package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is one knowledge artifact. Rows with Committed false are
// uploads whose processing did not finish; they remain visible in the
// inventory as "uploaded but unprocessed".
type Document struct {
	ID        string
	Title     string
	Section   string
	ScopeID   string // optional ICP reference, empty means global
	Source    string // "file" or "url"
	Origin    string // original filename or URL
	Content   string
	Summary   string
	Tags      string // JSON array stored as text
	Committed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ICPProfile is a structured ideal-customer-profile record.
type ICPProfile struct {
	ID         string
	Name       string
	Profile    string // JSON object stored as text
	PainPoints string // JSON array stored as text
	Messaging  string // JSON object stored as text
	CreatedAt  time.Time
}

// DocumentFilter narrows ListDocuments. Zero values match everything.
type DocumentFilter struct {
	ScopeID       string
	Section       string
	CommittedOnly bool
	Limit         int
}
