package ingestion

import "errors"

// Sentinel errors for the four ways an ingestion job can fail. Callers
// match with errors.Is; the wrapped cause carries the detail.
var (
	ErrInput         = errors.New("invalid ingestion input")
	ErrExtraction    = errors.New("extraction failed")
	ErrTagging       = errors.New("tagging failed")
	ErrVectorization = errors.New("vectorization failed")
)
