package domain

import "time"

// RawDocument is a corpus file as read from disk, before normalisation.
type RawDocument struct {
	// ID is the file name without extension.
	ID string

	// Path is the file location.
	Path string

	// Content is the raw markdown bytes.
	Content []byte

	// ModifiedAt is the file modification time.
	ModifiedAt time.Time
}

// ChangeType represents the type of corpus change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns a lowercase name for the change.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// CorpusChange is a change event observed in the corpus directory.
type CorpusChange struct {
	Type ChangeType
	Path string
}
