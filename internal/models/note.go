// Package models defines the domain types for the journal.
package models

import (
	"slices"
	"time"
)

// DefaultNoteTitle is the placeholder title given to freshly created notes.
const DefaultNoteTitle = "Untitled Note"

// Note is a single journal entry. Every note belongs to exactly one folder.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	FolderID  string    `json:"folder_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteInput carries the user-editable fields accepted by create and update.
type NoteInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	FolderID string   `json:"folder_id"`
}

// Input returns the editable fields of n.
func (n Note) Input() NoteInput {
	return NoteInput{
		Title:    n.Title,
		Content:  n.Content,
		Tags:     n.Tags,
		FolderID: n.FolderID,
	}
}

// Clone returns a copy of n that shares no backing arrays with it.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

// HasTag reports whether tag is present on the note. Matching is case-sensitive.
func (n Note) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// IsBlank reports whether the note still carries the placeholder title and
// no content, i.e. nothing the user typed would be lost by discarding it.
func (n Note) IsBlank() bool {
	return n.Title == DefaultNoteTitle && n.Content == ""
}

// User is the identity supplied by the auth collaborator.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
