package api

import (
	"github.com/starford/journal/internal/models"
)

// CredentialsRequest is the request body for sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" example:"me@example.com" validate:"required"`
	Password string `json:"password" example:"secret123" validate:"required"`
}

// SaveNoteRequest is the request body for saving a note. Omitted fields keep
// their current value.
type SaveNoteRequest struct {
	Title    *string   `json:"title,omitempty" example:"Trip"`
	Content  *string   `json:"content,omitempty" example:"Beach day"`
	Tags     *[]string `json:"tags,omitempty" example:"fun,travel"`
	FolderID *string   `json:"folder_id,omitempty" example:"3f0c..."`
}

func (req SaveNoteRequest) applyTo(n models.Note) models.Note {
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Content != nil {
		n.Content = *req.Content
	}
	if req.Tags != nil {
		n.Tags = *req.Tags
	}
	if req.FolderID != nil {
		n.FolderID = *req.FolderID
	}
	return n
}

// FilterRequest is the request body for PUT /filter. Omitted fields keep
// their current value.
type FilterRequest struct {
	Search   *string   `json:"search,omitempty" example:"beach"`
	FolderID *string   `json:"folder_id,omitempty" example:"all"`
	Tags     *[]string `json:"tags,omitempty" example:"fun"`
}

// AddFolderRequest is the request body for creating a folder.
type AddFolderRequest struct {
	Name  string `json:"name" example:"Travel" validate:"required"`
	Color string `json:"color,omitempty" example:"bg-blue-500"`
}

// NoteDetail is a note together with its resolved folder.
type NoteDetail struct {
	models.Note
	Folder  models.Folder `json:"folder" validate:"required"`
	Pending bool          `json:"pending"`
}

// NoteListResponse wraps the filtered note list.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// FolderListResponse wraps the folder list.
type FolderListResponse struct {
	Folders []models.Folder `json:"folders" validate:"required"`
}

// TagListResponse wraps the derived tag list.
type TagListResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// PaletteResponse lists the folder colours.
type PaletteResponse struct {
	Colors  []string `json:"colors" validate:"required"`
	Default string   `json:"default" example:"bg-blue-500" validate:"required"`
}
