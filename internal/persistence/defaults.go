package persistence

import (
	"context"
	"fmt"

	"github.com/starford/journal/internal/models"
)

// DefaultFolders are created for a user who has no folder yet, in this order.
var DefaultFolders = []models.Folder{
	{Name: "Personal", Color: models.ColorGreen},
	{Name: "Work", Color: models.ColorBlue},
	{Name: "Ideas", Color: models.ColorPurple},
}

// SeedFolderName names the folder that receives the welcome notes.
const SeedFolderName = "Personal"

// DefaultNotes are created in the seed folder for a user who has no note yet.
// FolderID is filled in at seeding time.
var DefaultNotes = []models.NoteInput{
	{
		Title:   "Welcome to Your Digital Journal",
		Content: "Start writing your thoughts, ideas, and memories here. Use tags to organize and find your notes easily.",
		Tags:    []string{"welcome", "getting-started"},
	},
	{
		Title:   "Ideas for the Weekend",
		Content: "- Visit the local farmers market\n- Try that new hiking trail\n- Organize the home office\n- Call mom and dad",
		Tags:    []string{"weekend", "personal", "family"},
	},
}

// EnsureDefaultFolders creates DefaultFolders unless the user already owns a folder.
func EnsureDefaultFolders(ctx context.Context, b Backend, userID string) error {
	existing, err := b.ListFolders(ctx, userID)
	if err != nil {
		return fmt.Errorf("persistence: ensure default folders: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, f := range DefaultFolders {
		if _, err := b.CreateFolder(ctx, userID, f.Name, f.Color); err != nil {
			return fmt.Errorf("persistence: ensure default folders: %s: %w", f.Name, err)
		}
	}
	return nil
}

// EnsureDefaultNotes creates DefaultNotes in the seed folder among folders,
// unless the user already owns a note or no seed folder exists.
func EnsureDefaultNotes(ctx context.Context, b Backend, userID string, folders []models.Folder) error {
	var seed *models.Folder
	for i := range folders {
		if folders[i].Name == SeedFolderName {
			seed = &folders[i]
			break
		}
	}
	if seed == nil {
		return nil
	}

	existing, err := b.ListNotes(ctx, userID)
	if err != nil {
		return fmt.Errorf("persistence: ensure default notes: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, in := range DefaultNotes {
		in.FolderID = seed.ID
		if _, err := b.CreateNote(ctx, userID, in); err != nil {
			return fmt.Errorf("persistence: ensure default notes: %q: %w", in.Title, err)
		}
	}
	return nil
}
