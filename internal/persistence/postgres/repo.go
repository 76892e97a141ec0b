package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
)

const noteColumns = `id, folder_id, title, content, tags, created_at, updated_at`

func scanNote(row pgx.Row) (models.Note, error) {
	var n models.Note
	if err := row.Scan(&n.ID, &n.FolderID, &n.Title, &n.Content, &n.Tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return models.Note{}, err
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// ListFolders returns the user's folders, oldest first.
func (s *Store) ListFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	const q = `
		SELECT id, name, color
		FROM folders
		WHERE user_id = @user_id
		ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, wrap("ListFolders", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Color); err != nil {
			return nil, wrap("ListFolders: scan", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("ListFolders: rows", err)
	}
	return folders, nil
}

// ListNotes returns the user's notes, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	const q = `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE user_id = @user_id
		ORDER BY updated_at DESC, id`

	rows, err := s.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, wrap("ListNotes", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, wrap("ListNotes: scan", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("ListNotes: rows", err)
	}
	return notes, nil
}

// CreateNote inserts a note into one of the user's folders. The folder check
// is part of the insert, so a foreign folder inserts nothing.
func (s *Store) CreateNote(ctx context.Context, userID string, in models.NoteInput) (models.Note, error) {
	const q = `
		INSERT INTO notes (id, user_id, folder_id, title, content, tags)
		SELECT @id, @user_id, f.id, @title, @content, @tags
		FROM folders f
		WHERE f.id = @folder_id AND f.user_id = @user_id
		RETURNING ` + noteColumns

	n, err := scanNote(s.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":        uuid.NewString(),
		"user_id":   userID,
		"folder_id": in.FolderID,
		"title":     in.Title,
		"content":   in.Content,
		"tags":      tagsOrEmpty(in.Tags),
	}))
	if err != nil {
		if isNoRows(err) {
			return models.Note{}, fmt.Errorf("postgres.CreateNote: folder %q: %w", in.FolderID, apperr.ErrValidation)
		}
		return models.Note{}, wrap("CreateNote", err)
	}
	return n, nil
}

// UpdateNote overwrites the editable fields of note id and bumps updated_at.
func (s *Store) UpdateNote(ctx context.Context, userID, id string, in models.NoteInput) (models.Note, error) {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM folders WHERE id = @folder_id AND user_id = @user_id`,
		pgx.NamedArgs{"folder_id": in.FolderID, "user_id": userID}).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return models.Note{}, fmt.Errorf("postgres.UpdateNote: folder %q: %w", in.FolderID, apperr.ErrValidation)
		}
		return models.Note{}, wrap("UpdateNote", err)
	}

	const q = `
		UPDATE notes SET
			title      = @title,
			content    = @content,
			tags       = @tags,
			folder_id  = @folder_id,
			updated_at = now()
		WHERE id = @id AND user_id = @user_id
		RETURNING ` + noteColumns

	n, err := scanNote(s.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":        id,
		"user_id":   userID,
		"folder_id": in.FolderID,
		"title":     in.Title,
		"content":   in.Content,
		"tags":      tagsOrEmpty(in.Tags),
	}))
	if err != nil {
		return models.Note{}, wrap("UpdateNote", err)
	}
	return n, nil
}

// DeleteNote removes note id.
func (s *Store) DeleteNote(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notes WHERE id = @id AND user_id = @user_id`,
		pgx.NamedArgs{"id": id, "user_id": userID})
	if err != nil {
		return wrap("DeleteNote", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.DeleteNote: %w", apperr.ErrNotFound)
	}
	return nil
}

// CreateFolder inserts a folder for userID.
func (s *Store) CreateFolder(ctx context.Context, userID, name, color string) (models.Folder, error) {
	const q = `
		INSERT INTO folders (id, user_id, name, color)
		VALUES (@id, @user_id, @name, @color)
		RETURNING id, name, color`

	var f models.Folder
	err := s.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":      uuid.NewString(),
		"user_id": userID,
		"name":    name,
		"color":   color,
	}).Scan(&f.ID, &f.Name, &f.Color)
	if err != nil {
		return models.Folder{}, wrap("CreateFolder", err)
	}
	return f, nil
}

// DeleteFolder removes folder id. A folder still referenced by notes is
// reported as apperr.ErrConflict.
func (s *Store) DeleteFolder(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM folders WHERE id = @id AND user_id = @user_id`,
		pgx.NamedArgs{"id": id, "user_id": userID})
	if err != nil {
		return wrap("DeleteFolder", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.DeleteFolder: %w", apperr.ErrNotFound)
	}
	return nil
}
