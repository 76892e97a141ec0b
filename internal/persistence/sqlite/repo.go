package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
)

const noteColumns = `id, folder_id, title, content, tags, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (models.Note, error) {
	var (
		n    models.Note
		tags string
	)
	if err := row.Scan(&n.ID, &n.FolderID, &n.Title, &n.Content, &tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return models.Note{}, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return models.Note{}, fmt.Errorf("decode tags of %s: %w", n.ID, err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// ListFolders returns the user's folders, oldest first.
func (db *DB) ListFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, color FROM folders
		WHERE user_id = ?
		ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, wrap("list folders", err)
	}
	defer rows.Close()

	out := []models.Folder{}
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Color); err != nil {
			return nil, wrap("list folders", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list folders", err)
	}
	return out, nil
}

// ListNotes returns the user's notes, most recently updated first.
func (db *DB) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE user_id = ?
		ORDER BY updated_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, wrap("list notes", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, wrap("list notes", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list notes", err)
	}
	return out, nil
}

// ownsFolder fails with ErrValidation unless folderID belongs to userID.
func (db *DB) ownsFolder(ctx context.Context, userID, folderID string) error {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM folders WHERE id = ? AND user_id = ?`, folderID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: folder %q: %w", folderID, apperr.ErrValidation)
	}
	if err != nil {
		return wrap("lookup folder", err)
	}
	return nil
}

// CreateNote inserts a note for userID.
func (db *DB) CreateNote(ctx context.Context, userID string, in models.NoteInput) (models.Note, error) {
	if err := db.ownsFolder(ctx, userID, in.FolderID); err != nil {
		return models.Note{}, err
	}
	now := time.Now().UTC()
	n := models.Note{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		FolderID:  in.FolderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, folder_id, title, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, userID, n.FolderID, n.Title, n.Content, encodeTags(n.Tags), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return models.Note{}, wrap("create note", err)
	}
	return n, nil
}

// UpdateNote overwrites the editable fields of note id and bumps updated_at.
func (db *DB) UpdateNote(ctx context.Context, userID, id string, in models.NoteInput) (models.Note, error) {
	if err := db.ownsFolder(ctx, userID, in.FolderID); err != nil {
		return models.Note{}, err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE notes SET
			title      = ?,
			content    = ?,
			tags       = ?,
			folder_id  = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		in.Title, in.Content, encodeTags(in.Tags), in.FolderID, time.Now().UTC(), id, userID)
	if err != nil {
		return models.Note{}, wrap("update note", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Note{}, fmt.Errorf("sqlite: update note %s: %w", id, apperr.ErrNotFound)
	}
	n, err := scanNote(db.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return models.Note{}, wrap("update note", err)
	}
	return n, nil
}

// DeleteNote removes note id.
func (db *DB) DeleteNote(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return wrap("delete note", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: delete note %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CreateFolder inserts a folder for userID.
func (db *DB) CreateFolder(ctx context.Context, userID, name, color string) (models.Folder, error) {
	f := models.Folder{ID: uuid.NewString(), Name: name, Color: color}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO folders (id, user_id, name, color, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, userID, f.Name, f.Color, time.Now().UTC())
	if err != nil {
		return models.Folder{}, wrap("create folder", err)
	}
	return f, nil
}

// DeleteFolder removes folder id. A folder still referenced by notes is
// reported as apperr.ErrConflict.
func (db *DB) DeleteFolder(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM folders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return wrap("delete folder", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: delete folder %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
