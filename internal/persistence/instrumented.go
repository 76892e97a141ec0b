package persistence

import (
	"context"
	"time"

	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/models"
)

// Instrumented records call counts and latencies of a backend.
type Instrumented struct {
	next UserBackend
	m    *metrics.Metrics
}

var _ UserBackend = (*Instrumented)(nil)

// Instrument wraps b so that every call is observed by m.
func Instrument(b UserBackend, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: b, m: m}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.m.BackendCalls.WithLabelValues(op, outcome).Inc()
	i.m.BackendDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) ListFolders(ctx context.Context, userID string) (out []models.Folder, err error) {
	defer func(start time.Time) { i.observe("list_folders", start, err) }(time.Now())
	return i.next.ListFolders(ctx, userID)
}

func (i *Instrumented) ListNotes(ctx context.Context, userID string) (out []models.Note, err error) {
	defer func(start time.Time) { i.observe("list_notes", start, err) }(time.Now())
	return i.next.ListNotes(ctx, userID)
}

func (i *Instrumented) CreateNote(ctx context.Context, userID string, in models.NoteInput) (out models.Note, err error) {
	defer func(start time.Time) { i.observe("create_note", start, err) }(time.Now())
	return i.next.CreateNote(ctx, userID, in)
}

func (i *Instrumented) UpdateNote(ctx context.Context, userID, id string, in models.NoteInput) (out models.Note, err error) {
	defer func(start time.Time) { i.observe("update_note", start, err) }(time.Now())
	return i.next.UpdateNote(ctx, userID, id, in)
}

func (i *Instrumented) DeleteNote(ctx context.Context, userID, id string) (err error) {
	defer func(start time.Time) { i.observe("delete_note", start, err) }(time.Now())
	return i.next.DeleteNote(ctx, userID, id)
}

func (i *Instrumented) CreateFolder(ctx context.Context, userID, name, color string) (out models.Folder, err error) {
	defer func(start time.Time) { i.observe("create_folder", start, err) }(time.Now())
	return i.next.CreateFolder(ctx, userID, name, color)
}

func (i *Instrumented) DeleteFolder(ctx context.Context, userID, id string) (err error) {
	defer func(start time.Time) { i.observe("delete_folder", start, err) }(time.Now())
	return i.next.DeleteFolder(ctx, userID, id)
}

func (i *Instrumented) CreateUser(ctx context.Context, email, passwordHash string) (out models.User, err error) {
	defer func(start time.Time) { i.observe("create_user", start, err) }(time.Now())
	return i.next.CreateUser(ctx, email, passwordHash)
}

func (i *Instrumented) UserByEmail(ctx context.Context, email string) (out models.User, hash string, err error) {
	defer func(start time.Time) { i.observe("user_by_email", start, err) }(time.Now())
	return i.next.UserByEmail(ctx, email)
}

func (i *Instrumented) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
