package notestore_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
)

// fakeRemote is an in-memory Remote. Set fail[op] to make that operation
// return an error; calls records every operation in order.
type fakeRemote struct {
	mu      sync.Mutex
	folders []models.Folder
	notes   []models.Note
	fail    map[string]error
	calls   []string
	seq     int
	clock   time.Time
}

var _ notestore.Remote = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		fail:  map[string]error{},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeRemote) record(op string) error {
	r.calls = append(r.calls, op)
	return r.fail[op]
}

func (r *fakeRemote) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeRemote) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *fakeRemote) ListFolders(context.Context) ([]models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListFolders"); err != nil {
		return nil, err
	}
	return slices.Clone(r.folders), nil
}

func (r *fakeRemote) ListNotes(context.Context) ([]models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListNotes"); err != nil {
		return nil, err
	}
	out := make([]models.Note, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Clone()
	}
	return out, nil
}

func (r *fakeRemote) CreateNote(_ context.Context, in models.NoteInput) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("CreateNote"); err != nil {
		return models.Note{}, err
	}
	now := r.tick()
	n := models.Note{
		ID:        r.nextID("remote"),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      slices.Clone(in.Tags),
		FolderID:  in.FolderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.notes = append([]models.Note{n}, r.notes...)
	return n.Clone(), nil
}

func (r *fakeRemote) UpdateNote(_ context.Context, id string, in models.NoteInput) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UpdateNote:" + id); err != nil {
		return models.Note{}, err
	}
	if err := r.fail["UpdateNote"]; err != nil {
		return models.Note{}, err
	}
	for i, n := range r.notes {
		if n.ID == id {
			n.Title, n.Content, n.FolderID = in.Title, in.Content, in.FolderID
			n.Tags = slices.Clone(in.Tags)
			n.UpdatedAt = r.tick()
			r.notes[i] = n
			return n.Clone(), nil
		}
	}
	return models.Note{}, apperr.ErrNotFound
}

func (r *fakeRemote) DeleteNote(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteNote:" + id); err != nil {
		return err
	}
	if err := r.fail["DeleteNote"]; err != nil {
		return err
	}
	r.notes = slices.DeleteFunc(r.notes, func(n models.Note) bool { return n.ID == id })
	return nil
}

func (r *fakeRemote) CreateFolder(_ context.Context, name, color string) (models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("CreateFolder"); err != nil {
		return models.Folder{}, err
	}
	f := models.Folder{ID: r.nextID("folder"), Name: name, Color: color}
	r.folders = append(r.folders, f)
	return f, nil
}

func (r *fakeRemote) DeleteFolder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteFolder:" + id); err != nil {
		return err
	}
	if err := r.fail["DeleteFolder"]; err != nil {
		return err
	}
	r.folders = slices.DeleteFunc(r.folders, func(f models.Folder) bool { return f.ID == id })
	return nil
}

func (r *fakeRemote) EnsureDefaultFolders(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record("EnsureDefaultFolders")
}

func (r *fakeRemote) EnsureDefaultNotes(context.Context, []models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record("EnsureDefaultNotes")
}

func (r *fakeRemote) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// recorder is a Listener that keeps everything it receives.
type recorder struct {
	mu            sync.Mutex
	events        []notestore.Event
	notifications []notestore.Notification
}

func (l *recorder) OnEvent(ev notestore.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *recorder) OnNotification(n notestore.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append(l.notifications, n)
}

func (l *recorder) notified() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.notifications)
}
