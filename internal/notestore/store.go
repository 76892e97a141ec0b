// Package notestore holds the in-memory note and folder collections of one
// signed-in user, derives the filtered view from them, and reconciles every
// mutation with the remote persistence backend.
package notestore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
)

// Remote is the persistence collaborator of a store, already scoped to the
// store's user.
type Remote interface {
	ListFolders(ctx context.Context) ([]models.Folder, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
	CreateNote(ctx context.Context, in models.NoteInput) (models.Note, error)
	UpdateNote(ctx context.Context, id string, in models.NoteInput) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	CreateFolder(ctx context.Context, name, color string) (models.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	EnsureDefaultFolders(ctx context.Context) error
	EnsureDefaultNotes(ctx context.Context, folders []models.Folder) error
}

// Option configures a Store.
type Option func(*Store)

// WithListener sets the sink for events and failure notifications.
func WithListener(l Listener) Option {
	return func(s *Store) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithFallback sets the fallback folder policy.
func WithFallback(f Fallback) Option {
	return func(s *Store) { s.fallback = f }
}

// WithTagMatch sets how multiple selected tags combine.
func WithTagMatch(m TagMatch) Option {
	return func(s *Store) { s.tagMatch = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the generator of local ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Store is the note/folder store of a single user.
//
// Mutations run to completion one at a time. Remote calls are made without
// holding the state lock, so readers observe the optimistic state while a
// mutation is in flight.
type Store struct {
	remote   Remote
	listener Listener
	fallback Fallback
	tagMatch TagMatch
	now      func() time.Time
	newID    func() string

	cmdMu sync.Mutex

	mu sync.RWMutex
	st state
}

type state struct {
	user    *models.User
	loaded  bool
	loading bool

	notes   []models.Note
	folders []models.Folder

	// saved holds the last persisted version of each note, keyed by id.
	// A note without an entry has never been saved.
	saved map[string]models.Note
	// pending lists, in order, notes whose last save failed.
	pending []string

	selectedID string
	editing    bool

	search string
	folder string
	tags   []string
}

// New returns a store for user backed by remote. The store is empty until Load.
func New(remote Remote, user models.User, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		listener: nopListener{},
		fallback: DefaultFallback(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	u := user
	s.st = state{user: &u, folder: AllFolders, saved: map[string]models.Note{}}
	return s
}

// Load seeds defaults for a new user and replaces the collections with the
// remote's contents.
func (s *Store) Load(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	if s.st.user == nil {
		s.mu.Unlock()
		return fmt.Errorf("notestore: load: %w", apperr.ErrNotAuthenticated)
	}
	s.st.loading = true
	s.mu.Unlock()

	folders, notes, err := s.fetch(ctx)

	s.mu.Lock()
	s.st.loading = false
	if err == nil {
		s.st.folders = folders
		s.st.notes = notes
		s.st.saved = make(map[string]models.Note, len(notes))
		for _, n := range notes {
			s.st.saved[n.ID] = n.Clone()
		}
		s.st.pending = nil
		s.st.loaded = true
		if s.st.selectedID != "" && s.st.indexOfNote(s.st.selectedID) < 0 {
			s.st.selectedID = ""
			s.st.editing = false
		}
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail("load", err)
	}
	s.listener.OnEvent(Event{Kind: StoreLoaded})
	return nil
}

func (s *Store) fetch(ctx context.Context) ([]models.Folder, []models.Note, error) {
	if err := s.remote.EnsureDefaultFolders(ctx); err != nil {
		return nil, nil, err
	}
	folders, err := s.remote.ListFolders(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := s.remote.EnsureDefaultNotes(ctx, folders); err != nil {
		return nil, nil, err
	}
	notes, err := s.remote.ListNotes(ctx)
	if err != nil {
		return nil, nil, err
	}
	if folders == nil {
		folders = []models.Folder{}
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return folders, notes, nil
}

// Reset clears every collection and the view state and forgets the user.
func (s *Store) Reset() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	s.st = state{folder: AllFolders, saved: map[string]models.Note{}}
	s.mu.Unlock()

	s.listener.OnEvent(Event{Kind: StoreReset})
}

// dispatch runs c through apply, persist and reconcile/correct, reporting
// failures to the listener.
func (s *Store) dispatch(ctx context.Context, c command) error {
	s.mu.Lock()
	if s.st.user == nil {
		s.mu.Unlock()
		return fmt.Errorf("notestore: %s: %w", c.op(), apperr.ErrNotAuthenticated)
	}
	if err := c.apply(&s.st, s); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("notestore: %s: %w", c.op(), err)
	}
	s.mu.Unlock()

	err := c.persist(ctx, s.remote)

	s.mu.Lock()
	if err != nil {
		c.correct(&s.st)
	} else {
		c.reconcile(&s.st)
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail(c.op(), err)
	}
	for _, ev := range c.events() {
		s.listener.OnEvent(ev)
	}
	return nil
}

func (s *Store) fail(op string, err error) error {
	err = fmt.Errorf("notestore: %s: %w", op, err)
	s.listener.OnNotification(Notification{Op: op, Message: err.Error(), Err: err})
	return err
}

// CreateNote inserts a new placeholder note at the front of the collection,
// selects it and enters editing. The note stays local until its first save.
func (s *Store) CreateNote(ctx context.Context) (models.Note, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	c := &createNote{}
	if err := s.dispatch(ctx, c); err != nil {
		return models.Note{}, err
	}
	return c.note.Clone(), nil
}

// SaveNote replaces the stored note carrying note.ID with note and persists
// it. On failure the edits are kept, editing stays on, and the save is queued
// for RetryPending. The returned note carries the remote id and timestamps.
func (s *Store) SaveNote(ctx context.Context, note models.Note) (models.Note, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	c := &saveNote{payload: note}
	if err := s.dispatch(ctx, c); err != nil {
		return c.local.Clone(), err
	}
	return c.result.Clone(), nil
}

// CancelEdit leaves editing mode for note id. A never-saved note that still
// holds only the placeholder is discarded; otherwise the note reverts to its
// last saved version and any pending save of it is dropped.
func (s *Store) CancelEdit(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	return s.dispatch(ctx, &cancelEdit{id: id})
}

// DeleteNote removes note id. If the remote delete fails the note is restored
// at its former position.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	return s.dispatch(ctx, &deleteNote{id: id})
}

// AddFolder appends a folder with the given name and palette colour.
func (s *Store) AddFolder(ctx context.Context, name, color string) (models.Folder, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	c := &addFolder{name: name, color: color}
	if err := s.dispatch(ctx, c); err != nil {
		return models.Folder{}, err
	}
	return c.result, nil
}

// DeleteFolder moves every note of folder id to the fallback folder, one
// remote update at a time, and then deletes the folder. A failed
// reassignment stops the operation before the folder is removed.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.RLock()
	if s.st.user == nil {
		s.mu.RUnlock()
		return fmt.Errorf("notestore: delete folder: %w", apperr.ErrNotAuthenticated)
	}
	if s.st.indexOfFolder(id) < 0 {
		s.mu.RUnlock()
		return fmt.Errorf("notestore: delete folder %s: %w", id, apperr.ErrNotFound)
	}
	var affected []string
	for _, n := range s.st.notes {
		if n.FolderID == id {
			affected = append(affected, n.ID)
		}
	}
	target, ok := s.fallback.Resolve(s.st.folders, id)
	s.mu.RUnlock()

	if len(affected) > 0 && !ok {
		return s.fail("delete folder", apperr.ErrNoFallbackFolder)
	}

	for i, nid := range affected {
		if err := s.dispatch(ctx, &reassignNote{id: nid, folderID: target.ID}); err != nil {
			return fmt.Errorf("notestore: delete folder %s: reassigned %d of %d notes: %w", id, i, len(affected), err)
		}
	}
	return s.dispatch(ctx, &deleteFolder{id: id})
}

// RetryPending replays every queued save in order. Saves that fail again
// stay queued; their errors are joined.
func (s *Store) RetryPending(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.RLock()
	var batch []models.Note
	for _, id := range s.st.pending {
		if i := s.st.indexOfNote(id); i >= 0 {
			batch = append(batch, s.st.notes[i].Clone())
		}
	}
	s.mu.RUnlock()

	var errs []error
	for _, n := range batch {
		if err := s.dispatch(ctx, &saveNote{payload: n, retry: true}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SelectNote opens note id for reading and leaves editing mode.
func (s *Store) SelectNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.indexOfNote(id) < 0 {
		return fmt.Errorf("notestore: select note %s: %w", id, apperr.ErrNotFound)
	}
	s.st.selectedID = id
	s.st.editing = false
	return nil
}

// StartEditing selects note id and enters editing mode.
func (s *Store) StartEditing(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.indexOfNote(id) < 0 {
		return fmt.Errorf("notestore: edit note %s: %w", id, apperr.ErrNotFound)
	}
	s.st.selectedID = id
	s.st.editing = true
	return nil
}

// CloseNote clears the selection and leaves editing mode.
func (s *Store) CloseNote() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.selectedID = ""
	s.st.editing = false
}

// SetSearch sets the search text.
func (s *Store) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.search = q
}

// SelectFolder sets the folder filter to id or AllFolders.
func (s *Store) SelectFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = AllFolders
	}
	if id != AllFolders && s.st.indexOfFolder(id) < 0 {
		return fmt.Errorf("notestore: select folder %s: %w", id, apperr.ErrNotFound)
	}
	s.st.folder = id
	return nil
}

// SetSelectedTags replaces the tag selection.
func (s *Store) SetSelectedTags(tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.tags = NormalizeTags(tags)
}

// ToggleTag adds tag to the selection, or removes it when already selected.
func (s *Store) ToggleTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.st.tags, tag); i >= 0 {
		s.st.tags = slices.Delete(slices.Clone(s.st.tags), i, i+1)
		return
	}
	if tag != "" {
		s.st.tags = append(slices.Clone(s.st.tags), tag)
	}
}

// Criteria returns the current filter criteria.
func (s *Store) Criteria() Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.criteria()
}

func (s *Store) criteria() Criteria {
	return Criteria{
		Search:   s.st.search,
		FolderID: s.st.folder,
		Tags:     slices.Clone(s.st.tags),
		TagMatch: s.tagMatch,
	}
}

// Visible returns the notes passing the current filters in collection order.
func (s *Store) Visible() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Filter(s.st.notes, s.criteria())
}

// Query returns the notes passing c without touching the view state.
func (s *Store) Query(c Criteria) []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c.TagMatch = s.tagMatch
	return Filter(s.st.notes, c)
}

// Notes returns every note in collection order.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Filter(s.st.notes, Criteria{})
}

// Tags returns the derived tag list.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return AllTags(s.st.notes)
}

// Folders returns the folders in collection order.
func (s *Store) Folders() []models.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Folder{}, s.st.folders...)
}

// Note returns note id.
func (s *Store) Note(id string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.st.indexOfNote(id)
	if i < 0 {
		return models.Note{}, false
	}
	return s.st.notes[i].Clone(), true
}

// FolderOf resolves the folder of n, returning the unassigned placeholder
// when the reference dangles.
func (s *Store) FolderOf(n models.Note) models.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.st.indexOfFolder(n.FolderID); i >= 0 {
		return s.st.folders[i]
	}
	return models.Unassigned()
}

// FallbackFolder returns the folder that currently acts as fallback.
func (s *Store) FallbackFolder() (models.Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fallback.Resolve(s.st.folders, "")
}

// Pending returns the ids of notes whose last save failed, oldest first.
func (s *Store) Pending() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.st.pending)
}

// User returns the signed-in user, if any.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.st.user == nil {
		return models.User{}, false
	}
	return *s.st.user, true
}

// View is a point-in-time copy of the view state.
type View struct {
	User           *models.User `json:"user"`
	Loaded         bool         `json:"loaded"`
	Loading        bool         `json:"loading"`
	SelectedNoteID string       `json:"selected_note_id,omitempty"`
	Editing        bool         `json:"editing"`
	Search         string       `json:"search"`
	SelectedFolder string       `json:"selected_folder"`
	SelectedTags   []string     `json:"selected_tags"`
	TagMatch       string       `json:"tag_match"`
	Pending        []string     `json:"pending"`
	NoteCount      int          `json:"note_count"`
	FolderCount    int          `json:"folder_count"`
}

// Snapshot returns the current view state.
func (s *Store) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Loaded:         s.st.loaded,
		Loading:        s.st.loading,
		SelectedNoteID: s.st.selectedID,
		Editing:        s.st.editing,
		Search:         s.st.search,
		SelectedFolder: s.st.folder,
		SelectedTags:   append([]string{}, s.st.tags...),
		TagMatch:       s.tagMatch.String(),
		Pending:        append([]string{}, s.st.pending...),
		NoteCount:      len(s.st.notes),
		FolderCount:    len(s.st.folders),
	}
	if s.st.user != nil {
		u := *s.st.user
		v.User = &u
	}
	return v
}

func (st *state) indexOfNote(id string) int {
	return slices.IndexFunc(st.notes, func(n models.Note) bool { return n.ID == id })
}

func (st *state) indexOfFolder(id string) int {
	return slices.IndexFunc(st.folders, func(f models.Folder) bool { return f.ID == id })
}

func (st *state) isPending(id string) bool {
	return slices.Contains(st.pending, id)
}

func (st *state) enqueue(id string) {
	if !st.isPending(id) {
		st.pending = append(st.pending, id)
	}
}

func (st *state) dequeue(id string) {
	st.pending = slices.DeleteFunc(st.pending, func(p string) bool { return p == id })
}
