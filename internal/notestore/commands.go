package notestore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
)

// command is one store mutation. apply and reconcile/correct run under the
// state lock; persist runs without it.
type command interface {
	op() string
	// apply validates the command and makes the optimistic local change.
	apply(st *state, s *Store) error
	// persist performs the remote side effect. Local-only commands return nil.
	persist(ctx context.Context, r Remote) error
	// reconcile folds the remote result into the state after persist succeeded.
	reconcile(st *state)
	// correct repairs the state after persist failed.
	correct(st *state)
	events() []Event
}

// createNote inserts a local placeholder note.
type createNote struct {
	note models.Note
}

func (c *createNote) op() string { return "create note" }

func (c *createNote) apply(st *state, s *Store) error {
	folderID := st.folder
	if folderID == "" || folderID == AllFolders {
		f, ok := s.fallback.Resolve(st.folders, "")
		if !ok {
			return apperr.ErrNoFallbackFolder
		}
		folderID = f.ID
	}
	now := s.now()
	c.note = models.Note{
		ID:        s.newID(),
		Title:     models.DefaultNoteTitle,
		Tags:      []string{},
		FolderID:  folderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st.notes = append([]models.Note{c.note}, st.notes...)
	st.selectedID = c.note.ID
	st.editing = true
	return nil
}

func (c *createNote) persist(context.Context, Remote) error { return nil }
func (c *createNote) reconcile(*state)                      {}
func (c *createNote) correct(*state)                        {}
func (c *createNote) events() []Event                       { return nil }

// saveNote replaces a stored note and persists it, creating it remotely on
// its first save.
type saveNote struct {
	payload models.Note
	retry   bool

	local       models.Note
	persisted   bool
	selected    bool
	prevEditing bool
	result      models.Note
}

func (c *saveNote) op() string { return "save note" }

func (c *saveNote) apply(st *state, s *Store) error {
	i := st.indexOfNote(c.payload.ID)
	if i < 0 {
		return fmt.Errorf("note %s: %w", c.payload.ID, apperr.ErrNotFound)
	}
	if st.indexOfFolder(c.payload.FolderID) < 0 {
		return fmt.Errorf("folder %q does not exist: %w", c.payload.FolderID, apperr.ErrValidation)
	}

	n := c.payload.Clone()
	n.Tags = NormalizeTags(n.Tags)
	n.CreatedAt = st.notes[i].CreatedAt
	n.UpdatedAt = s.now()
	st.notes[i] = n
	c.local = n.Clone()
	_, c.persisted = st.saved[n.ID]

	if !c.retry && st.selectedID == n.ID {
		c.selected = true
		c.prevEditing = st.editing
		st.editing = false
	}
	return nil
}

func (c *saveNote) persist(ctx context.Context, r Remote) error {
	var err error
	if c.persisted {
		c.result, err = r.UpdateNote(ctx, c.local.ID, c.local.Input())
	} else {
		c.result, err = r.CreateNote(ctx, c.local.Input())
	}
	return err
}

func (c *saveNote) reconcile(st *state) {
	if i := st.indexOfNote(c.local.ID); i >= 0 {
		st.notes[i] = c.result.Clone()
	}
	if st.selectedID == c.local.ID {
		st.selectedID = c.result.ID
	}
	delete(st.saved, c.local.ID)
	st.saved[c.result.ID] = c.result.Clone()
	st.dequeue(c.local.ID)
}

func (c *saveNote) correct(st *state) {
	st.enqueue(c.local.ID)
	if c.selected && st.selectedID == c.local.ID {
		st.editing = c.prevEditing
	}
}

func (c *saveNote) events() []Event {
	if !c.persisted {
		return []Event{{Kind: NoteCreated, ID: c.result.ID, PrevID: c.local.ID}}
	}
	return []Event{{Kind: NoteUpdated, ID: c.result.ID}}
}

// cancelEdit leaves editing mode, discarding or reverting local edits.
type cancelEdit struct {
	id      string
	removed bool
}

func (c *cancelEdit) op() string { return "cancel edit" }

func (c *cancelEdit) apply(st *state, _ *Store) error {
	i := st.indexOfNote(c.id)
	if i < 0 {
		return fmt.Errorf("note %s: %w", c.id, apperr.ErrNotFound)
	}
	saved, persisted := st.saved[c.id]
	switch {
	case !persisted && st.notes[i].IsBlank():
		st.notes = slices.Delete(st.notes, i, i+1)
		st.dequeue(c.id)
		c.removed = true
	case persisted:
		st.notes[i] = saved.Clone()
		st.dequeue(c.id)
	}
	if st.selectedID == c.id {
		st.editing = false
		if c.removed {
			st.selectedID = ""
		}
	}
	return nil
}

func (c *cancelEdit) persist(context.Context, Remote) error { return nil }
func (c *cancelEdit) reconcile(*state)                      {}
func (c *cancelEdit) correct(*state)                        {}
func (c *cancelEdit) events() []Event                       { return nil }

// deleteNote removes a note, restoring it if the remote delete fails.
type deleteNote struct {
	id string

	index      int
	note       models.Note
	persisted  bool
	wasPending bool
}

func (c *deleteNote) op() string { return "delete note" }

func (c *deleteNote) apply(st *state, _ *Store) error {
	i := st.indexOfNote(c.id)
	if i < 0 {
		return fmt.Errorf("note %s: %w", c.id, apperr.ErrNotFound)
	}
	c.index = i
	c.note = st.notes[i]
	_, c.persisted = st.saved[c.id]
	c.wasPending = st.isPending(c.id)

	st.notes = slices.Delete(st.notes, i, i+1)
	st.dequeue(c.id)
	if st.selectedID == c.id {
		st.selectedID = ""
		st.editing = false
	}
	return nil
}

func (c *deleteNote) persist(ctx context.Context, r Remote) error {
	if !c.persisted {
		return nil
	}
	return r.DeleteNote(ctx, c.id)
}

func (c *deleteNote) reconcile(st *state) {
	delete(st.saved, c.id)
}

func (c *deleteNote) correct(st *state) {
	at := min(c.index, len(st.notes))
	st.notes = slices.Insert(st.notes, at, c.note)
	if c.wasPending {
		st.enqueue(c.id)
	}
}

func (c *deleteNote) events() []Event {
	return []Event{{Kind: NoteDeleted, ID: c.id}}
}

// addFolder appends a folder under a temporary id until the remote assigns one.
type addFolder struct {
	name  string
	color string

	temp   models.Folder
	result models.Folder
}

func (c *addFolder) op() string { return "add folder" }

func (c *addFolder) apply(st *state, s *Store) error {
	c.name = strings.TrimSpace(c.name)
	if c.color == "" {
		c.color = models.DefaultColor
	}
	err := validation.Errors{
		"name":  validation.Validate(c.name, validation.Required, validation.Length(1, 100)),
		"color": validation.Validate(c.color, validation.In(models.PaletteValues()...)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	c.temp = models.Folder{ID: s.newID(), Name: c.name, Color: c.color}
	st.folders = append(st.folders, c.temp)
	return nil
}

func (c *addFolder) persist(ctx context.Context, r Remote) error {
	var err error
	c.result, err = r.CreateFolder(ctx, c.name, c.color)
	return err
}

func (c *addFolder) reconcile(st *state) {
	if i := st.indexOfFolder(c.temp.ID); i >= 0 {
		st.folders[i] = c.result
	}
	if st.folder == c.temp.ID {
		st.folder = c.result.ID
	}
}

func (c *addFolder) correct(st *state) {
	if i := st.indexOfFolder(c.temp.ID); i >= 0 {
		st.folders = slices.Delete(st.folders, i, i+1)
	}
	if st.folder == c.temp.ID {
		st.folder = AllFolders
	}
}

func (c *addFolder) events() []Event {
	return []Event{{Kind: FolderCreated, ID: c.result.ID}}
}

// reassignNote moves one note to another folder. Only the last persisted
// version is sent, so unsaved edits stay unsaved.
type reassignNote struct {
	id       string
	folderID string

	prevFolder string
	saved      models.Note
	persisted  bool
	result     models.Note
}

func (c *reassignNote) op() string { return "reassign note" }

func (c *reassignNote) apply(st *state, _ *Store) error {
	i := st.indexOfNote(c.id)
	if i < 0 {
		return fmt.Errorf("note %s: %w", c.id, apperr.ErrNotFound)
	}
	c.prevFolder = st.notes[i].FolderID
	c.saved, c.persisted = st.saved[c.id]
	st.notes[i].FolderID = c.folderID
	return nil
}

func (c *reassignNote) persist(ctx context.Context, r Remote) error {
	if !c.persisted {
		return nil
	}
	in := c.saved.Input()
	in.FolderID = c.folderID
	var err error
	c.result, err = r.UpdateNote(ctx, c.id, in)
	return err
}

func (c *reassignNote) reconcile(st *state) {
	if !c.persisted {
		return
	}
	st.saved[c.id] = c.result.Clone()
	if i := st.indexOfNote(c.id); i >= 0 && !st.isPending(c.id) {
		st.notes[i] = c.result.Clone()
	}
}

func (c *reassignNote) correct(st *state) {
	if i := st.indexOfNote(c.id); i >= 0 {
		st.notes[i].FolderID = c.prevFolder
	}
}

func (c *reassignNote) events() []Event {
	return []Event{{Kind: NoteUpdated, ID: c.id}}
}

// deleteFolder removes an empty folder once the remote confirms.
type deleteFolder struct {
	id string
}

func (c *deleteFolder) op() string { return "delete folder" }

func (c *deleteFolder) apply(st *state, _ *Store) error {
	if st.indexOfFolder(c.id) < 0 {
		return fmt.Errorf("folder %s: %w", c.id, apperr.ErrNotFound)
	}
	for _, n := range st.notes {
		if n.FolderID == c.id {
			return fmt.Errorf("folder %s still holds note %s: %w", c.id, n.ID, apperr.ErrConflict)
		}
	}
	return nil
}

func (c *deleteFolder) persist(ctx context.Context, r Remote) error {
	return r.DeleteFolder(ctx, c.id)
}

func (c *deleteFolder) reconcile(st *state) {
	if i := st.indexOfFolder(c.id); i >= 0 {
		st.folders = slices.Delete(st.folders, i, i+1)
	}
	if st.folder == c.id {
		st.folder = AllFolders
	}
}

func (c *deleteFolder) correct(*state) {}

func (c *deleteFolder) events() []Event {
	return []Event{{Kind: FolderDeleted, ID: c.id}}
}
