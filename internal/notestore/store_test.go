package notestore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
)

var errBoom = errors.New("boom")

var testUser = models.User{ID: "u1", Email: "me@example.com"}

func seededRemote() *fakeRemote {
	r := newFakeRemote()
	r.folders = []models.Folder{
		{ID: "personal", Name: "Personal", Color: models.ColorGreen},
		{ID: "f1", Name: "Travel", Color: models.ColorBlue},
		{ID: "f2", Name: "Work", Color: models.ColorRed},
	}
	r.notes = []models.Note{
		{ID: "n1", Title: "Trip", Content: "Beach", Tags: []string{"fun"}, FolderID: "f1"},
		{ID: "n2", Title: "Work log", Content: "Meeting notes", Tags: []string{"work"}, FolderID: "f2"},
	}
	return r
}

func newLoadedStore(t *testing.T, r *fakeRemote, opts ...notestore.Option) (*notestore.Store, *recorder) {
	t.Helper()
	l := &recorder{}
	seq := 0
	base := []notestore.Option{
		notestore.WithListener(l),
		notestore.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("local-%d", seq)
		}),
		notestore.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }),
	}
	s := notestore.New(r, testUser, append(base, opts...)...)
	require.NoError(t, s.Load(context.Background()))
	return s, l
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestStore_Load(t *testing.T) {
	r := seededRemote()
	s, l := newLoadedStore(t, r)

	assert.Equal(t, []string{"EnsureDefaultFolders", "ListFolders", "EnsureDefaultNotes", "ListNotes"}, r.callLog())
	assert.Len(t, s.Folders(), 3)
	assert.Equal(t, []string{"n1", "n2"}, ids(s.Notes()))

	v := s.Snapshot()
	assert.True(t, v.Loaded)
	assert.False(t, v.Loading)
	assert.Equal(t, notestore.AllFolders, v.SelectedFolder)
	require.NotNil(t, v.User)
	assert.Equal(t, "u1", v.User.ID)
	assert.Equal(t, notestore.StoreLoaded, l.events[len(l.events)-1].Kind)
}

func TestStore_LoadFailureNotifies(t *testing.T) {
	r := seededRemote()
	r.fail["ListNotes"] = errBoom
	l := &recorder{}
	s := notestore.New(r, testUser, notestore.WithListener(l))

	err := s.Load(context.Background())

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, l.notified())
	assert.Equal(t, "load", l.notifications[0].Op)
	v := s.Snapshot()
	assert.False(t, v.Loading)
	assert.False(t, v.Loaded)
}

func TestStore_SearchMatchesContentCaseInsensitive(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	s.SetSearch("beach")

	assert.Equal(t, []string{"n1"}, ids(s.Visible()))
}

func TestStore_TagFilterWithAllFolders(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	s.SetSelectedTags([]string{"work"})

	assert.Equal(t, notestore.AllFolders, s.Snapshot().SelectedFolder)
	assert.Equal(t, []string{"n2"}, ids(s.Visible()))
}

func TestStore_TagFilterAnyVersusAll(t *testing.T) {
	r := seededRemote()
	anyStore, _ := newLoadedStore(t, r)
	anyStore.SetSelectedTags([]string{"fun", "work"})
	assert.Equal(t, []string{"n1", "n2"}, ids(anyStore.Visible()))

	allStore, _ := newLoadedStore(t, seededRemote(), notestore.WithTagMatch(notestore.MatchAll))
	allStore.SetSelectedTags([]string{"fun", "work"})
	assert.Empty(t, allStore.Visible())
}

func TestStore_ToggleTag(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	s.ToggleTag("fun")
	assert.Equal(t, []string{"n1"}, ids(s.Visible()))
	s.ToggleTag("fun")
	assert.Equal(t, []string{"n1", "n2"}, ids(s.Visible()))
}

func TestStore_SelectFolder(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	require.NoError(t, s.SelectFolder("f2"))
	assert.Equal(t, []string{"n2"}, ids(s.Visible()))

	assert.ErrorIs(t, s.SelectFolder("nope"), apperr.ErrNotFound)
	assert.Equal(t, "f2", s.Snapshot().SelectedFolder)
}

func TestStore_CreateNoteUsesFallbackWhenAllSelected(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	n, err := s.CreateNote(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "personal", n.FolderID)
	assert.Equal(t, models.DefaultNoteTitle, n.Title)
	assert.Empty(t, n.Content)
	assert.Empty(t, n.Tags)
	assert.Equal(t, n.ID, s.Notes()[0].ID)

	v := s.Snapshot()
	assert.Equal(t, n.ID, v.SelectedNoteID)
	assert.True(t, v.Editing)
}

func TestStore_CreateNoteUsesSelectedFolder(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())
	require.NoError(t, s.SelectFolder("f2"))

	n, err := s.CreateNote(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "f2", n.FolderID)
}

func TestStore_CreateNoteFirstFolderStrategy(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote(),
		notestore.WithFallback(notestore.Fallback{Strategy: notestore.FallbackFirst}))

	n, err := s.CreateNote(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "personal", n.FolderID)
}

func TestStore_CreateNoteWithoutFallback(t *testing.T) {
	r := seededRemote()
	r.folders = r.folders[1:]
	s, _ := newLoadedStore(t, r)

	_, err := s.CreateNote(context.Background())

	assert.ErrorIs(t, err, apperr.ErrNoFallbackFolder)
	assert.Len(t, s.Notes(), 2)
}

func TestStore_CreateThenCancelLeavesCollectionUnchanged(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)
	before := len(s.Notes())

	n, err := s.CreateNote(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.CancelEdit(context.Background(), n.ID))

	assert.Len(t, s.Notes(), before)
	v := s.Snapshot()
	assert.Empty(t, v.SelectedNoteID)
	assert.False(t, v.Editing)
	assert.NotContains(t, r.callLog(), "CreateNote")
}

func TestStore_FirstSaveCreatesRemotely(t *testing.T) {
	r := seededRemote()
	s, l := newLoadedStore(t, r)
	n, err := s.CreateNote(context.Background())
	require.NoError(t, err)

	n.Title = "Groceries"
	n.Tags = []string{" food ", "food", "", "Food"}
	saved, err := s.SaveNote(context.Background(), n)

	require.NoError(t, err)
	assert.NotEqual(t, n.ID, saved.ID)
	assert.Equal(t, []string{"food", "Food"}, saved.Tags)

	_, ok := s.Note(n.ID)
	assert.False(t, ok)
	got, ok := s.Note(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Groceries", got.Title)

	v := s.Snapshot()
	assert.Equal(t, saved.ID, v.SelectedNoteID)
	assert.False(t, v.Editing)
	assert.Contains(t, l.events, notestore.Event{Kind: notestore.NoteCreated, ID: saved.ID, PrevID: n.ID})
}

func TestStore_SaveUpdatesExistingNote(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)
	require.NoError(t, s.StartEditing("n1"))

	n, _ := s.Note("n1")
	n.Content = "Beach and mountains"
	saved, err := s.SaveNote(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, "n1", saved.ID)
	assert.Contains(t, r.callLog(), "UpdateNote:n1")
	assert.False(t, s.Snapshot().Editing)
}

func TestStore_SaveRejectsUnknownFolder(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	n, _ := s.Note("n1")
	n.FolderID = "missing"
	_, err := s.SaveNote(context.Background(), n)

	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStore_SaveFailureKeepsEditsAndQueues(t *testing.T) {
	r := seededRemote()
	s, l := newLoadedStore(t, r)
	require.NoError(t, s.StartEditing("n1"))
	r.fail["UpdateNote"] = errBoom

	n, _ := s.Note("n1")
	n.Content = "unsaved words"
	_, err := s.SaveNote(context.Background(), n)

	require.ErrorIs(t, err, errBoom)
	got, _ := s.Note("n1")
	assert.Equal(t, "unsaved words", got.Content)
	assert.True(t, s.Snapshot().Editing)
	assert.Equal(t, []string{"n1"}, s.Pending())
	assert.Equal(t, 1, l.notified())

	delete(r.fail, "UpdateNote")
	require.NoError(t, s.RetryPending(context.Background()))
	assert.Empty(t, s.Pending())
	assert.Equal(t, "unsaved words", r.notes[0].Content)
}

func TestStore_CancelRevertsToSavedVersion(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)
	r.fail["UpdateNote"] = errBoom

	n, _ := s.Note("n1")
	n.Content = "draft"
	_, err := s.SaveNote(context.Background(), n)
	require.Error(t, err)

	require.NoError(t, s.CancelEdit(context.Background(), "n1"))

	got, _ := s.Note("n1")
	assert.Equal(t, "Beach", got.Content)
	assert.Empty(t, s.Pending())
}

func TestStore_CancelKeepsUnsavedNonBlankNote(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)
	r.fail["CreateNote"] = errBoom

	n, err := s.CreateNote(context.Background())
	require.NoError(t, err)
	n.Content = "precious"
	_, err = s.SaveNote(context.Background(), n)
	require.Error(t, err)

	require.NoError(t, s.CancelEdit(context.Background(), n.ID))

	got, ok := s.Note(n.ID)
	require.True(t, ok)
	assert.Equal(t, "precious", got.Content)
	assert.Equal(t, []string{n.ID}, s.Pending())
	assert.False(t, s.Snapshot().Editing)
}

func TestStore_DeleteSelectedNote(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)
	require.NoError(t, s.StartEditing("n2"))

	require.NoError(t, s.DeleteNote(context.Background(), "n2"))

	assert.Equal(t, []string{"n1"}, ids(s.Notes()))
	v := s.Snapshot()
	assert.Empty(t, v.SelectedNoteID)
	assert.False(t, v.Editing)
	assert.Contains(t, r.callLog(), "DeleteNote:n2")
}

func TestStore_DeleteFailureRestoresPosition(t *testing.T) {
	r := seededRemote()
	s, l := newLoadedStore(t, r)
	r.fail["DeleteNote"] = errBoom

	err := s.DeleteNote(context.Background(), "n1")

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"n1", "n2"}, ids(s.Notes()))
	assert.Equal(t, 1, l.notified())
}

func TestStore_DeleteUnknownNote(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	assert.ErrorIs(t, s.DeleteNote(context.Background(), "ghost"), apperr.ErrNotFound)
}

func TestStore_AddFolder(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)

	f, err := s.AddFolder(context.Background(), "  Recipes ", models.ColorOrange)

	require.NoError(t, err)
	assert.Equal(t, "Recipes", f.Name)
	folders := s.Folders()
	assert.Equal(t, f, folders[len(folders)-1])
}

func TestStore_AddFolderValidation(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())

	_, err := s.AddFolder(context.Background(), "  ", models.ColorBlue)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.AddFolder(context.Background(), "Recipes", "bg-black-900")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Len(t, s.Folders(), 3)
}

func TestStore_AddFolderFailureRemovesOptimisticFolder(t *testing.T) {
	r := seededRemote()
	s, l := newLoadedStore(t, r)
	r.fail["CreateFolder"] = errBoom

	_, err := s.AddFolder(context.Background(), "Recipes", "")

	require.ErrorIs(t, err, errBoom)
	assert.Len(t, s.Folders(), 3)
	assert.Equal(t, 1, l.notified())
}

func TestStore_DeleteFolderReassignsBeforeRemoval(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)

	require.NoError(t, s.DeleteFolder(context.Background(), "f1"))

	calls := r.callLog()
	assert.Equal(t, []string{"UpdateNote:n1", "DeleteFolder:f1"}, calls[len(calls)-2:])
	n1, _ := s.Note("n1")
	assert.Equal(t, "personal", n1.FolderID)
	for _, f := range s.Folders() {
		assert.NotEqual(t, "f1", f.ID)
	}
}

func TestStore_DeleteSelectedFolderResetsFilter(t *testing.T) {
	s, _ := newLoadedStore(t, seededRemote())
	require.NoError(t, s.SelectFolder("f2"))

	require.NoError(t, s.DeleteFolder(context.Background(), "f2"))

	assert.Equal(t, notestore.AllFolders, s.Snapshot().SelectedFolder)
	assert.Len(t, s.Visible(), 2)
}

func TestStore_DeleteFolderReassignFailureKeepsFolder(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r)
	r.fail["UpdateNote:n1"] = errBoom

	err := s.DeleteFolder(context.Background(), "f1")

	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "reassigned 0 of 1")
	assert.Len(t, s.Folders(), 3)
	n1, _ := s.Note("n1")
	assert.Equal(t, "f1", n1.FolderID)
	assert.NotContains(t, r.callLog(), "DeleteFolder:f1")
}

func TestStore_DeleteFallbackFolderUsesAnotherCandidate(t *testing.T) {
	r := seededRemote()
	s, _ := newLoadedStore(t, r,
		notestore.WithFallback(notestore.Fallback{Strategy: notestore.FallbackFirst}))
	_, err := s.CreateNote(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.DeleteFolder(context.Background(), "personal"))

	for _, n := range s.Notes() {
		assert.NotEqual(t, "personal", n.FolderID)
	}
}

func TestStore_DeleteFolderWithoutFallback(t *testing.T) {
	r := seededRemote()
	r.folders = r.folders[1:]
	s, _ := newLoadedStore(t, r)

	err := s.DeleteFolder(context.Background(), "f1")

	assert.ErrorIs(t, err, apperr.ErrNoFallbackFolder)
	assert.Len(t, s.Folders(), 2)
}

func TestStore_FolderOfDanglingReference(t *testing.T) {
	r := seededRemote()
	r.notes = append(r.notes, models.Note{ID: "n3", Title: "Orphan", FolderID: "gone"})
	s, _ := newLoadedStore(t, r)

	n3, ok := s.Note("n3")
	require.True(t, ok)
	assert.Equal(t, models.Unassigned(), s.FolderOf(n3))
}

func TestStore_ResetClearsEverything(t *testing.T) {
	s, l := newLoadedStore(t, seededRemote())
	require.NoError(t, s.StartEditing("n1"))
	s.SetSearch("x")

	s.Reset()

	assert.Empty(t, s.Notes())
	assert.Empty(t, s.Folders())
	v := s.Snapshot()
	assert.Nil(t, v.User)
	assert.Empty(t, v.SelectedNoteID)
	assert.Empty(t, v.Search)
	assert.Equal(t, notestore.StoreReset, l.events[len(l.events)-1].Kind)

	_, err := s.CreateNote(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	assert.ErrorIs(t, s.Load(context.Background()), apperr.ErrNotAuthenticated)
}

func TestStore_ReadsDuringRemoteCall(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})
	slow := &blockingRemote{fakeRemote: seededRemote(), entered: blocked, release: release}
	s2 := notestore.New(slow, testUser)
	require.NoError(t, s2.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s2.DeleteNote(context.Background(), "n1") }()

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("remote delete never started")
	}
	assert.Equal(t, []string{"n2"}, ids(s2.Visible()))
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delete did not finish")
	}
}

// blockingRemote parks DeleteNote until release is closed.
type blockingRemote struct {
	*fakeRemote
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) DeleteNote(ctx context.Context, id string) error {
	close(b.entered)
	<-b.release
	return b.fakeRemote.DeleteNote(ctx, id)
}
