package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/session"
	"github.com/starford/journal/internal/sse"
	jtest "github.com/starford/journal/internal/testutil"
)

type recordingPublisher struct {
	mu           sync.Mutex
	events       map[string][]string
	disconnected []string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: map[string][]string{}}
}

func (p *recordingPublisher) Publish(user string, ev sse.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[user] = append(p.events[user], ev.Type)
}

func (p *recordingPublisher) PublishNoteEvent(user string, ev sse.Event) {
	p.Publish(user, ev)
}

func (p *recordingPublisher) Disconnect(user string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, user)
}

func (p *recordingPublisher) typesFor(user string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events[user]...)
}

var _ session.Publisher = (*recordingPublisher)(nil)

func TestManager_OpenLoadsSeededStore(t *testing.T) {
	db := jtest.TestDB(t)
	u := jtest.TestUser(t, db, "me@example.com")
	pub := newRecordingPublisher()
	m := metrics.New()
	mgr := session.NewManager(db, session.WithPublisher(pub), session.WithMetrics(m))

	s, err := mgr.Open(context.Background(), u)
	require.NoError(t, err)

	assert.Len(t, s.Folders(), 3)
	assert.Len(t, s.Notes(), 2)
	assert.Equal(t, []string{"store.loaded"}, pub.typesFor(u.ID))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	again, err := mgr.Open(context.Background(), u)
	require.NoError(t, err)
	assert.Same(t, s, again)

	got, ok := mgr.Get(u.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestManager_EventsReachUserStream(t *testing.T) {
	db := jtest.TestDB(t)
	u := jtest.TestUser(t, db, "me@example.com")
	pub := newRecordingPublisher()
	mgr := session.NewManager(db, session.WithPublisher(pub))
	ctx := context.Background()

	s, err := mgr.Open(ctx, u)
	require.NoError(t, err)
	n, err := s.CreateNote(ctx)
	require.NoError(t, err)
	n.Title = "Hello"
	_, err = s.SaveNote(ctx, n)
	require.NoError(t, err)

	n.Title = "Again"
	n.ID = "does-not-exist"
	_, err = s.SaveNote(ctx, n)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Contains(t, pub.typesFor(u.ID), "note.created")
}

func TestManager_FailuresAreNotified(t *testing.T) {
	db := jtest.TestDB(t)
	u := jtest.TestUser(t, db, "me@example.com")
	pub := newRecordingPublisher()
	m := metrics.New()
	mgr := session.NewManager(db, session.WithPublisher(pub), session.WithMetrics(m))
	ctx := context.Background()

	s, err := mgr.Open(ctx, u)
	require.NoError(t, err)
	var work models.Folder
	for _, f := range s.Folders() {
		if f.Name == "Work" {
			work = f
		}
	}
	require.NotEmpty(t, work.ID)

	require.NoError(t, db.Close())
	err = s.DeleteFolder(ctx, work.ID)
	require.ErrorIs(t, err, apperr.ErrUnavailable)

	assert.Contains(t, pub.typesFor(u.ID), session.NotificationEvent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreFailures.WithLabelValues("delete folder")))
	assert.Len(t, s.Folders(), 3)
}

func TestManager_CloseResetsStore(t *testing.T) {
	db := jtest.TestDB(t)
	u := jtest.TestUser(t, db, "me@example.com")
	pub := newRecordingPublisher()
	mgr := session.NewManager(db, session.WithPublisher(pub))

	s, err := mgr.Open(context.Background(), u)
	require.NoError(t, err)

	mgr.Close(u)

	_, ok := mgr.Get(u.ID)
	assert.False(t, ok)
	assert.Empty(t, s.Notes())
	_, signedIn := s.User()
	assert.False(t, signedIn)
	assert.Equal(t, []string{u.ID}, pub.disconnected)
	assert.Zero(t, mgr.Len())
}

func TestManager_FailedLoadIsNotCached(t *testing.T) {
	db := jtest.TestDB(t)
	mgr := session.NewManager(db)
	ghost := models.User{ID: "ghost", Email: "ghost@example.com"}

	// The user does not exist, so seeding its folders violates a foreign key.
	_, err := mgr.Open(context.Background(), ghost)
	require.Error(t, err)
	assert.Zero(t, mgr.Len())
}
