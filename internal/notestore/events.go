package notestore

// EventKind names a state change that has been confirmed by the remote.
type EventKind string

const (
	NoteCreated   EventKind = "note.created"
	NoteUpdated   EventKind = "note.updated"
	NoteDeleted   EventKind = "note.deleted"
	FolderCreated EventKind = "folder.created"
	FolderDeleted EventKind = "folder.deleted"
	StoreLoaded   EventKind = "store.loaded"
	StoreReset    EventKind = "store.reset"
)

// Event is emitted after a mutation has been reconciled with the remote.
type Event struct {
	Kind EventKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	// PrevID is set when a note created locally received its remote id.
	PrevID string `json:"prev_id,omitempty"`
}

// Notification is a user-visible failure report.
type Notification struct {
	Op      string `json:"op"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Listener receives events and failure notifications from a Store.
// Methods are called without any store lock held, so they may read the store.
type Listener interface {
	OnEvent(Event)
	OnNotification(Notification)
}

type nopListener struct{}

func (nopListener) OnEvent(Event)               {}
func (nopListener) OnNotification(Notification) {}
