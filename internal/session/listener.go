package session

import (
	"log/slog"

	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/sse"
)

// NotificationEvent is the SSE event type carrying user-visible failures.
const NotificationEvent = "notification"

// listener logs store activity and forwards it to the user's streams.
type listener struct {
	user    models.User
	pub     Publisher
	log     *slog.Logger
	metrics *metrics.Metrics
}

func (l *listener) OnEvent(ev notestore.Event) {
	l.log.Debug("store event",
		slog.String("user", l.user.ID),
		slog.String("kind", string(ev.Kind)),
		slog.String("id", ev.ID),
	)
	if l.pub == nil {
		return
	}
	out := sse.Event{Type: string(ev.Kind), Data: ev}
	switch ev.Kind {
	case notestore.NoteCreated, notestore.NoteUpdated, notestore.NoteDeleted:
		l.pub.PublishNoteEvent(l.user.ID, out)
	default:
		l.pub.Publish(l.user.ID, out)
	}
}

func (l *listener) OnNotification(n notestore.Notification) {
	l.log.Warn("store operation failed",
		slog.String("user", l.user.ID),
		slog.String("op", n.Op),
		slog.String("error", n.Message),
	)
	if l.metrics != nil {
		l.metrics.StoreFailures.WithLabelValues(n.Op).Inc()
	}
	if l.pub != nil {
		l.pub.Publish(l.user.ID, sse.Event{Type: NotificationEvent, Data: n})
	}
}
