// Package sse implements a Server-Sent Events broker that delivers each
// user's store events to that user's open streams.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Event represents an SSE event addressed to one user.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TagsUpdated is sent, throttled, after note changes so clients refresh
// their tag filter options.
const TagsUpdated = "tags.updated"

type subscription struct {
	user string
	ch   chan []byte
}

type publishReq struct {
	user  string
	event Event
	// noteChange marks events that may trigger a throttled TagsUpdated.
	noteChange bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithClientGauge tracks the number of connected streams in g.
func WithClientGauge(g prometheus.Gauge) Option {
	return func(b *Broker) { b.gauge = g }
}

// Broker manages SSE client connections and routes events to them.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients per user + tag throttle timestamps). Public methods communicate with
// this loop through channels, so no mutexes are required.
type Broker struct {
	tagsMin time.Duration
	gauge   prometheus.Gauge

	subscribeCh   chan subscription
	unsubscribeCh chan subscription
	disconnectCh  chan string
	publishCh     chan publishReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one TagsUpdated per user
// every tagsThrottle.
func NewBroker(tagsThrottle time.Duration, opts ...Option) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}

	b := &Broker{
		tagsMin:       tagsThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan subscription),
		disconnectCh:  make(chan string),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), true
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[string]map[chan []byte]struct{})
	lastTags := make(map[string]time.Time)
	total := 0

	setGauge := func() {
		if b.gauge != nil {
			b.gauge.Set(float64(total))
		}
	}

	send := func(user string, event Event) {
		raw, ok := encode(event)
		if !ok {
			return
		}
		for ch := range clients[user] {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	drop := func(user string, ch chan []byte) {
		set, ok := clients[user]
		if !ok {
			return
		}
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		close(ch)
		total--
		if len(set) == 0 {
			delete(clients, user)
			delete(lastTags, user)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for _, set := range clients {
				for ch := range set {
					close(ch)
				}
			}
			total = 0
			setGauge()
			return

		case sub := <-b.subscribeCh:
			set, ok := clients[sub.user]
			if !ok {
				set = make(map[chan []byte]struct{})
				clients[sub.user] = set
			}
			set[sub.ch] = struct{}{}
			total++
			setGauge()

		case sub := <-b.unsubscribeCh:
			drop(sub.user, sub.ch)
			setGauge()

		case user := <-b.disconnectCh:
			for ch := range clients[user] {
				drop(user, ch)
			}
			setGauge()

		case req := <-b.publishCh:
			send(req.user, req.event)
			if !req.noteChange {
				continue
			}
			now := time.Now()
			if now.Sub(lastTags[req.user]) >= b.tagsMin {
				lastTags[req.user] = now
				send(req.user, Event{Type: TagsUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- total
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a stream for user and returns its channel.
func (b *Broker) Subscribe(user string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{user: user, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a stream of user and closes its channel.
func (b *Broker) Unsubscribe(user string, ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- subscription{user: user, ch: ch}:
	case <-b.stopped:
	}
}

// Disconnect closes every stream of user, e.g. after sign-out.
func (b *Broker) Disconnect(user string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.disconnectCh <- user:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected streams across all users.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every stream of user.
func (b *Broker) Publish(user string, event Event) {
	b.publish(publishReq{user: user, event: event})
}

// PublishNoteEvent sends a note change to user followed, at most once per
// throttle interval, by TagsUpdated.
func (b *Broker) PublishNoteEvent(user string, event Event) {
	b.publish(publishReq{user: user, event: event, noteChange: true})
}

func (b *Broker) publish(req publishReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- req:
	case <-b.stopped:
	}
}

// ServeUser streams user's events over w until the request ends
// (GET /api/events).
func (b *Broker) ServeUser(w http.ResponseWriter, r *http.Request, user string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(user)
	defer b.Unsubscribe(user, ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
