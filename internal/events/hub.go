// Package events fans out session and transport events to observers such
// as the console printer.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultChannelBuffer = 64

// Type names an event.
type Type string

const (
	ModeChanged     Type = "session.mode"
	StepEntered     Type = "session.step"
	StepNarrated    Type = "session.narrated"
	LessonCompleted Type = "session.completed"
	Warning         Type = "session.warning"

	ConnectionStatus Type = "transport.status"
	LessonGenerating Type = "transport.generating"
	AIResponse       Type = "transport.ai_response"
	ServerError      Type = "transport.error"
)

// Event is a notification about playback or connection state.
type Event struct {
	Type      Type
	SessionID string
	Step      int
	Mode      string
	Message   string
	Time      time.Time
}

// Publisher accepts events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

// Filter selects events by type. An empty filter matches everything.
type Filter struct {
	Types []Type
}

func (f Filter) match(e Event) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Hub is an in-memory Publisher with channel subscriptions.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]*subscriber
	seq  atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// Publish sends an event to all matching subscribers.
// Non-blocking: if a subscriber's channel is full the event is dropped.
func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// backpressure: drop event for slow subscriber
		}
	}
}

// Subscribe creates a new subscription. The channel is closed when cancel
// is called or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, filter Filter) (<-chan Event, func()) {
	id := h.seq.Add(1)
	ch := make(chan Event, defaultChannelBuffer)

	h.mu.Lock()
	h.subs[id] = &subscriber{ch: ch, filter: filter}
	h.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
			close(stop)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()

	return ch, cancel
}
