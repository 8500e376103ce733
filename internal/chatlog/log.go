// Package chatlog is the ordered in-memory log of chat turns shown to the
// visitor.
package chatlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Origin identifies who produced a message.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Greeting seeds every fresh log.
const Greeting = "Hi, I'm Astra. Hold Record or type to book an appointment."

// Message is one rendered chat entry.
type Message struct {
	ID     string
	Origin Origin
	Text   string
	Time   time.Time
}

// EventKind says what happened to the log.
type EventKind int

const (
	EventAppended EventKind = iota
	EventReplaced
	EventRemoved
	EventReset
)

// Event is delivered to subscribers after every mutation. Message is the
// affected entry (zero for EventReset).
type Event struct {
	Kind    EventKind
	Message Message
}

// Log is safe for concurrent use. Subscribers run synchronously after the
// lock is released, in registration order.
type Log struct {
	mu            sync.Mutex
	messages      []Message
	placeholderID string
	subscribers   []func(Event)
	now           func() time.Time
}

// New returns a log seeded with the greeting.
func New() *Log {
	l := &Log{now: time.Now}
	l.messages = []Message{l.newMessage(OriginAssistant, Greeting)}
	return l
}

// WithClock replaces the timestamp source. Used by tests.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now != nil {
		l.now = now
	}
	return l
}

// Subscribe registers fn for every subsequent event.
func (l *Log) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

// Append adds a message at the end and returns it.
func (l *Log) Append(origin Origin, text string) Message {
	l.mu.Lock()
	msg := l.newMessage(origin, text)
	l.messages = append(l.messages, msg)
	subs := l.subscribers
	l.mu.Unlock()

	l.emit(subs, Event{Kind: EventAppended, Message: msg})
	return msg
}

// ReplaceLastAssistant overwrites the most recent assistant message in place,
// or appends a new assistant message when there is none.
func (l *Log) ReplaceLastAssistant(text string) Message {
	l.mu.Lock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Origin != OriginAssistant || l.messages[i].ID == l.placeholderID {
			continue
		}
		l.messages[i].Text = text
		l.messages[i].Time = l.now()
		msg := l.messages[i]
		subs := l.subscribers
		l.mu.Unlock()
		l.emit(subs, Event{Kind: EventReplaced, Message: msg})
		return msg
	}
	l.mu.Unlock()
	return l.Append(OriginAssistant, text)
}

// SetPlaceholder shows a transient assistant entry, updating the existing
// one if present. At most one placeholder exists at a time.
func (l *Log) SetPlaceholder(text string) Message {
	l.mu.Lock()
	if l.placeholderID != "" {
		for i := range l.messages {
			if l.messages[i].ID != l.placeholderID {
				continue
			}
			l.messages[i].Text = text
			l.messages[i].Time = l.now()
			msg := l.messages[i]
			subs := l.subscribers
			l.mu.Unlock()
			l.emit(subs, Event{Kind: EventReplaced, Message: msg})
			return msg
		}
	}
	msg := l.newMessage(OriginAssistant, text)
	l.placeholderID = msg.ID
	l.messages = append(l.messages, msg)
	subs := l.subscribers
	l.mu.Unlock()

	l.emit(subs, Event{Kind: EventAppended, Message: msg})
	return msg
}

// ClearPlaceholder removes the placeholder if one is showing.
func (l *Log) ClearPlaceholder() {
	l.mu.Lock()
	if l.placeholderID == "" {
		l.mu.Unlock()
		return
	}
	var removed Message
	kept := l.messages[:0]
	for _, m := range l.messages {
		if m.ID == l.placeholderID {
			removed = m
			continue
		}
		kept = append(kept, m)
	}
	l.messages = kept
	l.placeholderID = ""
	subs := l.subscribers
	l.mu.Unlock()

	if removed.ID != "" {
		l.emit(subs, Event{Kind: EventRemoved, Message: removed})
	}
}

// HasPlaceholder reports whether a placeholder is showing.
func (l *Log) HasPlaceholder() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.placeholderID != ""
}

// Reset drops every message and re-seeds the greeting.
func (l *Log) Reset() {
	l.mu.Lock()
	l.messages = []Message{l.newMessage(OriginAssistant, Greeting)}
	l.placeholderID = ""
	subs := l.subscribers
	greeting := l.messages[0]
	l.mu.Unlock()

	l.emit(subs, Event{Kind: EventReset})
	l.emit(subs, Event{Kind: EventAppended, Message: greeting})
}

// Messages returns a copy of the log in insertion order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Last returns the newest message, if any.
func (l *Log) Last() (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

func (l *Log) newMessage(origin Origin, text string) Message {
	return Message{
		ID:     uuid.NewString(),
		Origin: origin,
		Text:   text,
		Time:   l.now(),
	}
}

func (l *Log) emit(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
