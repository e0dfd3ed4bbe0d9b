// Package notify provides a single-slot notification surface with timed
// auto-dismiss. A new notification replaces the visible one; nothing is
// queued behind it.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/chronicle/internal/logging"
)

// Default display durations
const (
	DefaultSuccessDuration = 3 * time.Second
	DefaultErrorDuration   = 5 * time.Second
)

// Kind is the tone of a notification
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Notification is a transient message
type Notification struct {
	Kind      Kind
	Message   string
	CreatedAt time.Time

	// Generation increases with every Push
	Generation uint64
}

// Listener is called after every change. ok is false when the slot was
// cleared.
type Listener func(n Notification, ok bool)

// Queue holds at most one live notification. It is safe for concurrent use.
type Queue struct {
	mu sync.Mutex

	clock     Clock
	durations map[Kind]time.Duration

	current    *Notification
	generation uint64
	timer      Timer

	listeners []Listener
}

// Option configures a Queue
type Option func(*Queue)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

// WithDurations sets how long each kind stays visible. Zero keeps the default.
func WithDurations(success, failure time.Duration) Option {
	return func(q *Queue) {
		if success > 0 {
			q.durations[KindSuccess] = success
		}
		if failure > 0 {
			q.durations[KindError] = failure
		}
	}
}

// WithListener registers a change listener at construction
func WithListener(l Listener) Option {
	return func(q *Queue) {
		q.listeners = append(q.listeners, l)
	}
}

// NewQueue creates an empty queue
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		clock: realClock{},
		durations: map[Kind]time.Duration{
			KindSuccess: DefaultSuccessDuration,
			KindError:   DefaultErrorDuration,
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Subscribe adds a change listener
func (q *Queue) Subscribe(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, l)
}

// Duration returns how long a kind stays visible
func (q *Queue) Duration(kind Kind) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.durations[kind]
}

// Push replaces the visible notification and schedules its dismissal.
// A dismissal scheduled by an earlier push never clears this one.
func (q *Queue) Push(kind Kind, message string) Notification {
	q.mu.Lock()

	q.generation++
	n := Notification{
		Kind:       kind,
		Message:    message,
		CreatedAt:  q.clock.Now(),
		Generation: q.generation,
	}
	q.current = &n

	if q.timer != nil {
		q.timer.Stop()
	}
	gen := q.generation
	q.timer = q.clock.AfterFunc(q.durations[kind], func() {
		q.expire(gen)
	})

	listeners := q.snapshotListeners()
	q.mu.Unlock()

	logging.LogNotification(kind.String(), message)
	for _, l := range listeners {
		l(n, true)
	}
	return n
}

// Success pushes a success notification
func (q *Queue) Success(message string) Notification {
	return q.Push(KindSuccess, message)
}

// Error pushes an error notification
func (q *Queue) Error(message string) Notification {
	return q.Push(KindError, message)
}

// Current returns the visible notification, if any
func (q *Queue) Current() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil {
		return Notification{}, false
	}
	return *q.current, true
}

// Dismiss clears the visible notification immediately
func (q *Queue) Dismiss() {
	q.mu.Lock()
	if q.current == nil {
		q.mu.Unlock()
		return
	}
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.current = nil
	listeners := q.snapshotListeners()
	q.mu.Unlock()

	for _, l := range listeners {
		l(Notification{}, false)
	}
}

// expire clears the slot only if no push happened since gen was issued
func (q *Queue) expire(gen uint64) {
	q.mu.Lock()
	if q.current == nil || q.current.Generation != gen {
		q.mu.Unlock()
		return
	}
	q.current = nil
	q.timer = nil
	listeners := q.snapshotListeners()
	q.mu.Unlock()

	for _, l := range listeners {
		l(Notification{}, false)
	}
}

func (q *Queue) snapshotListeners() []Listener {
	return append([]Listener(nil), q.listeners...)
}
