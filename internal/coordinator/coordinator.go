// Package coordinator tracks in-flight remote operations per
// (operation, entity) pair and lets only the most recently issued request
// of a pair update visible state.
package coordinator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/muurk/chronicle/internal/logging"
)

// Op names a logical remote operation
type Op string

const (
	OpFetch       Op = "fetch"
	OpSave        Op = "save"
	OpDelete      Op = "delete"
	OpFetchConfig Op = "fetch-config"
)

// Status is the state of the latest request of a pair
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Key identifies an operation on one entity. The settings singleton uses
// an empty Entity.
type Key struct {
	Op     Op
	Entity string
}

func (k Key) String() string {
	if k.Entity == "" {
		return string(k.Op)
	}
	return string(k.Op) + ":" + k.Entity
}

// Ticket is issued by Begin and presented to Complete
type Ticket struct {
	Key        Key
	Generation uint64
}

type slot struct {
	generation uint64
	status     Status
	err        error

	// state before the latest Begin, restored by Abandon
	prevStatus Status
	prevErr    error
}

// Coordinator is safe for concurrent use
type Coordinator struct {
	mu    sync.Mutex
	slots map[Key]*slot

	// generations are unique across pairs, so a forgotten pair can never
	// reissue a ticket an old request still holds
	next uint64
}

// New creates an empty coordinator
func New() *Coordinator {
	return &Coordinator{slots: make(map[Key]*slot)}
}

// Begin marks the pair pending and returns a ticket. Any earlier ticket of
// the same pair is superseded; its request is not cancelled, but its result
// will be discarded.
func (c *Coordinator) Begin(op Op, entity string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key{Op: op, Entity: entity}
	s, ok := c.slots[key]
	if !ok {
		s = &slot{}
		c.slots[key] = s
	}
	c.next++
	s.generation = c.next
	if s.status != StatusPending {
		s.prevStatus, s.prevErr = s.status, s.err
	}
	s.status = StatusPending
	s.err = nil

	return Ticket{Key: key, Generation: s.generation}
}

// Complete records the result of a request. When the ticket is still the
// latest for its pair, apply runs (if non-nil and err is nil) and the pair
// becomes succeeded or failed; Complete returns true. A superseded ticket is
// dropped without running apply and Complete returns false.
//
// apply runs under the coordinator lock so a later Complete of the same
// pair cannot interleave with it. It must not call back into the
// coordinator.
func (c *Coordinator) Complete(t Ticket, err error, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[t.Key]
	if !ok || s.generation != t.Generation {
		latest := uint64(0)
		if ok {
			latest = s.generation
		}
		logging.LogSuperseded(string(t.Key.Op), t.Key.Entity, t.Generation, latest)
		return false
	}

	if err != nil {
		s.status = StatusFailed
		s.err = err
		return true
	}

	if apply != nil {
		apply()
	}
	s.status = StatusSucceeded
	return true
}

// Abandon withdraws a request that was dropped without a result, returning
// the pair to the state it had before Begin. It reports false, and changes
// nothing, when t has already been superseded.
func (c *Coordinator) Abandon(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[t.Key]
	if !ok || s.generation != t.Generation {
		return false
	}
	s.status, s.err = s.prevStatus, s.prevErr
	return true
}

// Status returns the status of a pair, idle when never begun
func (c *Coordinator) Status(op Op, entity string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[Key{Op: op, Entity: entity}]; ok {
		return s.status
	}
	return StatusIdle
}

// Err returns the error of a failed pair
func (c *Coordinator) Err(op Op, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[Key{Op: op, Entity: entity}]; ok {
		return s.err
	}
	return nil
}

// IsPending reports whether the latest request of a pair is in flight
func (c *Coordinator) IsPending(op Op, entity string) bool {
	return c.Status(op, entity) == StatusPending
}

// IsCurrent reports whether t is still the latest ticket of its pair
func (c *Coordinator) IsCurrent(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[t.Key]
	return ok && s.generation == t.Generation
}

// Pending returns every pair with a request in flight, sorted
func (c *Coordinator) Pending() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []Key
	for k, s := range c.slots {
		if s.status == StatusPending {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Entity != keys[j].Entity {
			return keys[i].Entity < keys[j].Entity
		}
		return keys[i].Op < keys[j].Op
	})
	return keys
}

// Forget drops finished state for an entity, typically after it is
// deleted. Pairs still pending are kept so their tickets stay comparable.
func (c *Coordinator) Forget(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, s := range c.slots {
		if k.Entity == entity && s.status != StatusPending {
			delete(c.slots, k)
		}
	}
}
