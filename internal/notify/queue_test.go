package notify

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestPush_AutoDismiss(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		duration time.Duration
	}{
		{"success", KindSuccess, 3 * time.Second},
		{"error", KindError, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewManualClock(epoch)
			q := NewQueue(WithClock(clock))

			n := q.Push(tt.kind, "hello")
			if !n.CreatedAt.Equal(epoch) {
				t.Errorf("CreatedAt = %v, want %v", n.CreatedAt, epoch)
			}

			clock.Advance(tt.duration - time.Millisecond)
			if _, ok := q.Current(); !ok {
				t.Fatal("notification dismissed too early")
			}

			clock.Advance(time.Millisecond)
			if _, ok := q.Current(); ok {
				t.Error("notification should be dismissed after its duration")
			}
		})
	}
}

func TestPush_Supersession(t *testing.T) {
	clock := NewManualClock(epoch)
	q := NewQueue(WithClock(clock))

	q.Success("first")
	clock.Advance(2 * time.Second)
	q.Success("second")

	// the first notification's original deadline passes
	clock.Advance(1500 * time.Millisecond)

	n, ok := q.Current()
	if !ok || n.Message != "second" {
		t.Fatalf("Current() = %+v, %v; want second still visible", n, ok)
	}

	clock.Advance(1500 * time.Millisecond)
	if _, ok := q.Current(); ok {
		t.Error("second notification should expire 3s after its push")
	}
}

// stubbornClock hands out timers whose Stop never works, so only the
// generation guard protects newer notifications
type stubbornClock struct {
	*ManualClock
}

type stubbornTimer struct{}

func (stubbornTimer) Stop() bool { return false }

func (c stubbornClock) AfterFunc(d time.Duration, f func()) Timer {
	c.ManualClock.AfterFunc(d, f)
	return stubbornTimer{}
}

func TestPush_StaleTimerCannotClearNewer(t *testing.T) {
	clock := stubbornClock{NewManualClock(epoch)}
	q := NewQueue(WithClock(clock))

	q.Success("first")
	clock.Advance(time.Second)
	q.Error("second")

	clock.Advance(2 * time.Second)
	if n, ok := q.Current(); !ok || n.Message != "second" {
		t.Fatalf("Current() = %+v, %v; stale timer cleared the newer notification", n, ok)
	}

	clock.Advance(3 * time.Second)
	if _, ok := q.Current(); ok {
		t.Error("second notification should have expired")
	}
}

func TestWithDurations(t *testing.T) {
	clock := NewManualClock(epoch)
	q := NewQueue(WithClock(clock), WithDurations(time.Second, 0))

	if q.Duration(KindSuccess) != time.Second {
		t.Errorf("success duration = %v, want 1s", q.Duration(KindSuccess))
	}
	if q.Duration(KindError) != DefaultErrorDuration {
		t.Errorf("zero should keep the default error duration, got %v", q.Duration(KindError))
	}

	q.Success("quick")
	clock.Advance(time.Second)
	if _, ok := q.Current(); ok {
		t.Error("notification should honour the configured duration")
	}
}

func TestDismiss(t *testing.T) {
	clock := NewManualClock(epoch)
	q := NewQueue(WithClock(clock))

	q.Error("boom")
	q.Dismiss()

	if _, ok := q.Current(); ok {
		t.Error("Dismiss() should clear the slot")
	}

	// dismissing an empty slot is harmless
	q.Dismiss()
}

func TestListeners(t *testing.T) {
	clock := NewManualClock(epoch)

	var mu sync.Mutex
	var events []string
	record := func(n Notification, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			events = append(events, "show:"+n.Message)
		} else {
			events = append(events, "clear")
		}
	}

	q := NewQueue(WithClock(clock), WithListener(record))
	q.Success("a")
	q.Success("b")
	clock.Advance(3 * time.Second)

	want := []string{"show:a", "show:b", "clear"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}

	subscribed := 0
	q.Subscribe(func(Notification, bool) { subscribed++ })
	q.Error("c")
	if subscribed != 1 {
		t.Errorf("subscriber called %d times, want 1", subscribed)
	}
}

func TestGenerationIncreases(t *testing.T) {
	q := NewQueue(WithClock(NewManualClock(epoch)))

	a := q.Success("a")
	b := q.Error("b")
	if b.Generation <= a.Generation {
		t.Errorf("generation %d should exceed %d", b.Generation, a.Generation)
	}
	if b.Kind.String() != "error" {
		t.Errorf("Kind = %s, want error", b.Kind)
	}
}
