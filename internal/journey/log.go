// Package journey holds the in-memory journey log: the ordered record of
// what a user did during a session, collapsed where consecutive events
// repeat, and drained/merged around each sync with the collection
// endpoint.
package journey

import (
	"sync"

	"github.com/vincentbai/journeytrace/internal/clock"
	"github.com/vincentbai/journeytrace/internal/models"
)

// Log is an ordered buffer of journey events.
//
// Thread-safe: Append, Drain and MergeBack are mutually exclusive, so an
// append racing a drain lands either in the drained snapshot or in the
// live log that a later MergeBack keeps. It is never lost or duplicated.
type Log struct {
	mu     sync.Mutex
	clock  clock.Clock
	events []*models.Event
}

// NewLog creates an empty Log that stamps events using c.
func NewLog(c clock.Clock) *Log {
	if c == nil {
		c = clock.Real()
	}
	return &Log{clock: c}
}

// Append stamps a copy of event with the current time and adds it to the
// log. When the event duplicates the current tail the tail's count is
// incremented instead and the copy is dropped.
//
// If the duplicate check cannot be decided (see IsDuplicate) the error is
// returned and the log is unchanged.
func (l *Log) Append(event *models.Event) error {
	record := event.Clone()
	if record == nil {
		record = &models.Event{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record.Set(models.KeyTimestamp, clock.Seconds(l.clock.Now()))

	if len(l.events) == 0 {
		l.events = []*models.Event{record}
		return nil
	}

	tail := l.events[len(l.events)-1]
	duplicate, err := IsDuplicate(tail, record)
	if err != nil {
		return err
	}
	if duplicate {
		tail.Set(models.KeyCount, tail.Count()+1)
		return nil
	}
	l.events = append(l.events, record)
	return nil
}

// AppendOutcome attaches the session's platform and tags (when set) to
// event before appending it. Because the duplicate check requires the
// tail to carry every key of the new event, changing platform or tags
// between two otherwise identical outcomes keeps them apart.
func (l *Log) AppendOutcome(event *models.Event, platform models.Platform, tags []string) error {
	record := event.Clone()
	if record == nil {
		record = &models.Event{}
	}
	if !platform.IsZero() {
		record.Set(models.KeyPlatform, platform)
	}
	if len(tags) > 0 {
		record.Set(models.KeyTags, append([]string(nil), tags...))
	}
	return l.Append(record)
}

// Drain takes every event out of the log and leaves it empty. Events
// appended afterwards belong to the new live log.
func (l *Log) Drain() []*models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := l.events
	l.events = nil
	return snapshot
}

// MergeBack restores a snapshot taken by Drain after a failed sync. The
// snapshot goes first and anything appended since the drain follows it.
func (l *Log) MergeBack(snapshot []*models.Event) {
	if len(snapshot) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make([]*models.Event, 0, len(snapshot)+len(l.events))
	merged = append(merged, snapshot...)
	merged = append(merged, l.events...)
	l.events = merged
}

// Events returns a copy of the current journey.
func (l *Log) Events() []*models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.Event, len(l.events))
	for i, e := range l.events {
		out[i] = e.Clone()
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Reset discards the journey.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
