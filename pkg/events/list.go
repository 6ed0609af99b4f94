// Package events holds event records and the shared, application-wide list
// that the event form appends to.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Categories offered by the event form.
var Categories = []string{"Festival", "Concert", "Outdoor", "Theatre", "Sport Event"}

// Record is one submitted event.
type Record struct {
	ID          string
	Title       string
	Description string
	Price       float64
	City        string
	Date        string // yyyy-mm-dd
	StartTime   string // hh:mm
	EndTime     string
	Category    string
	Seats       int
	Team        string
	CreatedAt   time.Time
}

// NewID generates a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// Appender is the one operation the event form needs from the list.
type Appender interface {
	Append(ctx context.Context, r Record)
}

// List is the shared event list. It is safe for concurrent use and lives as
// long as the process.
type List struct {
	records []Record
	subs    map[int]func(Record)
	nextSub int
	mu      sync.RWMutex
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// Append adds a record and notifies subscribers outside the lock.
func (l *List) Append(ctx context.Context, r Record) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.records = append(l.records, r)
	subs := make([]func(Record), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
}

// All returns a copy of the records in insertion order.
func (l *List) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Get looks a record up by ID.
func (l *List) Get(id string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, r := range l.records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Subscribe calls fn with every record appended until the returned cancel
// is called. fn runs on the appending goroutine and must not block.
func (l *List) Subscribe(fn func(Record)) (cancel func()) {
	l.mu.Lock()
	if l.subs == nil {
		l.subs = make(map[int]func(Record))
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}
