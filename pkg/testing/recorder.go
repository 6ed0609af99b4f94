package testing

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

// Recorder is a core.Transport that keeps every message a component's
// socket sends.
type Recorder struct {
	id     string
	sent   []*protocol.Message
	closed bool
	fail   error
	mu     sync.Mutex
}

var _ core.Transport = (*Recorder)(nil)

// NewRecorder creates an open recorder with a random id.
func NewRecorder() *Recorder {
	return &Recorder{id: "test-" + uuid.NewString()[:8]}
}

// ID returns the socket id the recorder was created with.
func (r *Recorder) ID() string {
	return r.id
}

// Send records msg, or returns the error set with Fail.
func (r *Recorder) Send(msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.fail != nil:
		return r.fail
	case r.closed:
		return core.ErrSocketClosed
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Recorder) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// Fail makes every later Send return err. A nil err clears it.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

// Messages returns a copy of everything sent, oldest first.
func (r *Recorder) Messages() []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*protocol.Message(nil), r.sent...)
}

// Events returns the sent messages with the given event name.
func (r *Recorder) Events(event string) []*protocol.Message {
	var out []*protocol.Message
	for _, msg := range r.Messages() {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

// Redirects returns the destinations of every live_redirect sent.
func (r *Recorder) Redirects() []string {
	var out []string
	for _, msg := range r.Events(protocol.EventRedirect) {
		out = append(out, msg.String("to"))
	}
	return out
}
