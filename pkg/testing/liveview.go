// Package testing provides a harness for driving live components without a
// browser or websocket connection.
package testing

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/gabrielmiguelok/eventboard/pkg/core"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

// LiveViewTest drives one mounted component.
type LiveViewTest struct {
	component core.Component
	transport *Recorder
	socket    *core.Socket
	params    core.Params
	session   core.Session
	rendered  string
	ctx       context.Context
	t         *testing.T
}

// MountOption configures the test mount.
type MountOption func(*LiveViewTest)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.params = params
	}
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.session = session
	}
}

// WithContext sets the context passed to every component call.
func WithContext(ctx context.Context) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.ctx = ctx
	}
}

// Mount creates and mounts a component for testing.
func Mount(t *testing.T, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lvt := &LiveViewTest{
		component: comp,
		transport: NewRecorder(),
		params:    core.Params{},
		session:   core.Session{},
		ctx:       context.Background(),
		t:         t,
	}
	for _, opt := range opts {
		opt(lvt)
	}

	lvt.socket = core.NewSocket(lvt.transport.ID(), lvt.transport)
	if aware, ok := comp.(core.SocketAware); ok {
		aware.SetSocket(lvt.socket)
	}

	if err := comp.Mount(lvt.ctx, lvt.params, lvt.session); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	lvt.render()
	return lvt
}

// Change sends a change event for one field.
func (lvt *LiveViewTest) Change(field, value string) *LiveViewTest {
	lvt.t.Helper()
	lvt.mustPush(protocol.EventChange, map[string]any{"field": field, "value": value})
	return lvt
}

// Submit sends a submit event carrying data as the form values.
func (lvt *LiveViewTest) Submit(data map[string]string) *LiveViewTest {
	lvt.t.Helper()
	lvt.mustPush(protocol.EventSubmit, submitPayload(data))
	return lvt
}

// SubmitErr is Submit for cases where the component is expected to fail.
// The component is re-rendered either way.
func (lvt *LiveViewTest) SubmitErr(data map[string]string) error {
	lvt.t.Helper()
	return lvt.PushEvent(protocol.EventSubmit, submitPayload(data))
}

func submitPayload(data map[string]string) map[string]any {
	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}
	return payload
}

// PushEvent delivers an arbitrary event, re-renders and returns the
// component's error.
func (lvt *LiveViewTest) PushEvent(event string, payload map[string]any) error {
	lvt.t.Helper()

	err := lvt.component.HandleEvent(lvt.ctx, event, payload)
	lvt.render()
	return err
}

func (lvt *LiveViewTest) mustPush(event string, payload map[string]any) {
	lvt.t.Helper()
	if err := lvt.PushEvent(event, payload); err != nil {
		lvt.t.Errorf("HandleEvent(%s) failed: %v", event, err)
	}
}

// SendInfo sends an info message to the component.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()

	if err := lvt.component.HandleInfo(lvt.ctx, msg); err != nil {
		lvt.t.Errorf("HandleInfo failed: %v", err)
		return lvt
	}
	lvt.render()
	return lvt
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()

	var buf bytes.Buffer
	if err := lvt.component.Render(lvt.ctx).Render(lvt.ctx, &buf); err != nil {
		lvt.t.Fatalf("Render failed: %v", err)
	}
	lvt.rendered = buf.String()
}

// Rendered returns the current rendered HTML.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// AssertHasElement verifies that the rendered output contains fragment,
// typically an opening tag with attributes.
func (lvt *LiveViewTest) AssertHasElement(fragment string) *LiveViewTest {
	lvt.t.Helper()
	if !strings.Contains(lvt.rendered, fragment) {
		lvt.t.Errorf("Element not found: %s\nRendered HTML:\n%s", fragment, lvt.rendered)
	}
	return lvt
}

// AssertNoElement verifies that fragment does not appear.
func (lvt *LiveViewTest) AssertNoElement(fragment string) *LiveViewTest {
	lvt.t.Helper()
	if strings.Contains(lvt.rendered, fragment) {
		lvt.t.Errorf("Element should not exist: %s", fragment)
	}
	return lvt
}

// AssertText verifies the rendered output contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()
	if !strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text not found: %q\nRendered HTML:\n%s", text, lvt.rendered)
	}
	return lvt
}

// AssertNoText verifies the rendered output does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()
	if strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text should not exist: %q", text)
	}
	return lvt
}

// AssertNavigated verifies the component navigated to path.
func (lvt *LiveViewTest) AssertNavigated(path string) *LiveViewTest {
	lvt.t.Helper()

	to, ok := lvt.socket.NavigateTarget()
	if !ok {
		lvt.t.Errorf("expected navigation to %s, component did not navigate", path)
		return lvt
	}
	if to != path {
		lvt.t.Errorf("expected navigation to %s, got %s", path, to)
	}
	if !slices.Contains(lvt.transport.Redirects(), path) {
		lvt.t.Errorf("expected a %s message to %s", protocol.EventRedirect, path)
	}
	return lvt
}

// AssertNotNavigated verifies the component stayed put.
func (lvt *LiveViewTest) AssertNotNavigated() *LiveViewTest {
	lvt.t.Helper()
	if to, ok := lvt.socket.NavigateTarget(); ok {
		lvt.t.Errorf("expected no navigation, got %s", to)
	}
	return lvt
}

// AssertSocketSentCount verifies the number of messages sent.
func (lvt *LiveViewTest) AssertSocketSentCount(count int) *LiveViewTest {
	lvt.t.Helper()
	if actual := len(lvt.transport.Messages()); actual != count {
		lvt.t.Errorf("Socket sent count mismatch: expected %d, got %d", count, actual)
	}
	return lvt
}

// Transport returns the recorder behind the component's socket.
func (lvt *LiveViewTest) Transport() *Recorder {
	return lvt.transport
}

// Socket returns the socket handed to the component.
func (lvt *LiveViewTest) Socket() *core.Socket {
	return lvt.socket
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}

// Terminate ends the component.
func (lvt *LiveViewTest) Terminate(reason core.TerminateReason) {
	lvt.t.Helper()
	if err := lvt.component.Terminate(lvt.ctx, reason); err != nil {
		lvt.t.Errorf("Terminate failed: %v", err)
	}
}
