package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

func TestCounterVec_Concurrent(t *testing.T) {
	cv := NewCounterVec("hits", "Hits.", "event")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cv.Inc("change")
		}()
	}
	wg.Wait()

	assert.Equal(t, map[string]float64{"change": 50}, cv.Values())
}

func TestHistogram_Stats(t *testing.T) {
	h := NewHistogram("latency", "Latency.")
	assert.Equal(t, HistogramStats{}, h.Stats())

	h.Observe(2)
	h.ObserveDuration(4 * time.Second)

	assert.Equal(t, HistogramStats{Count: 2, Sum: 6, Min: 2, Max: 4, Avg: 3}, h.Stats())
}

func TestMiddleware(t *testing.T) {
	m := New("test")
	errBad := errors.New("bad")

	mux := protocol.NewMux()
	mux.Use(m.Middleware())
	mux.OnFunc(protocol.EventHeartbeat, func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		return nil, nil
	})
	mux.Fallback(func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		return nil, errBad
	})

	_, err := mux.HandleMessage(context.Background(), protocol.NewMessage("t", protocol.EventHeartbeat, nil))
	require.NoError(t, err)
	_, err = mux.HandleMessage(context.Background(), protocol.NewMessage("t", protocol.EventSubmit, nil))
	require.ErrorIs(t, err, errBad)

	assert.Equal(t, map[string]float64{protocol.EventHeartbeat: 1, protocol.EventSubmit: 1}, m.MessagesReceived.Values())
	assert.Equal(t, map[string]float64{protocol.EventSubmit: 1}, m.MessageErrors.Values())
	assert.Equal(t, int64(2), m.MessageLatency.Stats().Count)
}

func TestMiddleware_UnknownEventsShareOneLabel(t *testing.T) {
	m := New("test")

	mux := protocol.NewMux()
	mux.Use(m.Middleware())
	mux.Fallback(func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
		return nil, errors.New("unknown event")
	})

	for i := 0; i < 100; i++ {
		mux.HandleMessage(context.Background(), protocol.NewMessage("t", fmt.Sprintf("event-%d", i), nil))
	}
	mux.HandleMessage(context.Background(), protocol.NewMessage("t", protocol.EventChange, nil))

	assert.Equal(t, map[string]float64{OtherEvent: 100, protocol.EventChange: 1}, m.MessagesReceived.Values())
	assert.Equal(t, map[string]float64{OtherEvent: 100, protocol.EventChange: 1}, m.MessageErrors.Values())
}

func TestEventLabel(t *testing.T) {
	assert.Equal(t, protocol.EventSubmit, EventLabel(protocol.EventSubmit))
	assert.Equal(t, OtherEvent, EventLabel(""))
	assert.Equal(t, OtherEvent, EventLabel(protocol.EventDiff), "server events are not client events")
}

func TestHandler(t *testing.T) {
	m := New("eventboard")
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()
	m.EventsAdded.Inc()
	m.MessagesReceived.Inc("submit")
	m.MessagesReceived.Inc("change")
	m.RenderDuration.Observe(0.5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	body := rec.Body.String()
	for _, line := range []string{
		"# TYPE eventboard_sockets_active gauge",
		"eventboard_sockets_active 1\n",
		"eventboard_sockets_total 2\n",
		"eventboard_events_added_total 1\n",
		"eventboard_render_duration_seconds_sum 0.5\n",
		"eventboard_render_duration_seconds_count 1\n",
	} {
		assert.Contains(t, body, line)
	}

	change := strings.Index(body, `eventboard_messages_received_total{event="change"} 1`)
	submit := strings.Index(body, `eventboard_messages_received_total{event="submit"} 1`)
	require.NotEqual(t, -1, change)
	require.NotEqual(t, -1, submit)
	assert.Less(t, change, submit, "labels are sorted")
}
