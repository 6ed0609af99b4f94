// Package metrics exposes live socket and event counters in the Prometheus
// text format.
package metrics

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

// Metrics holds the eventboard instruments.
type Metrics struct {
	namespace string

	SocketsActive    *Gauge
	SocketsTotal     *Counter
	MessagesReceived *CounterVec
	MessageErrors    *CounterVec
	MessageLatency   *Histogram
	RenderDuration   *Histogram
	EventsAdded      *Counter
}

// New creates the instruments, each name prefixed with namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		namespace:        namespace,
		SocketsActive:    NewGauge("sockets_active", "Open live connections."),
		SocketsTotal:     NewCounter("sockets_total", "Live connections accepted."),
		MessagesReceived: NewCounterVec("messages_received_total", "Client messages by event.", "event"),
		MessageErrors:    NewCounterVec("message_errors_total", "Failed client messages by event.", "event"),
		MessageLatency:   NewHistogram("message_latency_seconds", "Client message handling time."),
		RenderDuration:   NewHistogram("render_duration_seconds", "Component render time."),
		EventsAdded:      NewCounter("events_added_total", "Event records appended."),
	}
}

// SocketOpened records a new live connection.
func (m *Metrics) SocketOpened() {
	m.SocketsActive.Inc()
	m.SocketsTotal.Inc()
}

// SocketClosed records a closed live connection.
func (m *Metrics) SocketClosed() {
	m.SocketsActive.Dec()
}

// OtherEvent labels client events outside the live protocol.
const OtherEvent = "other"

var knownEvents = map[string]bool{
	protocol.EventJoin:      true,
	protocol.EventLeave:     true,
	protocol.EventHeartbeat: true,
	protocol.EventChange:    true,
	protocol.EventSubmit:    true,
}

// EventLabel maps a client event name onto a bounded label set.
func EventLabel(event string) string {
	if knownEvents[event] {
		return event
	}
	return OtherEvent
}

// Middleware counts and times every client message.
func (m *Metrics) Middleware() protocol.MiddlewareFunc {
	return func(next protocol.MessageHandler) protocol.MessageHandler {
		return protocol.MessageHandlerFunc(func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
			start := time.Now()
			reply, err := next.HandleMessage(ctx, msg)

			label := EventLabel(msg.Event)
			m.MessagesReceived.Inc(label)
			m.MessageLatency.ObserveDuration(time.Since(start))
			if err != nil {
				m.MessageErrors.Inc(label)
			}
			return reply, err
		})
	}
}

// Handler serves the instruments in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.WriteTo(w)
	})
}

// WriteTo writes every instrument to w.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	m.writeSingle(cw, "gauge", m.SocketsActive.name, m.SocketsActive.help, m.SocketsActive.Value())
	m.writeSingle(cw, "counter", m.SocketsTotal.name, m.SocketsTotal.help, m.SocketsTotal.Value())
	m.writeSingle(cw, "counter", m.EventsAdded.name, m.EventsAdded.help, m.EventsAdded.Value())
	m.writeVec(cw, m.MessagesReceived)
	m.writeVec(cw, m.MessageErrors)
	m.writeHistogram(cw, m.MessageLatency)
	m.writeHistogram(cw, m.RenderDuration)

	return cw.n, cw.err
}

func (m *Metrics) fullName(name string) string {
	if m.namespace == "" {
		return name
	}
	return m.namespace + "_" + name
}

func (m *Metrics) writeSingle(w io.Writer, kind, name, help string, value float64) {
	name = m.fullName(name)
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %g\n", name, help, name, kind, name, value)
}

func (m *Metrics) writeVec(w io.Writer, cv *CounterVec) {
	name := m.fullName(cv.name)
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", name, cv.help, name)

	values := cv.Values()
	labels := make([]string, 0, len(values))
	for label := range values {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(w, "%s{%s=%q} %g\n", name, cv.label, label, values[label])
	}
}

func (m *Metrics) writeHistogram(w io.Writer, h *Histogram) {
	name := m.fullName(h.name)
	stats := h.Stats()
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s summary\n", name, h.help, name)
	fmt.Fprintf(w, "%s_sum %g\n%s_count %d\n", name, stats.Sum, name, stats.Count)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// NewCounter creates a counter.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() float64 {
	return float64(c.value.Load())
}

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// NewGauge creates a gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }

// Value returns the current value.
func (g *Gauge) Value() float64 {
	return float64(g.value.Load())
}

// CounterVec is a set of counters keyed by one label.
type CounterVec struct {
	name   string
	help   string
	label  string
	values map[string]*Counter
	mu     sync.RWMutex
}

// NewCounterVec creates a counter vector.
func NewCounterVec(name, help, label string) *CounterVec {
	return &CounterVec{
		name:   name,
		help:   help,
		label:  label,
		values: make(map[string]*Counter),
	}
}

// WithLabel returns the counter for a label value, creating it on first use.
func (cv *CounterVec) WithLabel(value string) *Counter {
	cv.mu.RLock()
	c, ok := cv.values[value]
	cv.mu.RUnlock()
	if ok {
		return c
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	if c, ok := cv.values[value]; ok {
		return c
	}
	c = NewCounter(cv.name, cv.help)
	cv.values[value] = c
	return c
}

// Inc increments the counter for label.
func (cv *CounterVec) Inc(label string) {
	cv.WithLabel(label).Inc()
}

// Values returns a snapshot of every counter.
func (cv *CounterVec) Values() map[string]float64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	result := make(map[string]float64, len(cv.values))
	for label, counter := range cv.values {
		result[label] = counter.Value()
	}
	return result
}

// Histogram tracks count, sum and range of observed values.
type Histogram struct {
	name  string
	help  string
	sum   float64
	count int64
	min   float64
	max   float64
	mu    sync.Mutex
}

// NewHistogram creates a histogram.
func NewHistogram(name, help string) *Histogram {
	return &Histogram{name: name, help: help, min: math.Inf(1), max: math.Inf(-1)}
}

// Observe records a value.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++
	h.min = math.Min(h.min, value)
	h.max = math.Max(h.max, value)
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// HistogramStats is a snapshot of a Histogram.
type HistogramStats struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64
}

// Stats returns a snapshot. Min and Max are zero before the first value.
func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := HistogramStats{Count: h.count, Sum: h.sum}
	if h.count > 0 {
		stats.Min = h.min
		stats.Max = h.max
		stats.Avg = h.sum / float64(h.count)
	}
	return stats
}
