package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsHooksInPriorityOrder(t *testing.T) {
	h := NewHandler(time.Second, nil)

	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	h.RegisterFunc("stores", PriorityStores, record("stores"))
	h.RegisterFunc("http", PriorityHTTP, record("http"))
	h.RegisterFunc("sockets", PrioritySockets, record("sockets"))

	require.NoError(t, h.Shutdown())
	assert.Equal(t, []string{"http", "sockets", "stores"}, order)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

func TestShutdown_Twice(t *testing.T) {
	h := NewHandler(time.Second, nil)

	require.NoError(t, h.Shutdown())
	assert.ErrorIs(t, h.Shutdown(), ErrAlreadyClosed)
}

func TestShutdown_CollectsErrors(t *testing.T) {
	h := NewHandler(time.Second, nil)
	errA := errors.New("a failed")

	ran := false
	h.RegisterFunc("a", 1, func(ctx context.Context) error { return errA })
	h.RegisterFunc("b", 2, func(ctx context.Context) error { ran = true; return nil })

	err := h.Shutdown()
	assert.ErrorIs(t, err, errA)
	assert.True(t, ran, "later hooks still run")
}

func TestShutdown_Timeout(t *testing.T) {
	h := NewHandler(20*time.Millisecond, nil)

	h.RegisterFunc("slow", 1, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	skipped := true
	h.RegisterFunc("after", 2, func(ctx context.Context) error { skipped = false; return nil })

	err := h.Shutdown()
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.True(t, skipped)
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestCloseableHook(t *testing.T) {
	h := NewHandler(time.Second, nil)
	c := &closer{}
	h.Register(CloseableHook("closer", PriorityStores, c))

	require.NoError(t, h.Shutdown())
	assert.True(t, c.closed)
}

func TestWait_ContextCancelled(t *testing.T) {
	h := NewHandler(time.Second, nil)
	ran := false
	h.RegisterFunc("hook", 1, func(ctx context.Context) error { ran = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.Wait(ctx))
	assert.True(t, ran)
}

func TestWait_ReleasedByShutdown(t *testing.T) {
	h := NewHandler(time.Second, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()

	require.NoError(t, h.Shutdown())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}
