package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	event, err := NewEvent(TypeUserRegistered, UserRegisteredPayload{
		UserID: id,
		Name:   "Alice",
		Email:  "alice@example.com",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeUserRegistered, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var payload UserRegisteredPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, id, payload.UserID)
	assert.Equal(t, "alice@example.com", payload.Email)
}

func TestNewEventUnserializablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent("bad", make(chan int))
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		event, err := NewEvent("nobody.listens", nil)
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("routes by type", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		registered := &recordingHandler{}
		other := &recordingHandler{}
		emitter.Subscribe(TypeUserRegistered, registered)
		emitter.Subscribe("user.deleted", other)

		event, err := NewEvent(TypeUserRegistered, UserRegisteredPayload{UserID: uuid.New()})
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, registered.count())
		assert.Equal(t, 0, other.count())
		assert.Same(t, event, registered.events[0])
	})

	t.Run("failing handler does not stop the rest", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		first := &recordingHandler{err: errors.New("first failed")}
		second := &recordingHandler{err: errors.New("second failed")}
		third := &recordingHandler{}
		emitter.Subscribe(TypeUserRegistered, first)
		emitter.Subscribe(TypeUserRegistered, second)
		emitter.Subscribe(TypeUserRegistered, third)

		event, err := NewEvent(TypeUserRegistered, nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		require.Error(t, err)
		assert.Equal(t, "first failed", err.Error())
		assert.Equal(t, 1, third.count())
	})

	t.Run("handler func adapter", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		called := false
		emitter.Subscribe(TypeUserRegistered, HandlerFunc(func(context.Context, *Event) error {
			called = true
			return nil
		}))

		event, err := NewEvent(TypeUserRegistered, nil)
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.True(t, called)
	})
}
