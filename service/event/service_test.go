package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/gatekeeper/service/messaging/memory"
)

func TestService_SubscribeIdempotent(t *testing.T) {
	bus := New(nil)
	calls := 0
	handler := func(_ context.Context, _ *Event) { calls++ }

	bus.Subscribe("topic.a", handler)
	bus.Subscribe("topic.a", handler)

	bus.Publish(context.Background(), NewEvent("topic.a", nil), "topic.a")
	assert.Equal(t, 1, calls)

	bus.Unsubscribe("topic.a", handler)
	bus.Publish(context.Background(), NewEvent("topic.a", nil), "topic.a")
	assert.Equal(t, 1, calls)
}

func TestService_PublishTopicFiltering(t *testing.T) {
	testCases := []struct {
		name          string
		publishTopics []string
		expectA       int
		expectB       int
	}{
		{
			name:          "explicit topic notifies only its subscribers",
			publishTopics: []string{"topic.a"},
			expectA:       1,
			expectB:       0,
		},
		{
			name:          "omitted topics notify all subscribers",
			publishTopics: nil,
			expectA:       1,
			expectB:       1,
		},
		{
			name:          "unknown topic notifies nobody",
			publishTopics: []string{"topic.c"},
			expectA:       0,
			expectB:       0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := New(nil)
			gotA, gotB := 0, 0
			bus.Subscribe("topic.a", func(_ context.Context, _ *Event) { gotA++ })
			bus.Subscribe("topic.b", func(_ context.Context, _ *Event) { gotB++ })

			bus.Publish(context.Background(), NewEvent("test", nil), tc.publishTopics...)
			assert.Equal(t, tc.expectA, gotA, tc.name)
			assert.Equal(t, tc.expectB, gotB, tc.name)
		})
	}
}

func TestService_PublishWithoutSubscribers(t *testing.T) {
	bus := New(nil)
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), NewEvent("nobody.listens", nil))
	})
}

func TestService_HandlerIsolation(t *testing.T) {
	bus := New(nil)
	var order []string
	bus.Subscribe("topic", func(_ context.Context, _ *Event) {
		order = append(order, "first")
		panic("boom")
	})
	bus.Subscribe("topic", func(_ context.Context, _ *Event) {
		order = append(order, "second")
	})

	bus.Publish(context.Background(), NewEvent("topic", nil), "topic")
	assert.Equal(t, []string{"first", "second"}, order)
}

type failingBackend struct{}

func (failingBackend) Publish(context.Context, *Event, []string) error {
	return errors.New("transport down")
}

func TestService_BackendFailureIsolated(t *testing.T) {
	bus := New(failingBackend{})
	notified := false
	bus.Subscribe("topic", func(_ context.Context, _ *Event) { notified = true })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), NewEvent("topic", nil), "topic")
	})
	assert.True(t, notified, "backend failure must not prevent subscriber notification")
}

func TestMemoryBackend_Events(t *testing.T) {
	backend := NewMemoryBackend()
	bus := New(backend)

	bus.Publish(context.Background(), NewEvent("a", map[string]interface{}{"n": 1}))
	bus.Publish(context.Background(), NewEvent("b", nil))
	bus.Publish(context.Background(), NewEvent("a", map[string]interface{}{"n": 2}))

	recorded := backend.Events("a")
	if assert.Len(t, recorded, 2) {
		assert.Equal(t, 1, recorded[0].Data["n"])
		assert.Equal(t, 2, recorded[1].Data["n"])
	}
	assert.Len(t, backend.Events(""), 3)

	backend.Clear()
	assert.Empty(t, backend.Events(""))
}

func TestQueueBackend_Delivers(t *testing.T) {
	queue := memory.NewQueue[Event](memory.DefaultConfig())
	bus := New(NewQueueBackend(queue))

	bus.Publish(context.Background(), NewEvent("approval.created", map[string]interface{}{"approvalId": "a-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "approval.created", msg.T().Type)
	assert.Equal(t, "a-1", msg.T().Data["approvalId"])
	assert.NoError(t, msg.Ack())
}

func TestNewEvent_TimestampInjection(t *testing.T) {
	e := NewEvent("x", nil)
	assert.NotEmpty(t, e.Metadata[MetadataTimestamp])

	custom := &Event{Type: "x", Metadata: map[string]interface{}{MetadataTimestamp: "fixed"}}
	custom.ensureTimestamp()
	assert.Equal(t, "fixed", custom.Metadata[MetadataTimestamp])
}
