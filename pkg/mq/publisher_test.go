package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	published []amqp091.Publishing
	keys      []string
	err       error
	calls     int
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestPublisher_PublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, zap.NewNop())

	err := p.Publish(context.Background(), "task.created", map[string]any{"task_id": 7})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, ExchangeName+"/task.created", ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, amqp091.Persistent, ch.published[0].DeliveryMode)

	var body map[string]int
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &body))
	assert.Equal(t, 7, body["task_id"])
}

func TestPublisher_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newPublisher(ch, zap.NewNop())

	for i := 0; i < 5; i++ {
		err := p.Publish(context.Background(), "task.deleted", struct{}{})
		assert.EqualError(t, err, "channel closed")
	}

	err := p.Publish(context.Background(), "task.deleted", struct{}{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, ch.calls, "open breaker must not reach the channel")
}

func TestPublisher_IsConnectedWithoutConnection(t *testing.T) {
	p := newPublisher(&fakeChannel{}, zap.NewNop())
	assert.False(t, p.IsConnected())
}
