package mykafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w)

	require.NoError(t, p.PublishEvent(context.Background(), "chat_messages", "a@b.c", map[string]string{"message": "hi"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "chat_messages", w.msgs[0].Topic)
	assert.Equal(t, "a@b.c", string(w.msgs[0].Key))

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "hi", got["message"])
}

func TestPublishEvent_Errors(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("down")})
	err := p.PublishEvent(context.Background(), "t", "k", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery failed")

	err = p.PublishEvent(context.Background(), "t", "k", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json.Marshal")
}
