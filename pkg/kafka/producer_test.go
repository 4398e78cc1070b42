package kafka

import (
	"context"
	"errors"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/config"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishBatch(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "embedding-events")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "katt", Value: map[string]string{"status": "generated"}, Headers: map[string]string{"run_id": "r1"}},
		{Key: "hund", Value: map[string]string{"status": "failed"}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "katt", string(w.msgs[0].Key))
	var v map[string]string
	require.NoError(t, gojson.Unmarshal(w.msgs[0].Value, &v))
	assert.Equal(t, "generated", v["status"])
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, "run_id", w.msgs[0].Headers[0].Key)
	assert.Equal(t, "r1", string(w.msgs[0].Headers[0].Value))
	assert.Empty(t, w.msgs[1].Headers)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishBatchEmpty(t *testing.T) {
	w := &recordingWriter{err: errors.New("unreachable")}
	p := newProducer(w, "t")
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}

func TestPublishBatchErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := newProducer(w, "t")
	err := p.PublishBatch(context.Background(), []Event{{Key: "a", Value: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")

	w.err = nil
	err = p.PublishBatch(context.Background(), []Event{{Key: "a", Value: make(chan int)}})
	require.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestNewProducerUsesConfiguredTopic(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "words"})
	assert.Equal(t, "words", p.topic)
	require.NoError(t, p.Close())
}
