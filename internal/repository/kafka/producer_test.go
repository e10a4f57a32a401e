package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducer_PublishJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "audit").WithLogger(zaptest.NewLogger(t))

	err := p.PublishJSON(context.Background(), []byte("auth"), map[string]string{"status": "success"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, []byte("auth"), w.msgs[0].Key)

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	require.Equal(t, "success", got["status"])
}

func TestProducer_PublishJSON_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "audit")

	err := p.PublishJSON(context.Background(), nil, struct{}{})
	require.ErrorIs(t, err, boom)
}

func TestProducer_PublishJSON_Unmarshalable(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "audit")

	err := p.PublishJSON(context.Background(), nil, make(chan int))
	require.Error(t, err)
	require.Empty(t, w.msgs)
}
