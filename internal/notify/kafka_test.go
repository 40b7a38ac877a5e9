package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"eventsds/internal/config"
	"eventsds/internal/model"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p := NewPublisher(config.NotifyConfig{}, nil)
	require.False(t, p.Enabled())
	require.NoError(t, p.RunCompleted(context.Background(), model.RunMetadata{ID: "x"}))
	require.NoError(t, p.Close())
}

func TestRunCompletedPublishesMetadata(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{w: w, topic: "eventsds.runs"}
	run := model.RunMetadata{
		ID:          "run-1",
		Phase:       "windows",
		GeneratedAt: time.Unix(1700000000, 0).UTC(),
		Counters:    map[string]int{"windows_written": 4},
	}
	require.NoError(t, p.RunCompleted(context.Background(), run))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "run-1", string(w.msgs[0].Key))
	require.Equal(t, "windows", string(w.msgs[0].Headers[0].Value))

	var got model.RunMetadata
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	require.Equal(t, 4, got.Counters["windows_written"])

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestRunCompletedWrapsWriterError(t *testing.T) {
	p := &Publisher{w: &recordingWriter{err: errors.New("broker down")}, topic: "t"}
	err := p.RunCompleted(context.Background(), model.RunMetadata{ID: "run-2"})
	require.ErrorContains(t, err, "broker down")
}
