package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("MD"),
		Value:     []byte(`{"intervention":"Stay Home"}`),
		Topic:     "raw-projection-rows",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("model-run-17")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("MD"), raw.Key)
	assert.JSONEq(t, `{"intervention":"Stay Home"}`, string(raw.Value))
	assert.Equal(t, "raw-projection-rows", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "model-run-17", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	now := time.Date(2020, time.April, 10, 6, 0, 0, 0, time.UTC)
	out, err := domain.SerializeSummary(domain.ProjectionSummary{
		ID:          "MD-abc",
		AlarmLevel:  domain.AlarmHigh,
		ProcessedAt: now,
	})
	require.NoError(t, err)

	msg := toMessage(out)

	assert.Equal(t, []byte("MD-abc"), msg.Key)
	assert.Contains(t, string(msg.Value), `"alarm_level":"high"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "alarm_level", msg.Headers[0].Key)
	assert.Equal(t, []byte("high"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}
