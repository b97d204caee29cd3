package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/notification/models"
)

type record struct {
	topic   string
	key     string
	value   []byte
	headers map[string]string
}

type fakePublisher struct {
	records []record
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record{topic: topic, key: string(key), value: value, headers: headers})
	return nil
}

func TestQueueRoutesByChannel(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, "notifications.email", "notifications.sms")

	require.NoError(t, q.Send(context.Background(), models.Message{
		Channel: models.ChannelSMS, Recipient: "0211234567", Content: "hi", NotificationType: models.TypeTicket,
	}))
	require.NoError(t, q.Send(context.Background(), models.Message{
		Channel: models.ChannelEmail, Recipient: "a@example.com", Subject: "s", Content: "c",
	}))

	require.Len(t, pub.records, 2)
	assert.Equal(t, "notifications.sms", pub.records[0].topic)
	assert.Equal(t, "0211234567", pub.records[0].key)
	assert.Equal(t, models.TypeTicket, pub.records[0].headers["notification_type"])
	assert.Equal(t, "notifications.email", pub.records[1].topic)

	var decoded models.Message
	require.NoError(t, json.Unmarshal(pub.records[1].value, &decoded))
	assert.Equal(t, "a@example.com", decoded.Recipient)
	assert.Equal(t, models.ChannelEmail, decoded.Channel)
}

func TestQueuePublishError(t *testing.T) {
	q := NewQueue(&fakePublisher{err: errors.New("broker down")}, "e", "s")
	err := q.Send(context.Background(), models.Message{Channel: models.ChannelEmail})
	assert.ErrorContains(t, err, "broker down")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, l.Send(context.Background(), models.Message{Channel: models.ChannelEmail, Recipient: "a@example.com"}))
	assert.Contains(t, buf.String(), "recipient=a@example.com")
}
