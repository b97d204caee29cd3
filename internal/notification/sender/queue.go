// Package sender holds the transports the dispatcher hands rendered messages to.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"unionhub/internal/notification/models"
)

// Publisher writes one record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Queue places messages on the email or sms topic for the delivery worker.
type Queue struct {
	publisher  Publisher
	emailTopic string
	smsTopic   string
}

func NewQueue(publisher Publisher, emailTopic, smsTopic string) *Queue {
	return &Queue{publisher: publisher, emailTopic: emailTopic, smsTopic: smsTopic}
}

// Topic returns the topic that carries channel.
func (q *Queue) Topic(channel models.Channel) string {
	if channel == models.ChannelSMS {
		return q.smsTopic
	}
	return q.emailTopic
}

func (q *Queue) Send(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue payload: %w", err)
	}
	headers := map[string]string{
		"channel":           string(msg.Channel),
		"notification_type": msg.NotificationType,
	}
	if err := q.publisher.Publish(ctx, q.Topic(msg.Channel), []byte(msg.Recipient), payload, headers); err != nil {
		return fmt.Errorf("publish %s notification: %w", msg.Channel, err)
	}
	return nil
}

// Log writes messages to the logger instead of delivering them. It is used
// when no transport is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, msg models.Message) error {
	l.logger.InfoContext(ctx, "notification not delivered, no transport configured",
		"channel", string(msg.Channel),
		"recipient", msg.Recipient,
		"template_code", msg.TemplateCode,
		"notification_type", msg.NotificationType,
	)
	return nil
}
