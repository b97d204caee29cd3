// Package delivery consumes the notification queues and hands each message
// to the final email or SMS provider.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"unionhub/internal/notification/metrics"
	"unionhub/internal/notification/models"
	"unionhub/internal/platform/kafka"
)

type Email struct {
	To       string
	ToName   string
	Subject  string
	HTML     string
	CustomID string
}

type EmailProvider interface {
	SendEmail(ctx context.Context, e Email) error
}

type SMSProvider interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Worker delivers queued messages. A nil provider logs and drops its channel.
type Worker struct {
	email   EmailProvider
	sms     SMSProvider
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(email EmailProvider, sms SMSProvider, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{email: email, sms: sms, logger: logger, metrics: m}
}

// Router maps the email and sms topics to the worker's handlers.
func (w *Worker) Router(emailTopic, smsTopic string) *kafka.Router {
	r := kafka.NewRouter(w.logger, nil)
	r.Register(emailTopic, kafka.HandlerFunc(w.handleEmail))
	r.Register(smsTopic, kafka.HandlerFunc(w.handleSMS))
	return r
}

func (w *Worker) handleEmail(ctx context.Context, raw *kafka.Message) error {
	msg, err := decode(raw)
	if err != nil {
		return err
	}
	if w.email == nil {
		w.drop(ctx, msg)
		return nil
	}
	customID := msg.NotificationType
	if msg.EventMemberID != nil {
		customID += ":" + msg.EventMemberID.String()
	}
	err = w.email.SendEmail(ctx, Email{
		To:       msg.Recipient,
		ToName:   msg.RecipientName,
		Subject:  msg.Subject,
		HTML:     msg.Content,
		CustomID: customID,
	})
	w.observe(models.ChannelEmail, err)
	return err
}

func (w *Worker) handleSMS(ctx context.Context, raw *kafka.Message) error {
	msg, err := decode(raw)
	if err != nil {
		return err
	}
	if w.sms == nil {
		w.drop(ctx, msg)
		return nil
	}
	err = w.sms.SendSMS(ctx, msg.Recipient, msg.Content)
	w.observe(models.ChannelSMS, err)
	return err
}

func decode(raw *kafka.Message) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		return msg, fmt.Errorf("decode %s payload at offset %d: %w", raw.Topic, raw.Offset, err)
	}
	return msg, nil
}

func (w *Worker) drop(ctx context.Context, msg models.Message) {
	w.logger.WarnContext(ctx, "no provider configured, dropping message",
		"channel", string(msg.Channel),
		"notification_type", msg.NotificationType,
	)
}

func (w *Worker) observe(channel models.Channel, err error) {
	if w.metrics != nil {
		w.metrics.IncrementDelivered(string(channel), err == nil)
	}
}
