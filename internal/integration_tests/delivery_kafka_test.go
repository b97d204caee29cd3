//go:build integration

package integration_tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/notification/delivery"
	"unionhub/internal/notification/models"
	"unionhub/internal/notification/sender"
	"unionhub/internal/notification/service"
	"unionhub/internal/notification/store"
	"unionhub/internal/platform/kafka"
	"unionhub/internal/platform/logger"
	"unionhub/pkg/testutil"
	"unionhub/pkg/testutil/containers"
)

const (
	emailTopic = "it.notifications.email"
	smsTopic   = "it.notifications.sms"
)

type recordingSMS struct {
	mu   sync.Mutex
	sent map[string]string
}

func (r *recordingSMS) SendSMS(_ context.Context, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[to] = body
	return nil
}

func (r *recordingSMS) get(to string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body, ok := r.sent[to]
	return body, ok
}

func TestQueuedNotificationReachesProvider(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	brokers := []string{rp.Broker}
	log := logger.Discard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, kafka.EnsureTopics(ctx, brokers, 1, emailTopic, smsTopic))

	producer, err := kafka.NewProducer(brokers, log)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	queue := sender.NewQueue(producer, emailTopic, smsTopic)
	notifications, err := service.New(store.NewInMemory(), store.NewInMemory(),
		service.WithSender(models.ChannelEmail, queue),
		service.WithSender(models.ChannelSMS, queue),
	)
	require.NoError(t, err)
	_, err = notifications.EnsureDefaults(ctx)
	require.NoError(t, err)

	sms := &recordingSMS{sent: map[string]string{}}
	router := delivery.NewWorker(nil, sms, log, nil).Router(emailTopic, smsTopic)
	consumer, err := kafka.NewConsumer(brokers, "it-delivery", router.Topics(), log)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx, router) }()

	testutil.Given(t, "a member with only a mobile number", func(t *testing.T) {
		err := notifications.Notify(ctx, models.Notification{
			EmailTemplate: models.CodeBMMTicket,
			SMSTemplate:   models.CodeBMMTicketSMS,
			To:            models.Recipient{Name: "Mere", Mobile: "0217654321"},
			Vars:          map[string]string{"checkinUrl": "https://c.example/t1"},
			Type:          models.TypeTicket,
		})
		require.NoError(t, err)

		testutil.Then(t, "the worker delivers the sms from the queue", func(t *testing.T) {
			require.Eventually(t, func() bool {
				_, ok := sms.get("0217654321")
				return ok
			}, 30*time.Second, 200*time.Millisecond)
			body, _ := sms.get("0217654321")
			assert.Contains(t, body, "https://c.example/t1")
		})
	})

	cancel()
	select {
	case err := <-done:
		assert.True(t, err == nil || errors.Is(err, context.Canceled), "consumer stopped with %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
