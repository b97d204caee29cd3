package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/notification/metrics"
	"unionhub/internal/notification/models"
	"unionhub/internal/platform/kafka"
	id "unionhub/pkg/domain"
)

type fakeSMS struct {
	to, body string
	err      error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.to, f.body = to, body
	return f.err
}

func payload(t *testing.T, topic string, msg models.Message) *kafka.Message {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return &kafka.Message{Topic: topic, Value: raw}
}

func TestWorkerDeliversEmailThroughMailjet(t *testing.T) {
	var got mailjetRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3.1/send", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer server.Close()

	m := metrics.New(prometheus.NewRegistry())
	w := NewWorker(NewMailjet(server.URL, "key", "secret", "noreply@union.example", "Union"), nil, nil, m)
	router := w.Router("notifications.email", "notifications.sms")

	emID := id.NewEventMemberID()
	err := router.Handle(context.Background(), payload(t, "notifications.email", models.Message{
		Channel:          models.ChannelEmail,
		Recipient:        "aroha@example.com",
		RecipientName:    "Aroha",
		Subject:          "Your ticket",
		Content:          "<p>hi</p>",
		NotificationType: models.TypeTicket,
		EventMemberID:    &emID,
	}))
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, "noreply@union.example", msg.From.Email)
	assert.Equal(t, []mailjetAddress{{Email: "aroha@example.com", Name: "Aroha"}}, msg.To)
	assert.Equal(t, "Your ticket", msg.Subject)
	assert.Equal(t, "<p>hi</p>", msg.HTMLPart)
	assert.Equal(t, models.TypeTicket+":"+emID.String(), msg.CustomID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Delivered.WithLabelValues("EMAIL", "success")))
}

func TestMailjetRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"error","Errors":[{"ErrorMessage":"invalid recipient"}]}]}`))
	}))
	defer server.Close()

	err := NewMailjet(server.URL, "k", "s", "a@b.c", "").SendEmail(context.Background(), Email{To: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestMailjetNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewMailjet(server.URL, "k", "s", "a@b.c", "").SendEmail(context.Background(), Email{To: "x@y.z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestWorkerDeliversSMS(t *testing.T) {
	sms := &fakeSMS{}
	m := metrics.New(prometheus.NewRegistry())
	router := NewWorker(nil, sms, nil, m).Router("email", "sms")

	err := router.Handle(context.Background(), payload(t, "sms", models.Message{
		Channel:   models.ChannelSMS,
		Recipient: "+64211234567",
		Content:   "Check in at https://c.example/x",
	}))
	require.NoError(t, err)
	assert.Equal(t, "+64211234567", sms.to)
	assert.Equal(t, "Check in at https://c.example/x", sms.body)

	sms.err = errors.New("carrier down")
	err = router.Handle(context.Background(), payload(t, "sms", models.Message{Channel: models.ChannelSMS, Recipient: "+6421"}))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Delivered.WithLabelValues("SMS", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Delivered.WithLabelValues("SMS", "failure")))
}

func TestWorkerDropsWithoutProvider(t *testing.T) {
	router := NewWorker(nil, nil, nil, nil).Router("email", "sms")
	err := router.Handle(context.Background(), payload(t, "email", models.Message{Channel: models.ChannelEmail, Recipient: "a@b.c"}))
	assert.NoError(t, err)
}

func TestWorkerRejectsMalformedPayload(t *testing.T) {
	router := NewWorker(nil, &fakeSMS{}, nil, nil).Router("email", "sms")
	err := router.Handle(context.Background(), &kafka.Message{Topic: "sms", Value: []byte("{not json")})
	assert.Error(t, err)
}
