package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "unionhub/pkg/domain"
)

type recordingUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (u *recordingUploader) Put(_ context.Context, key, contentType string, body []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key, u.contentType, u.body = key, contentType, body
	return "https://files.example.org/" + key, nil
}

func TestQRTicketRenderer(t *testing.T) {
	ticket := Ticket{
		EventID:    id.NewEventID(),
		Token:      "tok-1",
		CheckInURL: "https://bmm.example.org/checkin/tok-1",
	}

	t.Run("without storage the check-in url is returned", func(t *testing.T) {
		url, err := NewQRTicketRenderer(nil).Render(context.Background(), ticket)
		require.NoError(t, err)
		assert.Equal(t, ticket.CheckInURL, url)
	})

	t.Run("stores the qr png beside the ticket document", func(t *testing.T) {
		up := &recordingUploader{}
		url, err := NewQRTicketRenderer(up).Render(context.Background(), ticket)
		require.NoError(t, err)

		assert.Equal(t, "tickets/"+ticket.EventID.String()+"/tok-1.png", up.key)
		assert.Equal(t, "image/png", up.contentType)
		assert.True(t, bytes.HasPrefix(up.body, []byte("\x89PNG")))
		assert.Equal(t, "https://files.example.org/"+up.key, url)
	})

	t.Run("storage errors are returned", func(t *testing.T) {
		up := &recordingUploader{err: errors.New("bucket missing")}
		_, err := NewQRTicketRenderer(up).Render(context.Background(), ticket)
		assert.ErrorContains(t, err, "bucket missing")
	})
}
