package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	id "unionhub/pkg/domain"
)

// Ticket carries what a rendered ticket shows.
type Ticket struct {
	EventID          id.EventID
	EventMemberID    id.EventMemberID
	Token            string
	MemberName       string
	MembershipNumber string
	Venue            string
	CheckInURL       string
}

// TicketPath is the storage key of a ticket document.
func TicketPath(eventID id.EventID, token string) string {
	return fmt.Sprintf("tickets/%s/%s.pdf", eventID, token)
}

// TicketRenderer produces the ticket artifact and returns a URL members can open.
type TicketRenderer interface {
	Render(ctx context.Context, t Ticket) (string, error)
}

type ObjectUploader interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// QRTicketRenderer encodes the check-in URL as a QR code and stores the PNG
// next to the ticket document path. Without an uploader members get the
// check-in URL itself.
type QRTicketRenderer struct {
	uploader ObjectUploader
	size     int
}

func NewQRTicketRenderer(uploader ObjectUploader) *QRTicketRenderer {
	return &QRTicketRenderer{uploader: uploader, size: 256}
}

func (r *QRTicketRenderer) Render(ctx context.Context, t Ticket) (string, error) {
	if r.uploader == nil {
		return t.CheckInURL, nil
	}
	png, err := qrcode.Encode(t.CheckInURL, qrcode.Medium, r.size)
	if err != nil {
		return "", fmt.Errorf("encode ticket qr: %w", err)
	}
	key := strings.TrimSuffix(TicketPath(t.EventID, t.Token), ".pdf") + ".png"
	url, err := r.uploader.Put(ctx, key, "image/png", png)
	if err != nil {
		return "", fmt.Errorf("store ticket qr: %w", err)
	}
	return url, nil
}
