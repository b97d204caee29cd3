// Package stratum talks to the legacy membership and mail gateway. Requests
// are XML documents posted as the form field newValues; the gateway only
// accepts ASCII, so every document is transliterated before sending.
package stratum

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	mmodels "unionhub/internal/member/models"
	"unionhub/internal/notification/models"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/circuit"
	"unionhub/pkg/textutil"
)

// AddEmail is the document that queues one email at the gateway.
type AddEmail struct {
	XMLName xml.Name `xml:"AddEmail"`
	Email   Email    `xml:"Email"`
}

type Email struct {
	To       string `xml:"To"`
	ToName   string `xml:"ToName,omitempty"`
	Subject  string `xml:"Subject"`
	Body     string `xml:"Body"`
	Template string `xml:"TemplateCode,omitempty"`
	Type     string `xml:"NotificationType,omitempty"`
}

// Members is the document that upserts member records at the gateway.
type Members struct {
	XMLName xml.Name `xml:"Members"`
	Members []Member `xml:"Member"`
}

type Member struct {
	MembershipNumber string `xml:"MembershipNumber"`
	FirstName        string `xml:"FirstName,omitempty"`
	LastName         string `xml:"LastName,omitempty"`
	Name             string `xml:"Name"`
	Email            string `xml:"Email,omitempty"`
	Mobile           string `xml:"Mobile,omitempty"`
	DateOfBirth      string `xml:"DateOfBirth,omitempty"`
	Address          string `xml:"Address,omitempty"`
	Region           string `xml:"Region,omitempty"`
	Branch           string `xml:"Branch,omitempty"`
	Workplace        string `xml:"Workplace,omitempty"`
	Employer         string `xml:"Employer,omitempty"`
	Industry         string `xml:"Industry,omitempty"`
	JobTitle         string `xml:"JobTitle,omitempty"`
}

// Client posts documents to the gateway. Calls are not retried; a run of
// failures opens the breaker and later calls fail fast until a probe succeeds.
type Client struct {
	endpoint    string
	securityKey string
	http        *http.Client
	breaker     *circuit.Breaker
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

func New(endpoint, securityKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint:    endpoint,
		securityKey: securityKey,
		http:        &http.Client{Timeout: timeout},
		breaker:     circuit.New("stratum", circuit.WithFailureThreshold(5), circuit.WithCooldown(time.Minute)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendEmail queues one email through the gateway.
func (c *Client) SendEmail(ctx context.Context, e Email) error {
	return c.post(ctx, AddEmail{Email: e})
}

// Send delivers an email message. It implements the dispatcher's Sender.
func (c *Client) Send(ctx context.Context, msg models.Message) error {
	if msg.Channel != models.ChannelEmail {
		return dErrors.New(dErrors.CodeValidation, "stratum only delivers email")
	}
	return c.SendEmail(ctx, Email{
		To:       msg.Recipient,
		ToName:   msg.RecipientName,
		Subject:  msg.Subject,
		Body:     msg.Content,
		Template: msg.TemplateCode,
		Type:     msg.NotificationType,
	})
}

// SyncMember pushes a member's profile to the gateway.
func (c *Client) SyncMember(ctx context.Context, m *mmodels.Member) error {
	return c.post(ctx, Members{Members: []Member{memberDocument(m)}})
}

func memberDocument(m *mmodels.Member) Member {
	return Member{
		MembershipNumber: m.MembershipNumber,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Name:             m.Name,
		Email:            m.DeliverableEmail(),
		Mobile:           m.TelephoneMobile,
		DateOfBirth:      m.DateOfBirth,
		Address:          m.Address,
		Region:           m.Region,
		Branch:           m.Branch,
		Workplace:        m.Workplace,
		Employer:         m.Employer,
		Industry:         m.Industry,
		JobTitle:         m.JobTitle,
	}
}

// Encode renders doc as the ASCII XML the gateway accepts.
func Encode(doc any) (string, error) {
	raw, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal stratum document: %w", err)
	}
	return textutil.ToASCII(xml.Header + string(raw)), nil
}

func (c *Client) post(ctx context.Context, doc any) error {
	if !c.breaker.Allow() {
		return dErrors.New(dErrors.CodeUnavailable, "stratum gateway unavailable")
	}
	body, err := Encode(doc)
	if err != nil {
		return err
	}

	target, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse stratum endpoint: %w", err)
	}
	q := target.Query()
	q.Set("securityKey", c.securityKey)
	target.RawQuery = q.Encode()

	form := url.Values{"newValues": {body}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build stratum request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.do(req); err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
			c.logger.WarnContext(ctx, "stratum circuit opened", "error", err)
		}
		return err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "stratum circuit closed")
	}
	return nil
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "stratum request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("stratum returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
