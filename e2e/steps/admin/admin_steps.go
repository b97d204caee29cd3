package admin

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	PostRaw(path, contentType, body string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	SetAdminToken(token string)
	ClearAdminToken()
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers admin session, event and import steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I am logged in as the e2e admin$`, steps.loginAsE2EAdmin)
	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.login)
	ctx.Step(`^I drop the admin session$`, steps.dropSession)

	ctx.Step(`^I create a "([^"]*)" event named "([^"]*)"$`, steps.createEvent)
	ctx.Step(`^I upload this CSV for the event:$`, steps.uploadCSVForEvent)
	ctx.Step(`^I upload this CSV as source "([^"]*)":$`, steps.uploadCSVAsSource)
	ctx.Step(`^I list the event members$`, steps.listEventMembers)
}

type adminSteps struct {
	tc TestContext
}

// loginAsE2EAdmin uses the account created with "server admin create" before
// the run.
func (s *adminSteps) loginAsE2EAdmin(ctx context.Context) error {
	username, password := os.Getenv("E2E_ADMIN_USERNAME"), os.Getenv("E2E_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return fmt.Errorf("E2E_ADMIN_USERNAME and E2E_ADMIN_PASSWORD must be set")
	}
	if err := s.login(ctx, username, password); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("admin login failed with %d: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *adminSteps) login(ctx context.Context, username, password string) error {
	s.tc.ClearAdminToken()
	err := s.tc.POST("/api/admin/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetAdminToken(fmt.Sprint(token))
	return nil
}

func (s *adminSteps) dropSession(ctx context.Context) error {
	s.tc.ClearAdminToken()
	return nil
}

func (s *adminSteps) createEvent(ctx context.Context, eventType, name string) error {
	err := s.tc.POST("/api/admin/events", map[string]any{
		"name":              name,
		"event_type":        eventType,
		"registration_open": true,
	})
	if err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("create event failed with %d: %s", status, s.tc.GetLastResponseBody())
	}
	eventID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Save("event_id", fmt.Sprint(eventID))
	return nil
}

func (s *adminSteps) uploadCSVForEvent(ctx context.Context, doc *godog.DocString) error {
	eventID := s.tc.Saved("event_id")
	if eventID == "" {
		return fmt.Errorf("no event created in this scenario")
	}
	q := url.Values{"event_id": {eventID}}
	return s.tc.PostRaw("/api/admin/import/csv?"+q.Encode(), "text/csv", doc.Content+"\n")
}

func (s *adminSteps) uploadCSVAsSource(ctx context.Context, source string, doc *godog.DocString) error {
	q := url.Values{"source": {source}}
	return s.tc.PostRaw("/api/admin/import/csv?"+q.Encode(), "text/csv", doc.Content+"\n")
}

func (s *adminSteps) listEventMembers(ctx context.Context) error {
	return s.tc.GET("/api/admin/events/" + s.tc.Saved("event_id") + "/members")
}
