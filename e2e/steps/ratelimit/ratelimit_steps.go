package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	UseClientIP(ip string)
	ClientIP() string
}

// RegisterSteps registers per client IP budget steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I fail to log in (\d+) times$`, steps.failLoginNTimes)
	ctx.Step(`^every attempt before the last should return (\d+)$`, steps.attemptsBeforeLastShouldReturn)
	ctx.Step(`^the last attempt should return (\d+)$`, steps.lastAttemptShouldReturn)
	ctx.Step(`^I switch to client IP "([^"]*)"$`, steps.switchClientIP)
	ctx.Step(`^I fail to log in once$`, steps.failLoginOnce)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) failLogin() error {
	err := s.tc.POST("/api/admin/login", map[string]string{
		"username": "nobody",
		"password": "wrong password",
	})
	if err != nil {
		return err
	}
	s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	return nil
}

func (s *ratelimitSteps) failLoginNTimes(ctx context.Context, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.failLogin(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ratelimitSteps) failLoginOnce(ctx context.Context) error {
	s.statuses = s.statuses[:0]
	return s.failLogin()
}

func (s *ratelimitSteps) attemptsBeforeLastShouldReturn(ctx context.Context, expected int) error {
	if len(s.statuses) == 0 {
		return fmt.Errorf("no login attempts recorded")
	}
	for i, status := range s.statuses[:len(s.statuses)-1] {
		if status != expected {
			return fmt.Errorf("attempt %d from %s: expected %d, got %d", i+1, s.tc.ClientIP(), expected, status)
		}
	}
	return nil
}

func (s *ratelimitSteps) lastAttemptShouldReturn(ctx context.Context, expected int) error {
	if len(s.statuses) == 0 {
		return fmt.Errorf("no login attempts recorded")
	}
	if got := s.statuses[len(s.statuses)-1]; got != expected {
		return fmt.Errorf("last attempt: expected %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *ratelimitSteps) switchClientIP(ctx context.Context, ip string) error {
	s.tc.UseClientIP(ip)
	return nil
}
