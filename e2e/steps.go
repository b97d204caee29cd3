package e2e

import (
	"github.com/cucumber/godog"

	"unionhub/e2e/steps/admin"
	"unionhub/e2e/steps/common"
	"unionhub/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
