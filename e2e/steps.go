package e2e

import (
	"github.com/cucumber/godog"

	"processguard/e2e/steps/common"
	"processguard/e2e/steps/process"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	process.RegisterSteps(ctx, tc)
}
