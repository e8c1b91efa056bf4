package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context the process steps use.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
}

// RegisterSteps registers process lifecycle and validation steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &processSteps{tc: tc}

	ctx.Step(`^I create process "([^"]*)" with no restrictions$`, steps.createUnrestricted)
	ctx.Step(`^I create process "([^"]*)" requiring the sender to own all inputs$`, steps.createOwnerOnly)
	ctx.Step(`^I create process "([^"]*)" with restrictions nested (\d+) levels deep$`, steps.createNested)
	ctx.Step(`^I disable version (\d+) of process "([^"]*)"$`, steps.disable)
	ctx.Step(`^I validate a transition by "([^"]*)" spending an input owned by "([^"]*)" against "([^"]*)" version (\d+)$`, steps.validate)
	ctx.Step(`^I read the current version of process "([^"]*)"$`, steps.currentVersion)
}

type processSteps struct {
	tc TestContext
}

func uniqueID(id string) string {
	// Scenarios run against a shared server; the suffix keeps identifiers fresh.
	return strings.ReplaceAll(id, "{run}", runSuffix)
}

func (s *processSteps) createUnrestricted(ctx context.Context, id string) error {
	return s.tc.POST("/processes", map[string]any{"id": uniqueID(id), "restrictions": []any{}})
}

func (s *processSteps) createOwnerOnly(ctx context.Context, id string) error {
	return s.tc.POST("/processes", map[string]any{
		"id":           uniqueID(id),
		"restrictions": []any{map[string]any{"kind": "sender_owns_all_inputs"}},
	})
}

func (s *processSteps) createNested(ctx context.Context, id string, depth int) error {
	if depth < 1 {
		return fmt.Errorf("depth must be positive")
	}
	node := map[string]any{"kind": "none"}
	for i := 1; i < depth; i++ {
		node = map[string]any{
			"kind":     "combined",
			"operator": "AND",
			"left":     map[string]any{"kind": "none"},
			"right":    node,
		}
	}
	return s.tc.POST("/processes", map[string]any{"id": uniqueID(id), "restrictions": []any{node}})
}

func (s *processSteps) disable(ctx context.Context, version int, id string) error {
	return s.tc.POST(fmt.Sprintf("/processes/%s/versions/%d/disable", uniqueID(id), version), nil)
}

func (s *processSteps) validate(ctx context.Context, sender, owner, id string, version int) error {
	return s.tc.POST("/processes/validate", map[string]any{
		"process": map[string]any{"id": uniqueID(id), "version": version},
		"sender":  sender,
		"inputs":  []any{map[string]any{"owner": owner}},
		"outputs": []any{},
	})
}

func (s *processSteps) currentVersion(ctx context.Context, id string) error {
	return s.tc.GET(fmt.Sprintf("/processes/%s/version", uniqueID(id)))
}
