package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context the common steps use.
type TestContext interface {
	GET(path string) error
	SetBearer(token string)
	GetAdminToken() string
	GetLastStatus() int
	GetLastBody() string
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers background, auth and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the processguard server is healthy$`, steps.serverIsHealthy)
	ctx.Step(`^I am authenticated as a process admin$`, steps.authenticateAsAdmin)
	ctx.Step(`^I am not authenticated$`, steps.clearAuthentication)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) authenticateAsAdmin(ctx context.Context) error {
	token := s.tc.GetAdminToken()
	if token == "" {
		return fmt.Errorf("PROCESSGUARD_E2E_ADMIN_TOKEN is not set")
	}
	s.tc.SetBearer(token)
	return nil
}

func (s *commonSteps) clearAuthentication(ctx context.Context) error {
	s.tc.SetBearer("")
	return nil
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.GetLastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	var got string
	switch t := v.(type) {
	case string:
		got = t
	case bool:
		got = strconv.FormatBool(t)
	case float64:
		got = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		got = fmt.Sprint(t)
	}
	if got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}
