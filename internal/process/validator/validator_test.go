package validator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/internal/process/registry"
	"processguard/internal/process/store"
	"processguard/internal/process/validator"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
)

const sender domain.AccountID = "alice"

type ValidatorSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	registry  *registry.Registry
	metrics   *metrics.Metrics
	validator *validator.Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.registry = registry.New(s.store)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.validator = validator.New(s.store,
		validator.WithMetrics(s.metrics),
		validator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ValidatorSuite) create(id domain.ProcessIdentifier, rs ...restriction.Restriction) domain.ProcessFullyQualifiedID {
	version, _, err := s.registry.Create(s.ctx, id, rs)
	s.Require().NoError(err)
	return domain.ProcessFullyQualifiedID{ID: id, Version: version}
}

func (s *ValidatorSuite) outcomes(outcome string) float64 {
	return testutil.ToFloat64(s.metrics.ValidationOutcomes.WithLabelValues(outcome))
}

func (s *ValidatorSuite) TestUnknownProcessDenies() {
	for _, v := range []domain.ProcessVersion{0, 1, 2, 1000} {
		s.False(s.validator.Validate(s.ctx, domain.ProcessFullyQualifiedID{ID: "never-created", Version: v}, sender, nil, nil))
	}
	s.Equal(4.0, s.outcomes(metrics.OutcomeNotFound))
}

func (s *ValidatorSuite) TestUnknownVersionDenies() {
	fq := s.create("A", restriction.None())
	fq.Version++
	s.False(s.validator.Validate(s.ctx, fq, sender, nil, nil))
}

func (s *ValidatorSuite) TestNoneAdmitsAnyTransition() {
	fq := s.create("A", restriction.None())

	s.True(s.validator.Validate(s.ctx, fq, sender, nil, nil))
	s.True(s.validator.Validate(s.ctx, fq, "mallory",
		[]domain.ProcessIO{{Owner: "bob"}},
		[]domain.ProcessIO{{Owner: "carol", Roles: map[domain.RoleKey]domain.AccountID{"buyer": "dave"}}},
	))
	s.Equal(2.0, s.outcomes(metrics.OutcomeAdmitted))
}

func (s *ValidatorSuite) TestDisabledDeniesRegardlessOfRestrictions() {
	fq := s.create("A", restriction.None())
	s.True(s.validator.Validate(s.ctx, fq, sender, nil, nil))

	s.Require().NoError(s.registry.Disable(s.ctx, fq.ID, fq.Version))

	s.False(s.validator.Validate(s.ctx, fq, sender, nil, nil))
	s.Equal(1.0, s.outcomes(metrics.OutcomeDisabled))
}

func (s *ValidatorSuite) TestDisablingOneVersionLeavesOthersEnabled() {
	v1 := s.create("A", restriction.None())
	v2 := s.create("A", restriction.None())
	s.Require().NoError(s.registry.Disable(s.ctx, v1.ID, v1.Version))

	s.False(s.validator.Validate(s.ctx, v1, sender, nil, nil))
	s.True(s.validator.Validate(s.ctx, v2, sender, nil, nil))
}

func (s *ValidatorSuite) TestTopLevelListIsConjunction() {
	fq := s.create("A",
		restriction.None(),
		restriction.SenderOwnsAllInputs(),
		restriction.FixedNumberOfOutputs(1),
	)
	owned := []domain.ProcessIO{{Owner: sender}}
	oneOutput := []domain.ProcessIO{{Owner: "bob"}}

	s.True(s.validator.Validate(s.ctx, fq, sender, owned, oneOutput))
	s.False(s.validator.Validate(s.ctx, fq, "bob", owned, oneOutput), "second restriction fails")
	s.False(s.validator.Validate(s.ctx, fq, sender, owned, nil), "third restriction fails")
	s.Equal(2.0, s.outcomes(metrics.OutcomeRestrictionFailed))
}

func (s *ValidatorSuite) TestCombinedAnd() {
	admit := s.create("A", restriction.And(restriction.None(), restriction.None()))
	deny := s.create("B", restriction.And(restriction.None(), restriction.FixedNumberOfInputs(1)))

	s.True(s.validator.Validate(s.ctx, admit, sender, nil, nil))
	s.False(s.validator.Validate(s.ctx, deny, sender, nil, nil))
}

func (s *ValidatorSuite) TestRepeatedValidationIsIdempotent() {
	fq := s.create("A", restriction.SenderHasInputRole(0, "supplier"))
	inputs := []domain.ProcessIO{{Owner: "bob", Roles: map[domain.RoleKey]domain.AccountID{"supplier": sender}}}

	first := s.validator.Validate(s.ctx, fq, sender, inputs, nil)
	for i := 0; i < 5; i++ {
		s.Equal(first, s.validator.Validate(s.ctx, fq, sender, inputs, nil))
	}

	p, err := s.registry.Get(s.ctx, fq.ID, fq.Version)
	s.Require().NoError(err)
	s.Equal(models.StatusEnabled, p.Status, "validation must not mutate state")
}

type brokenReader struct{}

func (brokenReader) FindProcess(context.Context, domain.ProcessIdentifier, domain.ProcessVersion) (*models.Process, error) {
	return nil, errors.New("connection refused")
}

func (s *ValidatorSuite) TestStoreErrorsFailClosed() {
	v := validator.New(brokenReader{}, validator.WithMetrics(s.metrics))
	s.False(v.Validate(s.ctx, domain.ProcessFullyQualifiedID{ID: "A", Version: 1}, sender, nil, nil))
	s.Equal(1.0, s.outcomes(metrics.OutcomeStoreError))
}

func (s *ValidatorSuite) TestValidateBatch() {
	admit := s.create("A", restriction.None())
	deny := s.create("B", restriction.FixedNumberOfInputs(3))

	reqs := []validator.Request{
		{Process: admit, Transition: domain.Transition{Sender: sender}},
		{Process: deny, Transition: domain.Transition{Sender: sender}},
		{Process: domain.ProcessFullyQualifiedID{ID: "missing", Version: 1}},
		{Process: admit, Transition: domain.Transition{Sender: "bob"}},
	}

	s.Run("results keep request order", func() {
		v := validator.New(s.store, validator.WithBatchConcurrency(2))
		s.Equal([]bool{true, false, false, true}, v.ValidateBatch(s.ctx, reqs))
	})

	s.Run("cancelled context denies everything", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		s.Equal([]bool{false, false, false, false}, s.validator.ValidateBatch(ctx, reqs))
	})

	s.Run("empty batch", func() {
		s.Empty(s.validator.ValidateBatch(s.ctx, nil))
	})
}
