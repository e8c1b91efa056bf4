package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"processguard/internal/process/events"
	"processguard/internal/process/events/mocks"
	"processguard/internal/process/metrics"
	"processguard/internal/process/models"
	"processguard/internal/process/registry"
	"processguard/internal/process/service"
	"processguard/internal/process/store"
	"processguard/internal/process/validator"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	dErrors "processguard/pkg/domain-errors"
	"processguard/pkg/requestcontext"
)

// =============================================================================
// Lifecycle Service Test Suite
// =============================================================================
// The service is the only path through which processes change. Tests verify
// the notifications each operation emits, error propagation from the
// registry, and that a failed notification fails the operation.

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	store    *store.InMemory
	recorder *events.Recorder
	metrics  *metrics.Metrics
	service  *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActorID(s.ctx, "admin-1")
	s.ctx = requestcontext.WithRequestID(s.ctx, "req-1")
	s.store = store.NewInMemory()
	s.recorder = events.NewRecorder()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = service.New(registry.New(s.store),
		service.WithEventSink(s.recorder),
		service.WithMetrics(s.metrics),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ServiceSuite) TestCreateProcess() {
	s.Run("first version emits ProcessCreated with is_new", func() {
		res, err := s.service.CreateProcess(s.ctx, "A", []restriction.Restriction{restriction.None()})
		s.Require().NoError(err)
		s.Equal(&service.CreateResult{ID: "A", Version: 1, IsNew: true}, res)

		last, ok := s.recorder.Last()
		s.Require().True(ok)
		s.Equal(events.TypeProcessCreated, last.Type)
		s.Equal(domain.ProcessIdentifier("A"), last.ProcessID)
		s.Equal(domain.ProcessVersion(1), last.Version)
		s.Equal([]restriction.Restriction{restriction.None()}, last.Restrictions)
		s.True(last.IsNewProcess)
		s.Equal("admin-1", last.ActorID)
		s.Equal("req-1", last.RequestID)
		s.Equal(s.now, last.Timestamp)
	})

	s.Run("second version is not new", func() {
		res, err := s.service.CreateProcess(s.ctx, "A", []restriction.Restriction{restriction.None()})
		s.Require().NoError(err)
		s.Equal(domain.ProcessVersion(2), res.Version)
		s.False(res.IsNew)

		last, _ := s.recorder.Last()
		s.False(last.IsNewProcess)
	})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProcessesCreated.WithLabelValues("true")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProcessesCreated.WithLabelValues("false")))
}

func (s *ServiceSuite) TestCreateProcessRejectsDeepRestrictions() {
	deep := restriction.And(restriction.And(restriction.And(restriction.None(), restriction.None()), restriction.None()), restriction.None())

	res, err := s.service.CreateProcess(s.ctx, "A", []restriction.Restriction{deep})

	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeRestrictionsTooDeep))
	s.Empty(s.recorder.Events())
	version, err := s.service.CurrentVersion(s.ctx, "A")
	s.Require().NoError(err)
	s.Zero(version)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.LifecycleFailures.WithLabelValues("create", string(dErrors.CodeRestrictionsTooDeep))))
}

func (s *ServiceSuite) TestCreateProcessAlreadyExistsEmitsNothing() {
	s.Require().NoError(s.store.InsertProcess(s.ctx, models.NewProcess("A", 1, nil, s.now)))

	_, err := s.service.CreateProcess(s.ctx, "A", []restriction.Restriction{restriction.None()})

	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	s.Empty(s.recorder.Events())
	version, _ := s.service.CurrentVersion(s.ctx, "A")
	s.Equal(domain.ProcessVersion(1), version, "issued version stays burned")
}

func (s *ServiceSuite) TestDisableProcess() {
	_, err := s.service.CreateProcess(s.ctx, "A", []restriction.Restriction{restriction.None()})
	s.Require().NoError(err)

	s.Require().NoError(s.service.DisableProcess(s.ctx, "A", 1))

	last, _ := s.recorder.Last()
	s.Equal(events.TypeProcessDisabled, last.Type)
	s.Equal(domain.ProcessVersion(1), last.Version)
	p, err := s.service.GetProcess(s.ctx, "A", 1)
	s.Require().NoError(err)
	s.Equal(models.StatusDisabled, p.Status)

	s.Run("repeat disable succeeds", func() {
		s.NoError(s.service.DisableProcess(s.ctx, "A", 1))
	})

	s.Run("unknown version", func() {
		err := s.service.DisableProcess(s.ctx, "A", 9)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestBumpVersionAndList() {
	_, err := s.service.CreateProcess(s.ctx, "A", nil)
	s.Require().NoError(err)
	v, err := s.service.BumpVersion(s.ctx, "A")
	s.Require().NoError(err)
	s.Equal(domain.ProcessVersion(2), v)

	res, err := s.service.CreateProcess(s.ctx, "A", nil)
	s.Require().NoError(err)
	s.Equal(domain.ProcessVersion(3), res.Version)

	ps, err := s.service.ListVersions(s.ctx, "A")
	s.Require().NoError(err)
	s.Require().Len(ps, 2)
	s.Equal(domain.ProcessVersion(1), ps[0].Version)
	s.Equal(domain.ProcessVersion(3), ps[1].Version)
}

// Scenario: create(A, [None]) -> ProcessCreated(A, 1, [None], true); disable(A, 1)
// flips validation from admitted to denied.
func (s *ServiceSuite) TestCreateDisableValidateScenario() {
	v := validator.New(s.store)
	fq := domain.ProcessFullyQualifiedID{ID: "A", Version: 1}

	res, err := s.service.CreateProcess(s.ctx, "A", []restriction.Restriction{restriction.None()})
	s.Require().NoError(err)
	s.Equal(domain.ProcessVersion(1), res.Version)
	s.True(res.IsNew)
	s.True(v.Validate(s.ctx, fq, "anyone", nil, nil))

	s.Require().NoError(s.service.DisableProcess(s.ctx, "A", 1))
	s.False(v.Validate(s.ctx, fq, "anyone", nil, nil))

	recorded := s.recorder.Events()
	s.Require().Len(recorded, 2)
	s.Equal(events.TypeProcessCreated, recorded[0].Type)
	s.Equal(events.TypeProcessDisabled, recorded[1].Type)
}

// =============================================================================
// Sink failures
// =============================================================================

type SinkFailureSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	sink    *mocks.MockSink
	store   *store.InMemory
	service *service.Service
}

func TestSinkFailureSuite(t *testing.T) {
	suite.Run(t, new(SinkFailureSuite))
}

func (s *SinkFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sink = mocks.NewMockSink(s.ctrl)
	s.store = store.NewInMemory()
	s.service = service.New(registry.New(s.store), service.WithEventSink(s.sink))
}

func (s *SinkFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SinkFailureSuite) TestCreateSurfacesSinkErrorAsInternal() {
	s.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	res, err := s.service.CreateProcess(context.Background(), "A", nil)

	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *SinkFailureSuite) TestCreateEmitsOnce() {
	s.sink.EXPECT().Emit(gomock.Any(), gomock.Cond(func(x any) bool {
		e, ok := x.(events.Event)
		return ok && e.Type == events.TypeProcessCreated && e.ProcessID == "B" && e.Version == 1 && e.IsNewProcess
	})).Return(nil).Times(1)

	_, err := s.service.CreateProcess(context.Background(), "B", []restriction.Restriction{restriction.None()})
	s.NoError(err)
}

func (s *SinkFailureSuite) TestDisableSurfacesSinkError() {
	s.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	_, err := s.service.CreateProcess(context.Background(), "A", nil)
	s.Require().NoError(err)

	s.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	err = s.service.DisableProcess(context.Background(), "A", 1)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *SinkFailureSuite) TestCancelledContextAbortsBeforeAnyWrite() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.service.CreateProcess(ctx, "A", nil)
	s.Error(err)
	version, _ := s.store.CurrentVersion(context.Background(), "A")
	s.Zero(version)
}
