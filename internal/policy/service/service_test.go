package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"molecule/internal/logic"
	"molecule/internal/policy/metrics"
	"molecule/internal/policy/mocks"
	"molecule/internal/policy/models"
	"molecule/internal/policy/store"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/platform/audit/publisher"
	auditmemory "molecule/pkg/platform/audit/store/memory"
	"molecule/pkg/requestcontext"
)

var (
	denyRef  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	allowRef = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	unknown  = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	directory  *logic.Directory
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-1"), s.now)
	s.directory = logic.NewDirectory()
	s.Require().NoError(s.directory.Deploy(denyRef, logic.Func(func(common.Address) bool { return false })))
	s.Require().NoError(s.directory.Deploy(allowRef, logic.Func(func(common.Address) bool { return true })))
	s.store = store.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, s.directory,
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithMetrics(s.metrics),
	)
}

func req(id domain.PolicyID, ref common.Address) models.AddLogicRequest {
	return models.AddLogicRequest{ID: id, ModuleRef: ref, IsAllowList: true, Name: "p"}
}

func (s *ServiceSuite) TestAddLogic() {
	s.Run("registers enabled record", func() {
		r, err := s.service.AddLogic(s.ctx, models.AddLogicRequest{
			ID: 1, ModuleRef: denyRef, Name: "sanctions", ReverseLogic: true,
		})
		s.Require().NoError(err)
		s.True(r.Enabled)
		s.Equal(s.now, r.CreatedAt)
		s.NotNil(r.Module)

		got, err := s.service.Get(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal("sanctions", got.Name)
		s.True(got.ReverseLogic)
		s.False(got.IsAllowList)

		events, err := s.auditStore.ListBySubject(s.ctx, "policy:1")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventPolicyRegistered), events[0].Action)
		s.Equal("req-1", events[0].RequestID)
	})

	s.Run("duplicate id is rejected and the original kept", func() {
		_, err := s.service.AddLogic(s.ctx, models.AddLogicRequest{ID: 1, ModuleRef: allowRef, Name: "other"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateID))
		s.Contains(err.Error(), "policy id 1 already registered")

		got, err := s.service.Get(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal("sanctions", got.Name)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Rejected.WithLabelValues("add", string(dErrors.CodeDuplicateID))))
	})

	s.Run("module must be deployed", func() {
		_, err := s.service.AddLogic(s.ctx, req(5, unknown))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("zero id is invalid", func() {
		_, err := s.service.AddLogic(s.ctx, req(0, allowRef))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("names need not be unique", func() {
		_, err := s.service.AddLogic(s.ctx, models.AddLogicRequest{ID: 2, ModuleRef: allowRef, Name: "sanctions"})
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestAddLogicBatch() {
	s.Run("all or nothing on in-batch duplicate", func() {
		_, err := s.service.AddLogicBatch(s.ctx, []models.AddLogicRequest{
			req(10, allowRef), req(11, denyRef), req(10, denyRef),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateID))

		records, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("first error in input order wins", func() {
		_, err := s.service.AddLogicBatch(s.ctx, []models.AddLogicRequest{
			req(10, allowRef), req(11, unknown), req(0, allowRef),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), unknown.Hex())
	})

	s.Run("registers every record", func() {
		records, err := s.service.AddLogicBatch(s.ctx, []models.AddLogicRequest{
			req(12, allowRef), req(3, denyRef),
		})
		s.Require().NoError(err)
		s.Len(records, 2)

		all, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal(domain.PolicyID(3), all[0].ID)
		s.Equal(domain.PolicyID(12), all[1].ID)
		s.Equal(float64(2), testutil.ToFloat64(s.metrics.Registered))
	})

	s.Run("empty batch is a no-op", func() {
		records, err := s.service.AddLogicBatch(s.ctx, nil)
		s.Require().NoError(err)
		s.Empty(records)
	})
}

func (s *ServiceSuite) TestRemoveLogic() {
	_, err := s.service.AddLogicBatch(s.ctx, []models.AddLogicRequest{req(1, allowRef), req(2, denyRef)})
	s.Require().NoError(err)

	s.Run("unknown id is not found", func() {
		err := s.service.RemoveLogic(s.ctx, 99)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("batch with a missing id removes nothing", func() {
		err := s.service.RemoveLogicBatch(s.ctx, []domain.PolicyID{1, 42})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "policy 42")

		_, err = s.service.Get(s.ctx, 1)
		s.Require().NoError(err)
	})

	s.Run("removes record but leaves module deployed", func() {
		s.Require().NoError(s.service.RemoveLogic(s.ctx, 1))

		_, err := s.service.Get(s.ctx, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, ok := s.directory.Lookup(allowRef)
		s.True(ok)

		events, err := s.auditStore.ListBySubject(s.ctx, "policy:1")
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(string(audit.EventPolicyRemoved), events[1].Action)
	})

	s.Run("repeated id in a batch fails", func() {
		err := s.service.RemoveLogicBatch(s.ctx, []domain.PolicyID{2, 2})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.service.Get(s.ctx, 2)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestSetStatus() {
	_, err := s.service.AddLogic(s.ctx, req(7, allowRef))
	s.Require().NoError(err)

	later := s.now.Add(time.Hour)
	ctx := requestcontext.WithTime(s.ctx, later)

	r, err := s.service.SetStatus(ctx, 7, false)
	s.Require().NoError(err)
	s.False(r.Enabled)
	s.Equal(later, r.UpdatedAt)
	s.Equal(s.now, r.CreatedAt)

	r, err = s.service.SetStatus(ctx, 7, false)
	s.Require().NoError(err, "setting the current status succeeds")
	s.False(r.Enabled)

	_, err = s.service.SetStatus(ctx, 8, true)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.StatusChanges.WithLabelValues("false")))
}

func (s *ServiceSuite) TestStoreFailures() {
	ctrl := gomock.NewController(s.T())
	mockStore := mocks.NewMockStore(ctrl)
	mockAudit := mocks.NewMockAuditPublisher(ctrl)
	svc := New(mockStore, s.directory, WithAuditPublisher(mockAudit))
	boom := errors.New("connection reset")

	s.Run("create failure is internal and emits nothing", func() {
		mockStore.EXPECT().CreateBatch(gomock.Any(), gomock.Len(1)).Return(boom)
		_, err := svc.AddLogic(s.ctx, req(1, allowRef))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorIs(err, boom)
	})

	s.Run("audit failure does not fail the operation", func() {
		mockStore.EXPECT().DeleteBatch(gomock.Any(), []domain.PolicyID{1}).Return(nil)
		mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal("policy:1", e.Subject)
				s.Equal(string(audit.EventPolicyRemoved), e.Action)
				return errors.New("audit down")
			})
		s.NoError(svc.RemoveLogic(s.ctx, 1))
	})

	s.Run("lookup failure is internal", func() {
		mockStore.EXPECT().FindByID(gomock.Any(), domain.PolicyID(3)).Return(nil, boom)
		_, err := svc.Get(s.ctx, 3)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("list failure is internal", func() {
		mockStore.EXPECT().List(gomock.Any()).Return(nil, boom)
		_, err := svc.List(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
