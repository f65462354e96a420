package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"molecule/internal/listmodule/mocks"
	"molecule/internal/listmodule/models"
	"molecule/internal/listmodule/notify/memory"
	"molecule/internal/logic"
	dErrors "molecule/pkg/domain-errors"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/platform/audit/publisher"
	auditmemory "molecule/pkg/platform/audit/store/memory"
	"molecule/pkg/platform/sentinel"
	"molecule/pkg/requestcontext"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	directory  *logic.Directory
	recorder   *memory.Recorder
	auditStore *auditmemory.InMemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithActor(requestcontext.WithRequestID(context.Background(), "req-9"), "admin")
	s.directory = logic.NewDirectory()
	s.recorder = memory.NewRecorder()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(s.directory,
		WithNotifier(s.recorder),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
}

func (s *ServiceSuite) TestCreate() {
	s.Run("deploys list into directory", func() {
		list, err := s.service.Create(s.ctx, "  sanctions  ")
		s.Require().NoError(err)
		s.Equal("sanctions", list.Info().Name)

		m, ok := s.directory.Lookup(list.Ref())
		s.Require().True(ok)
		s.Same(list, m)

		events, err := s.auditStore.ListBySubject(s.ctx, "list:"+list.Ref().Hex())
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventListDeployed), events[0].Action)
		s.Equal("admin", events[0].ActorID)
		s.Equal("req-9", events[0].RequestID)
	})

	s.Run("rejects reuse of an address", func() {
		ref := common.HexToAddress("0x77")
		_, err := s.service.CreateAt(s.ctx, ref, "a")
		s.Require().NoError(err)

		_, err = s.service.CreateAt(s.ctx, ref, "b")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects zero address", func() {
		_, err := s.service.CreateAt(s.ctx, common.Address{}, "a")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestMembership() {
	list, err := s.service.Create(s.ctx, "aml")
	s.Require().NoError(err)
	ref := list.Ref()

	s.Require().NoError(s.service.AddToList(s.ctx, ref, []common.Address{alice, bob}))
	ok, err := s.service.Contains(ref, alice)
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.service.RemoveFromList(s.ctx, ref, []common.Address{alice}))
	ok, err = s.service.Contains(ref, alice)
	s.Require().NoError(err)
	s.False(ok)

	notes := s.recorder.Notifications()
	s.Require().Len(notes, 2)
	s.Equal(models.ListAdded, notes[0].Kind)
	s.Equal(models.ListRemoved, notes[1].Kind)

	events, err := s.auditStore.ListBySubject(s.ctx, "list:"+ref.Hex())
	s.Require().NoError(err)
	s.Len(events, 3)
}

func (s *ServiceSuite) TestUnknownList() {
	unknown := common.HexToAddress("0xdead")
	s.True(dErrors.HasCode(s.service.AddToList(s.ctx, unknown, []common.Address{alice}), dErrors.CodeNotFound))
	s.True(dErrors.HasCode(s.service.RemoveFromList(s.ctx, unknown, nil), dErrors.CodeNotFound))
	_, err := s.service.Contains(unknown, alice)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListsInCreationOrder() {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := s.service.CreateAt(requestcontext.WithTime(s.ctx, first.Add(time.Hour)), common.HexToAddress("0x01"), "later")
	s.Require().NoError(err)
	b, err := s.service.CreateAt(requestcontext.WithTime(s.ctx, first), common.HexToAddress("0x02"), "earlier")
	s.Require().NoError(err)

	infos := s.service.Lists()
	s.Require().Len(infos, 2)
	s.Equal(b.Ref(), infos[0].Ref)
	s.Equal(a.Ref(), infos[1].Ref)
}

func (s *ServiceSuite) TestWithStore() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	directory := logic.NewDirectory()
	svc := New(directory, WithStore(store))
	ref := common.HexToAddress("0x42")

	s.Run("store conflict maps to conflict", func() {
		store.EXPECT().CreateList(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
		_, err := svc.CreateAt(s.ctx, ref, "x")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		_, deployed := directory.Lookup(ref)
		s.False(deployed)
	})

	s.Run("store failure is internal", func() {
		store.EXPECT().CreateList(gomock.Any(), gomock.Any()).Return(errors.New("down"))
		_, err := svc.CreateAt(s.ctx, ref, "x")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("restore deploys persisted lists with members", func() {
		store.EXPECT().ListLists(gomock.Any()).Return([]models.ListInfo{{Ref: ref, Name: "persisted"}}, nil)
		store.EXPECT().Members(gomock.Any(), ref).Return([]common.Address{bob}, nil)

		s.Require().NoError(svc.Restore(s.ctx))
		m, ok := directory.Lookup(ref)
		s.Require().True(ok)
		s.True(m.Verdict(bob))
		s.False(m.Verdict(alice))
	})

	s.Run("occupied address is refused before the store write", func() {
		taken := common.HexToAddress("0x43")
		s.Require().NoError(directory.Deploy(taken, logic.Func(func(common.Address) bool { return true })))

		// No CreateList expectation: gomock fails the test if the store is touched.
		_, err := svc.CreateAt(s.ctx, taken, "shadow")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		_, err = svc.Get(taken)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("restore skips lists already loaded", func() {
		store.EXPECT().ListLists(gomock.Any()).Return([]models.ListInfo{{Ref: ref}}, nil)
		s.Require().NoError(svc.Restore(s.ctx))
	})
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.Event) error {
	return publisher.ErrClosed
}

func (s *ServiceSuite) TestAuditFailureIsLogged() {
	var buf bytes.Buffer
	svc := New(logic.NewDirectory(),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithAuditPublisher(failingPublisher{}),
	)

	_, err := svc.Create(s.ctx, "kyc")
	s.Require().NoError(err, "audit delivery never fails the operation")
	s.Contains(buf.String(), "failed to emit audit event")
	s.Contains(buf.String(), publisher.ErrClosed.Error())
}

func (s *ServiceSuite) TestRestoreWithoutStore() {
	s.NoError(s.service.Restore(s.ctx))
}
