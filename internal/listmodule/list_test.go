package listmodule

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"molecule/internal/listmodule/metrics"
	"molecule/internal/listmodule/mocks"
	"molecule/internal/listmodule/models"
	"molecule/internal/listmodule/notify/memory"
	dErrors "molecule/pkg/domain-errors"
	"molecule/pkg/requestcontext"
)

var (
	listRef = common.HexToAddress("0x00000000000000000000000000000000000001a1")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol   = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

type ListSuite struct {
	suite.Suite
	ctx      context.Context
	recorder *memory.Recorder
	list     *List
}

func TestListSuite(t *testing.T) {
	suite.Run(t, new(ListSuite))
}

func (s *ListSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
	s.recorder = memory.NewRecorder()
	s.list = New(models.ListInfo{Ref: listRef, Name: "aml"}, WithNotifier(s.recorder))
}

func (s *ListSuite) TestVerdict() {
	s.Run("fresh list contains nothing", func() {
		s.False(s.list.Verdict(alice))
		s.Equal(0, s.list.Len())
	})

	s.Run("added address is a member", func() {
		s.Require().NoError(s.list.AddToList(s.ctx, []common.Address{alice}))
		s.True(s.list.Verdict(alice))
		s.False(s.list.Verdict(bob))
	})

	s.Run("removed address is not a member", func() {
		s.Require().NoError(s.list.RemoveFromList(s.ctx, []common.Address{alice}))
		s.False(s.list.Verdict(alice))
	})
}

func (s *ListSuite) TestAddToList() {
	s.Run("notification carries the exact input", func() {
		s.recorder.Reset()
		input := []common.Address{bob, alice, bob}
		s.Require().NoError(s.list.AddToList(s.ctx, input))

		notes := s.recorder.Notifications()
		s.Require().Len(notes, 1)
		s.Equal(models.ListAdded, notes[0].Kind)
		s.Equal(listRef, notes[0].List)
		s.Equal(input, notes[0].Addresses)
		s.Equal("req-1", notes[0].RequestID)
		s.Equal(2, s.list.Len())
	})

	s.Run("re-adding is idempotent but still notifies", func() {
		s.recorder.Reset()
		s.Require().NoError(s.list.AddToList(s.ctx, []common.Address{alice}))
		s.Equal(2, s.list.Len())
		s.Len(s.recorder.Notifications(), 1)
	})

	s.Run("notification is a copy of the input", func() {
		s.recorder.Reset()
		input := []common.Address{carol}
		s.Require().NoError(s.list.AddToList(s.ctx, input))
		input[0] = alice

		s.Equal([]common.Address{carol}, s.recorder.Notifications()[0].Addresses)
	})

	s.Run("empty batch notifies with empty addresses", func() {
		s.recorder.Reset()
		s.Require().NoError(s.list.AddToList(s.ctx, nil))

		notes := s.recorder.Notifications()
		s.Require().Len(notes, 1)
		s.Empty(notes[0].Addresses)
	})
}

func (s *ListSuite) TestRemoveFromList() {
	s.Require().NoError(s.list.AddToList(s.ctx, []common.Address{alice, bob}))
	s.recorder.Reset()

	s.Run("absent addresses are ignored but reported", func() {
		input := []common.Address{carol, alice}
		s.Require().NoError(s.list.RemoveFromList(s.ctx, input))

		s.False(s.list.Verdict(alice))
		s.True(s.list.Verdict(bob))
		notes := s.recorder.Notifications()
		s.Require().Len(notes, 1)
		s.Equal(models.ListRemoved, notes[0].Kind)
		s.Equal(input, notes[0].Addresses)
	})
}

func (s *ListSuite) TestMembersSorted() {
	s.Require().NoError(s.list.AddToList(s.ctx, []common.Address{carol, alice, bob}))
	s.Equal([]common.Address{bob, alice, carol}, s.list.Members())
}

func (s *ListSuite) TestNotificationTimestampFromContext() {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, fixed)
	s.Require().NoError(s.list.AddToList(ctx, []common.Address{alice}))
	s.Equal(fixed, s.recorder.Notifications()[0].At)
}

func (s *ListSuite) TestStoreWriteThrough() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockStore(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	list := New(models.ListInfo{Ref: listRef}, WithStore(store), WithNotifier(notifier), WithMetrics(m))

	s.Run("store failure rejects the whole batch", func() {
		store.EXPECT().AddMembers(gomock.Any(), listRef, []common.Address{alice, bob}).
			Return(errors.New("connection reset"))

		err := list.AddToList(s.ctx, []common.Address{alice, bob})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.False(list.Verdict(alice))
		s.False(list.Verdict(bob))
		s.Equal(1.0, testutil.ToFloat64(m.BatchesRejected.WithLabelValues("add")))
	})

	s.Run("store success applies and notifies", func() {
		store.EXPECT().AddMembers(gomock.Any(), listRef, []common.Address{alice}).Return(nil)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, n models.Notification) error {
				s.Equal(models.ListAdded, n.Kind)
				return nil
			})

		s.Require().NoError(list.AddToList(s.ctx, []common.Address{alice}))
		s.True(list.Verdict(alice))
	})

	s.Run("empty batch skips the store", func() {
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
		s.Require().NoError(list.RemoveFromList(s.ctx, []common.Address{}))
	})

	s.Run("restore replaces membership", func() {
		store.EXPECT().Members(gomock.Any(), listRef).Return([]common.Address{carol}, nil)
		s.Require().NoError(list.Restore(s.ctx))
		s.False(list.Verdict(alice))
		s.True(list.Verdict(carol))
	})

	s.Run("restore failure keeps current membership", func() {
		store.EXPECT().Members(gomock.Any(), listRef).Return(nil, errors.New("down"))
		s.Require().Error(list.Restore(s.ctx))
		s.True(list.Verdict(carol))
	})
}

func (s *ListSuite) TestNotifierFailureDoesNotUndoChange() {
	ctrl := gomock.NewController(s.T())
	notifier := mocks.NewMockNotifier(ctrl)
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	list := New(models.ListInfo{Ref: listRef},
		WithNotifier(notifier),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithMetrics(m),
	)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	s.Require().NoError(list.AddToList(s.ctx, []common.Address{alice}))
	s.True(list.Verdict(alice))
	s.Contains(logs.String(), "list notification failed")
	s.Equal(1.0, testutil.ToFloat64(m.NotifyFailures))
}

func (s *ListSuite) TestConcurrentBatchesAndVerdicts() {
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			addr := common.BigToAddress(common.Big1)
			if i%2 == 0 {
				_ = s.list.AddToList(s.ctx, []common.Address{addr, alice})
			} else {
				_ = s.list.RemoveFromList(s.ctx, []common.Address{addr})
			}
		}()
		go func() {
			defer wg.Done()
			_ = s.list.Verdict(alice)
			_ = s.list.Members()
		}()
	}
	wg.Wait()

	s.True(s.list.Verdict(alice))
	s.Len(s.recorder.Notifications(), 50)
}
