// Package listmodule implements the address-list logic module: a set of
// addresses whose verdict is membership.
package listmodule

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/listmodule/metrics"
	"molecule/internal/listmodule/models"
	dErrors "molecule/pkg/domain-errors"
	"molecule/pkg/requestcontext"
)

//go:generate mockgen -source=list.go -destination=mocks/mocks.go -package=mocks Store,Notifier

// Store persists list membership. Writes must be atomic per call.
type Store interface {
	CreateList(ctx context.Context, info models.ListInfo) error
	ListLists(ctx context.Context) ([]models.ListInfo, error)
	AddMembers(ctx context.Context, list common.Address, addrs []common.Address) error
	RemoveMembers(ctx context.Context, list common.Address, addrs []common.Address) error
	Members(ctx context.Context, list common.Address) ([]common.Address, error)
}

// Notifier receives one notification per committed batch.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

const (
	opAdd    = "add"
	opRemove = "remove"
)

// List is safe for concurrent use. Verdicts take a read lock; batches
// serialize on the write lock.
type List struct {
	info models.ListInfo

	mu      sync.RWMutex
	members map[common.Address]struct{}

	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*List)

// WithStore makes every batch write through to store before applying it.
func WithStore(store Store) Option {
	return func(l *List) {
		l.store = store
	}
}

func WithNotifier(n Notifier) Option {
	return func(l *List) {
		l.notifier = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *List) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *List) {
		l.metrics = m
	}
}

// New returns an empty list identified by info.Ref.
func New(info models.ListInfo, opts ...Option) *List {
	l := &List{
		info:    info,
		members: make(map[common.Address]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *List) Ref() common.Address {
	return l.info.Ref
}

func (l *List) Info() models.ListInfo {
	return l.info
}

// Verdict reports membership.
func (l *List) Verdict(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.members[addr]
	return ok
}

// AddToList inserts every address not already present. The batch applies in
// full or not at all, and one ListAdded notification carrying addrs is sent.
func (l *List) AddToList(ctx context.Context, addrs []common.Address) error {
	return l.apply(ctx, opAdd, addrs)
}

// RemoveFromList deletes every address present. Absent addresses are ignored
// but still reported in the ListRemoved notification.
func (l *List) RemoveFromList(ctx context.Context, addrs []common.Address) error {
	return l.apply(ctx, opRemove, addrs)
}

func (l *List) apply(ctx context.Context, op string, addrs []common.Address) error {
	batch := append([]common.Address{}, addrs...)

	l.mu.Lock()
	if l.store != nil && len(batch) > 0 {
		var err error
		if op == opAdd {
			err = l.store.AddMembers(ctx, l.info.Ref, batch)
		} else {
			err = l.store.RemoveMembers(ctx, l.info.Ref, batch)
		}
		if err != nil {
			l.mu.Unlock()
			l.metrics.IncBatchRejected(op)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist list change")
		}
	}
	for _, addr := range batch {
		if op == opAdd {
			l.members[addr] = struct{}{}
		} else {
			delete(l.members, addr)
		}
	}
	l.mu.Unlock()

	l.metrics.IncAddressesChanged(op, len(batch))

	kind := models.ListAdded
	if op == opRemove {
		kind = models.ListRemoved
	}
	l.notify(ctx, models.Notification{
		Kind:      kind,
		List:      l.info.Ref,
		Addresses: batch,
		At:        requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// notify never fails the batch; the membership change is already committed.
func (l *List) notify(ctx context.Context, n models.Notification) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, n); err != nil {
		l.metrics.IncNotifyFailures()
		if l.logger != nil {
			l.logger.WarnContext(ctx, "list notification failed",
				"list", n.List.Hex(),
				"kind", string(n.Kind),
				"addresses", len(n.Addresses),
				"error", err,
			)
		}
	}
}

// Members returns the current addresses in byte order.
func (l *List) Members() []common.Address {
	l.mu.RLock()
	out := make([]common.Address, 0, len(l.members))
	for addr := range l.members {
		out = append(out, addr)
	}
	l.mu.RUnlock()
	sortAddresses(out)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

// Restore replaces in-memory membership with the persisted set.
// No notification is sent.
func (l *List) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	addrs, err := l.store.Members(ctx, l.info.Ref)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load list members")
	}
	members := make(map[common.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		members[addr] = struct{}{}
	}
	l.mu.Lock()
	l.members = members
	l.mu.Unlock()
	return nil
}

func sortAddresses(addrs []common.Address) {
	slices.SortFunc(addrs, func(a, b common.Address) int { return a.Cmp(b) })
}
