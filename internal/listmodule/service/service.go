package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/listmodule"
	"molecule/internal/listmodule/metrics"
	"molecule/internal/listmodule/models"
	"molecule/internal/logic"
	"molecule/pkg/attrs"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/platform/sentinel"
	"molecule/pkg/requestcontext"
)

// Deployer makes list modules reachable by address for policy records.
type Deployer interface {
	Deploy(ref common.Address, m logic.Module) error
	Lookup(ref common.Address) (logic.Module, bool)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

const maxNameLen = 256

// Service owns the deployed list modules.
type Service struct {
	deployer       Deployer
	store          listmodule.Store
	notifier       listmodule.Notifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	mu    sync.RWMutex
	lists map[common.Address]*listmodule.List
}

type Option func(*Service)

func WithStore(store listmodule.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithNotifier(n listmodule.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(deployer Deployer, opts ...Option) *Service {
	s := &Service{
		deployer: deployer,
		lists:    make(map[common.Address]*listmodule.List),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create deploys an empty list under a fresh address.
func (s *Service) Create(ctx context.Context, name string) (*listmodule.List, error) {
	return s.CreateAt(ctx, domain.NewModuleRef(), name)
}

// CreateAt deploys an empty list under ref.
func (s *Service) CreateAt(ctx context.Context, ref common.Address, name string) (*listmodule.List, error) {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLen {
		return nil, dErrors.New(dErrors.CodeValidation, "list name is too long")
	}
	if ref == (common.Address{}) {
		return nil, dErrors.New(dErrors.CodeValidation, "list address is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lists[ref]; exists {
		return nil, dErrors.Newf(dErrors.CodeConflict, "list %s already exists", ref.Hex())
	}
	// Checked before the store write so a refused deploy never leaves a
	// persisted list that Restore would trip over.
	if _, taken := s.deployer.Lookup(ref); taken {
		return nil, dErrors.Newf(dErrors.CodeConflict, "address %s already hosts a logic module", ref.Hex())
	}

	info := models.ListInfo{Ref: ref, Name: name, CreatedAt: requestcontext.Now(ctx)}
	if s.store != nil {
		if err := s.store.CreateList(ctx, info); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.Newf(dErrors.CodeConflict, "list %s already exists", ref.Hex())
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create list")
		}
	}

	list, err := s.deployLocked(info)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventListDeployed), "subject", subject(ref), "name", name)
	return list, nil
}

func (s *Service) deployLocked(info models.ListInfo) (*listmodule.List, error) {
	list := listmodule.New(info,
		listmodule.WithStore(s.store),
		listmodule.WithNotifier(s.notifier),
		listmodule.WithLogger(s.logger),
		listmodule.WithMetrics(s.metrics),
	)
	if err := s.deployer.Deploy(info.Ref, list); err != nil {
		return nil, err
	}
	s.lists[info.Ref] = list
	s.metrics.SetListsDeployed(len(s.lists))
	return list, nil
}

func (s *Service) Get(ref common.Address) (*listmodule.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.lists[ref]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "list %s not found", ref.Hex())
	}
	return list, nil
}

// Lists returns every deployed list in creation order.
func (s *Service) Lists() []models.ListInfo {
	s.mu.RLock()
	out := make([]models.ListInfo, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, l.Info())
	}
	s.mu.RUnlock()
	sortInfos(out)
	return out
}

func (s *Service) AddToList(ctx context.Context, ref common.Address, addrs []common.Address) error {
	list, err := s.Get(ref)
	if err != nil {
		return err
	}
	if err := list.AddToList(ctx, addrs); err != nil {
		return err
	}
	s.logAudit(ctx, string(audit.EventListAdded), "subject", subject(ref), "count", len(addrs))
	return nil
}

func (s *Service) RemoveFromList(ctx context.Context, ref common.Address, addrs []common.Address) error {
	list, err := s.Get(ref)
	if err != nil {
		return err
	}
	if err := list.RemoveFromList(ctx, addrs); err != nil {
		return err
	}
	s.logAudit(ctx, string(audit.EventListRemoved), "subject", subject(ref), "count", len(addrs))
	return nil
}

func (s *Service) Contains(ref common.Address, addr common.Address) (bool, error) {
	list, err := s.Get(ref)
	if err != nil {
		return false, err
	}
	return list.Verdict(addr), nil
}

// Restore deploys every persisted list not yet loaded, with its members.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	infos, err := s.store.ListLists(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lists")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, info := range infos {
		if _, loaded := s.lists[info.Ref]; loaded {
			continue
		}
		list, err := s.deployLocked(info)
		if err != nil {
			return err
		}
		if err := list.Restore(ctx); err != nil {
			return err
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "lists restored", "count", len(infos))
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   attrs.ExtractString(attributes, "subject"),
		Action:    event,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.Actor(ctx),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}

func subject(ref common.Address) string {
	return "list:" + ref.Hex()
}

func sortInfos(infos []models.ListInfo) {
	slices.SortFunc(infos, func(a, b models.ListInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return a.Ref.Cmp(b.Ref)
	})
}
