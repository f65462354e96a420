package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/logic"
	"molecule/internal/policy/metrics"
	"molecule/internal/policy/models"
	"molecule/internal/policy/store"
	"molecule/pkg/attrs"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/platform/sentinel"
	"molecule/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=../mocks/mocks.go -package=mocks Store,ModuleResolver,AuditPublisher

type Store interface {
	CreateBatch(ctx context.Context, records []*models.Record) error
	DeleteBatch(ctx context.Context, ids []domain.PolicyID) error
	SetEnabled(ctx context.Context, id domain.PolicyID, enabled bool, now time.Time) (*models.Record, error)
	FindByID(ctx context.Context, id domain.PolicyID) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
}

// ModuleResolver finds deployed modules by address.
type ModuleResolver interface {
	Lookup(ref common.Address) (logic.Module, bool)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the policy registry: it owns records and their lifecycle.
type Service struct {
	store          Store
	modules        ModuleResolver
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

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

func New(store Store, modules ModuleResolver, opts ...Option) *Service {
	s := &Service{store: store, modules: modules}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddLogic registers one record.
func (s *Service) AddLogic(ctx context.Context, req models.AddLogicRequest) (*models.Record, error) {
	records, err := s.AddLogicBatch(ctx, []models.AddLogicRequest{req})
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// AddLogicBatch registers every record or none. The first failing entry,
// in input order, determines the error.
func (s *Service) AddLogicBatch(ctx context.Context, reqs []models.AddLogicRequest) ([]*models.Record, error) {
	now := requestcontext.Now(ctx)
	records := make([]*models.Record, 0, len(reqs))
	for _, req := range reqs {
		module, ok := s.modules.Lookup(req.ModuleRef)
		if !ok {
			s.metrics.IncRejected("add", string(dErrors.CodeValidation))
			return nil, dErrors.Newf(dErrors.CodeValidation, "no logic module deployed at %s", req.ModuleRef.Hex())
		}
		r, err := models.NewRecord(req, module, now)
		if err != nil {
			s.metrics.IncRejected("add", string(dErrors.CodeValidation))
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid policy record")
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return records, nil
	}

	if err := s.store.CreateBatch(ctx, records); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			id, _ := store.FailedID(err)
			s.metrics.IncRejected("add", string(dErrors.CodeDuplicateID))
			return nil, dErrors.Newf(dErrors.CodeDuplicateID, "policy id %s already registered", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register policies")
	}

	for _, r := range records {
		s.logAudit(ctx, string(audit.EventPolicyRegistered),
			"subject", subject(r.ID),
			"policy_id", r.ID.String(),
			"module", r.ModuleRef.Hex(),
			"allow_list", r.IsAllowList,
			"reverse_logic", r.ReverseLogic,
			"enabled", r.Enabled,
		)
	}
	s.metrics.AddRegistered(len(records))
	return records, nil
}

// RemoveLogic deletes one record. The referenced module is left untouched.
func (s *Service) RemoveLogic(ctx context.Context, id domain.PolicyID) error {
	return s.RemoveLogicBatch(ctx, []domain.PolicyID{id})
}

// RemoveLogicBatch deletes every record or none.
func (s *Service) RemoveLogicBatch(ctx context.Context, ids []domain.PolicyID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.DeleteBatch(ctx, ids); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			id, _ := store.FailedID(err)
			s.metrics.IncRejected("remove", string(dErrors.CodeNotFound))
			return dErrors.Newf(dErrors.CodeNotFound, "policy %s not found", id)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove policies")
	}
	for _, id := range ids {
		s.logAudit(ctx, string(audit.EventPolicyRemoved),
			"subject", subject(id),
			"policy_id", id.String(),
		)
	}
	s.metrics.AddRemoved(len(ids))
	return nil
}

// SetStatus enables or disables a record. Setting the current value succeeds.
func (s *Service) SetStatus(ctx context.Context, id domain.PolicyID, enabled bool) (*models.Record, error) {
	r, err := s.store.SetEnabled(ctx, id, enabled, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "policy %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update policy status")
	}
	s.logAudit(ctx, string(audit.EventPolicyStatusChanged),
		"subject", subject(id),
		"policy_id", id.String(),
		"enabled", enabled,
	)
	s.metrics.IncStatusChange(enabled)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id domain.PolicyID) (*models.Record, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "policy %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return r, nil
}

// List returns every record ordered by id.
func (s *Service) List(ctx context.Context) ([]*models.Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return records, nil
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

func subject(id domain.PolicyID) string {
	return "policy:" + id.String()
}
