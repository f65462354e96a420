package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"molecule/internal/evaluator/metrics"
	"molecule/internal/policy/models"
	"molecule/internal/selection"
	"molecule/pkg/attrs"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Registry,AuditPublisher

// Registry resolves selected ids to records at check time.
type Registry interface {
	Get(ctx context.Context, id domain.PolicyID) (*models.Record, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service answers whether an address satisfies a selection.
type Service struct {
	registry       Registry
	aggregator     Aggregator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithAggregator(agg Aggregator) Option {
	return func(s *Service) {
		if agg != nil {
			s.aggregator = agg
		}
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

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(registry Registry, opts ...Option) *Service {
	s := &Service{
		registry:   registry,
		aggregator: All,
		tracer:     otel.Tracer("molecule/evaluator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Aggregator reports the configured strategy.
func (s *Service) Aggregator() Aggregator {
	return s.aggregator
}

// Check reports whether addr satisfies every enabled policy in sel (under
// the default strategy).
func (s *Service) Check(ctx context.Context, sel selection.Selection, addr common.Address) (bool, error) {
	result, err := s.Evaluate(ctx, sel, addr)
	if err != nil {
		return false, err
	}
	return result.Passed, nil
}

// CheckSession evaluates against the session's current selection.
func (s *Service) CheckSession(ctx context.Context, c *selection.Context, addr common.Address) (*Result, error) {
	return s.Evaluate(ctx, c.Snapshot(), addr)
}

// Evaluate resolves every selected id before querying any module, so a
// removed id fails the whole check without a partial result.
func (s *Service) Evaluate(ctx context.Context, sel selection.Selection, addr common.Address) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "evaluator.Evaluate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("molecule.address", addr.Hex()),
			attribute.Int("molecule.selection_size", sel.Len()),
			attribute.String("molecule.aggregation", s.aggregator.Name()),
		),
	)
	defer span.End()

	records, err := s.resolve(ctx, sel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve selection")
		s.metrics.IncFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}

	result := &Result{
		Address:     addr,
		Aggregation: s.aggregator.Name(),
		Policies:    make([]PolicyOutcome, 0, len(records)),
		EvaluatedAt: requestcontext.Now(ctx),
	}
	decision := newFold(s.aggregator)
	queried := 0
	for _, r := range records {
		outcome := PolicyOutcome{
			ID:           r.ID,
			Name:         r.Name,
			ModuleRef:    r.ModuleRef,
			AllowList:    r.IsAllowList,
			ReverseLogic: r.ReverseLogic,
		}
		switch {
		case !r.Enabled:
			outcome.Status = PolicyDisabled
		case decision.settled:
			outcome.Status = PolicyNotEvaluated
		default:
			outcome.Verdict = r.Module.Verdict(addr)
			queried++
			pass := Transform(outcome.Verdict, r.IsAllowList, r.ReverseLogic)
			outcome.Status = PolicyFailed
			if pass {
				outcome.Status = PolicyPassed
			}
			decision.add(pass)
		}
		result.Policies = append(result.Policies, outcome)
	}
	passed := decision.result
	result.Passed = passed

	span.SetAttributes(
		attribute.Bool("molecule.passed", passed),
		attribute.Int("molecule.modules_queried", queried),
	)
	s.metrics.AddModuleQueries(queried)
	s.metrics.IncDecision(passed, s.aggregator.Name())
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	s.logAudit(ctx, string(audit.EventDecisionMade),
		"subject", "address:"+addr.Hex(),
		"passed", passed,
		"aggregation", s.aggregator.Name(),
		"policy_count", len(records),
	)
	return result, nil
}

func (s *Service) resolve(ctx context.Context, sel selection.Selection) ([]*models.Record, error) {
	ids := sel.IDs()
	records := make([]*models.Record, 0, len(ids))
	for _, id := range ids {
		r, err := s.registry.Get(ctx, id)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return nil, models.NewLogicIDNotFound(id)
			}
			return nil, err
		}
		if r.Enabled && r.Module == nil {
			return nil, dErrors.Newf(dErrors.CodeInternal, "logic module %s for policy %s is not deployed", r.ModuleRef.Hex(), id)
		}
		records = append(records, r)
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
	decision := "fail"
	if passed, ok := attrs.ExtractBool(attributes, "passed"); ok && passed {
		decision = "pass"
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   attrs.ExtractString(attributes, "subject"),
		Action:    event,
		Decision:  decision,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.Actor(ctx),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
