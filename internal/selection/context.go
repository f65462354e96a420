package selection

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"molecule/pkg/attrs"
	"molecule/pkg/domain"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Context is one caller's current selection. Select replaces it wholesale;
// on failure the previous selection stays in place.
type Context struct {
	id             domain.SessionID
	registry       Registry
	logger         *slog.Logger
	auditPublisher AuditPublisher

	mu  sync.RWMutex
	sel Selection
}

type Option func(*Context)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *Context) {
		c.auditPublisher = publisher
	}
}

// WithInitialSelection seeds a new context with an already validated
// selection instead of the empty one.
func WithInitialSelection(sel Selection) Option {
	return func(c *Context) {
		c.sel = sel
	}
}

func NewContext(id domain.SessionID, registry Registry, opts ...Option) *Context {
	c := &Context{id: id, registry: registry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) ID() domain.SessionID {
	return c.id
}

// Select validates ids and, on success, replaces the current selection.
func (c *Context) Select(ctx context.Context, ids []domain.PolicyID) (Selection, error) {
	sel, err := Select(ctx, c.registry, ids)
	if err != nil {
		return Selection{}, err
	}

	c.mu.Lock()
	c.sel = sel
	c.mu.Unlock()

	c.logAudit(ctx, string(audit.EventSelectionChanged),
		"subject", "session:"+c.id.String(),
		"policy_ids", joinIDs(sel.ids),
	)
	return sel, nil
}

// Snapshot returns the current selection.
func (c *Context) Snapshot() Selection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sel
}

func (c *Context) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if c.logger != nil {
		c.logger.InfoContext(ctx, event, args...)
	}
	if c.auditPublisher == nil {
		return
	}
	if err := c.auditPublisher.Emit(ctx, audit.Event{
		Subject:   attrs.ExtractString(attributes, "subject"),
		Action:    event,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.Actor(ctx),
	}); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}

func joinIDs(ids []domain.PolicyID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
