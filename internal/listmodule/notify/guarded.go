// Package notify routes list notifications to a primary sink with a fallback
// while the primary is failing.
package notify

import (
	"context"
	"log/slog"

	"molecule/internal/listmodule"
	"molecule/internal/listmodule/models"
	"molecule/pkg/platform/circuit"
)

// Guarded delivers to a primary sink behind a circuit breaker. While the
// circuit is open, failed deliveries go to the fallback instead of surfacing
// as errors. The primary is still attempted so successes can close it.
type Guarded struct {
	primary  listmodule.Notifier
	fallback listmodule.Notifier
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewGuarded(primary, fallback listmodule.Notifier, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	return &Guarded{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (g *Guarded) Notify(ctx context.Context, n models.Notification) error {
	err := g.primary.Notify(ctx, n)
	if err == nil {
		if _, change := g.breaker.RecordSuccess(); change.Closed && g.logger != nil {
			g.logger.InfoContext(ctx, "notification sink recovered", "sink", g.breaker.Name())
		}
		return nil
	}

	useFallback, change := g.breaker.RecordFailure()
	if change.Opened && g.logger != nil {
		g.logger.WarnContext(ctx, "notification sink circuit opened", "sink", g.breaker.Name(), "error", err)
	}
	if useFallback && g.fallback != nil {
		return g.fallback.Notify(ctx, n)
	}
	return err
}

// Log writes notifications to a logger. Used as the fallback sink so changes
// made while the primary is down can be replayed from logs.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, n models.Notification) error {
	addrs := make([]string, len(n.Addresses))
	for i, a := range n.Addresses {
		addrs[i] = a.Hex()
	}
	l.Logger.WarnContext(ctx, "list notification not delivered",
		"kind", string(n.Kind),
		"list", n.List.Hex(),
		"addresses", addrs,
		"request_id", n.RequestID,
	)
	return nil
}
