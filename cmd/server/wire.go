package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	"molecule/internal/bootstrap"
	"molecule/internal/evaluator"
	evalhandler "molecule/internal/evaluator/handler"
	evalmetrics "molecule/internal/evaluator/metrics"
	"molecule/internal/listmodule"
	listhandler "molecule/internal/listmodule/handler"
	listmetrics "molecule/internal/listmodule/metrics"
	"molecule/internal/listmodule/notify"
	kafkanotify "molecule/internal/listmodule/notify/kafka"
	listservice "molecule/internal/listmodule/service"
	liststore "molecule/internal/listmodule/store"
	"molecule/internal/logic"
	"molecule/internal/platform/config"
	platformkafka "molecule/internal/platform/kafka"
	"molecule/internal/platform/metrics"
	"molecule/internal/platform/postgres"
	platformredis "molecule/internal/platform/redis"
	policyhandler "molecule/internal/policy/handler"
	policymetrics "molecule/internal/policy/metrics"
	policyservice "molecule/internal/policy/service"
	policystore "molecule/internal/policy/store"
	"molecule/internal/selection"
	httptransport "molecule/internal/transport/http"
	audit "molecule/pkg/platform/audit"
	"molecule/pkg/platform/audit/publisher"
	auditmemory "molecule/pkg/platform/audit/store/memory"
	auditpostgres "molecule/pkg/platform/audit/store/postgres"
	"molecule/pkg/platform/circuit"
)

const auditBufferSize = 1024

// app holds the wired router and the resources that need closing.
type app struct {
	router      http.Handler
	aggregation string
	closers     []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// build wires every module. Postgres, Redis and Kafka are optional: with
// none configured the server runs fully in memory.
func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	var err error
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	var seed *bootstrap.Seed
	if cfg.SeedFile != "" {
		if seed, err = bootstrap.Load(cfg.SeedFile); err != nil {
			return nil, err
		}
	}

	aggregator, err := evaluator.ParseAggregator(aggregationMode(cfg, seed))
	if err != nil {
		return nil, err
	}
	a.aggregation = aggregator.Name()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}
	if db != nil {
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return fail(err)
		}
		log.Info("postgres storage enabled")
	}

	rc, err := platformredis.New(ctx, cfg.Redis, platformredis.WithLogger(log))
	if err != nil {
		return fail(err)
	}
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}

	kc, err := platformkafka.NewClient(cfg.Kafka.Brokers, log)
	if err != nil {
		return fail(err)
	}
	if kc != nil {
		a.closers = append(a.closers, kc.Close)
		if err := platformkafka.EnsureTopic(ctx, kc, cfg.Kafka.ListTopic, 1, 1); err != nil {
			return fail(err)
		}
	}

	auditPublisher := publisher.NewPublisher(auditStore(db),
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	a.closers = append(a.closers, auditPublisher.Close)

	directory := logic.NewDirectory()

	listOpts := []listservice.Option{
		listservice.WithLogger(log),
		listservice.WithAuditPublisher(auditPublisher),
		listservice.WithMetrics(listmetrics.New(reg)),
	}
	if store := listStore(db, rc); store != nil {
		listOpts = append(listOpts, listservice.WithStore(store))
	}
	if n := listNotifier(kc, cfg.Kafka.ListTopic, log); n != nil {
		listOpts = append(listOpts, listservice.WithNotifier(n))
	}
	lists := listservice.New(directory, listOpts...)
	if err := lists.Restore(ctx); err != nil {
		return fail(fmt.Errorf("restore lists: %w", err))
	}

	registry := policyservice.New(policyStore(db, directory), directory,
		policyservice.WithLogger(log),
		policyservice.WithAuditPublisher(auditPublisher),
		policyservice.WithMetrics(policymetrics.New(reg)),
	)

	sessionOpts := []selection.Option{
		selection.WithLogger(log),
		selection.WithAuditPublisher(auditPublisher),
	}
	if seed != nil {
		if _, err := bootstrap.Apply(ctx, seed, lists, directory, registry, log); err != nil {
			return fail(fmt.Errorf("apply seed: %w", err))
		}
		initial, err := selection.Select(ctx, registry, seed.SelectionIDs())
		if err != nil {
			return fail(fmt.Errorf("seed selection: %w", err))
		}
		sessionOpts = append(sessionOpts, selection.WithInitialSelection(initial))
	}

	sessions := selection.NewSessions(registry, 0, sessionOpts...)
	eval := evaluator.New(registry,
		evaluator.WithAggregator(aggregator),
		evaluator.WithLogger(log),
		evaluator.WithAuditPublisher(auditPublisher),
		evaluator.WithMetrics(evalmetrics.New(reg)),
	)

	policyH := policyhandler.New(registry, log)
	listH := listhandler.New(lists, log)
	evalH := evalhandler.New(eval, sessions, log)

	health := map[string]httptransport.HealthCheck{}
	if db != nil {
		health["postgres"] = db.PingContext
	}
	if rc != nil {
		health["redis"] = rc.Health
	}

	a.router = httptransport.NewRouter(httptransport.Config{
		AdminToken: cfg.AdminToken,
		Logger:     log,
		Metrics:    metrics.New(reg),
		Gatherer:   reg,
		Health:     health,
	},
		[]httptransport.AdminRouteRegistrar{policyH, listH},
		[]httptransport.RouteRegistrar{policyH, listH, evalH},
	)
	if cfg.AdminToken == "" {
		log.Warn("MOLECULE_ADMIN_TOKEN is empty; admin routes reject every request")
	}
	return a, nil
}

// aggregationMode prefers MOLECULE_AGGREGATION, then the seed, then the
// default strategy.
func aggregationMode(cfg config.Server, seed *bootstrap.Seed) string {
	if cfg.Aggregation != "" {
		return cfg.Aggregation
	}
	if seed != nil {
		return seed.Aggregation
	}
	return ""
}

func auditStore(db *sql.DB) audit.Store {
	if db != nil {
		return auditpostgres.New(db)
	}
	return auditmemory.NewInMemoryStore()
}

// listStore prefers Postgres, then Redis. Nil keeps lists in memory only.
func listStore(db *sql.DB, rc *platformredis.Client) listmodule.Store {
	switch {
	case db != nil:
		return liststore.NewPostgres(db)
	case rc != nil:
		return liststore.NewRedis(rc.Client)
	default:
		return nil
	}
}

// listNotifier publishes to Kafka behind a breaker; while the broker is
// unreachable notifications are logged instead.
func listNotifier(kc *kgo.Client, topic string, log *slog.Logger) listmodule.Notifier {
	if kc == nil {
		return nil
	}
	return notify.NewGuarded(
		kafkanotify.NewPublisher(kc, topic),
		notify.Log{Logger: log},
		circuit.New("kafka:"+topic),
		log,
	)
}

func policyStore(db *sql.DB, directory *logic.Directory) policyservice.Store {
	if db != nil {
		return policystore.NewPostgres(db, directory)
	}
	return policystore.NewInMemory()
}
