// Package app wires the assistant from configuration. cmd/server and the
// erpbuddy CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
	"github.com/avvvet/erpbuddy-assistant/internal/config"
	"github.com/avvvet/erpbuddy-assistant/internal/dialogue"
	"github.com/avvvet/erpbuddy-assistant/internal/executor"
	"github.com/avvvet/erpbuddy-assistant/internal/handlers"
	"github.com/avvvet/erpbuddy-assistant/internal/intent"
	"github.com/avvvet/erpbuddy-assistant/internal/metrics"
	"github.com/avvvet/erpbuddy-assistant/internal/permissions"
	"github.com/avvvet/erpbuddy-assistant/internal/prompts"
	"github.com/avvvet/erpbuddy-assistant/internal/sessionstore"
	"github.com/avvvet/erpbuddy-assistant/internal/transport"
)

const shutdownTimeout = 10 * time.Second

// NewClassifier loads the intent table named by the config, or the
// embedded one.
func NewClassifier(cfg *config.Config) (*intent.Classifier, error) {
	nlu, err := intent.LoadConfig(cfg.NLUConfigPath)
	if err != nil {
		return nil, err
	}
	return intent.NewClassifier(nlu)
}

// NewOrchestrator builds the dialogue engine over the given catalog and
// executor.
func NewOrchestrator(cfg *config.Config, lookup catalog.Lookup, exec executor.Executor, rec metrics.Recorder, logger *zap.Logger) (*dialogue.Orchestrator, error) {
	classifier, err := NewClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load intents: %w", err)
	}

	var perms permissions.Checker = permissions.AllowAll{}
	if cfg.PermissionsPath != "" {
		policy, err := permissions.LoadPolicy(cfg.PermissionsPath)
		if err != nil {
			return nil, err
		}
		perms = policy
	} else {
		logger.Warn("no permissions file configured, every command is allowed")
	}

	overrides, err := prompts.LoadOverrides(cfg.RepliesPath)
	if err != nil {
		return nil, err
	}
	renderer, err := prompts.NewRenderer(overrides)
	if err != nil {
		return nil, err
	}

	o := dialogue.New(classifier, lookup, perms, exec,
		dialogue.WithLogger(logger),
		dialogue.WithMetrics(rec),
		dialogue.WithRenderer(renderer),
		dialogue.WithThresholds(cfg.EntityThreshold, cfg.TaskThreshold),
		dialogue.WithLimits(cfg.CandidateLimit, cfg.ListLimit),
	)
	entity, task := o.Thresholds()
	logger.Info("dialogue ready",
		zap.Float64("entity_threshold", entity),
		zap.Float64("task_threshold", task),
	)
	return o, nil
}

// Serve runs the NATS, HTTP and metrics endpoints until ctx is cancelled,
// then shuts them down.
func Serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cat, err := catalog.OpenSQLite(ctx, cfg.CatalogDSN)
	if err != nil {
		return err
	}
	defer cat.Close()
	logger.Info("catalog opened", zap.String("dsn", cfg.CatalogDSN))

	store, err := sessionstore.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Redis connected", zap.Duration("session_ttl", cfg.SessionTTL))

	conn, err := transport.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheusRecorder(reg)

	exec := executor.NewNATSExecutor(conn, cfg.NatsCommandPrefix)
	orch, err := NewOrchestrator(cfg, cat, exec, rec, logger)
	if err != nil {
		return err
	}
	handler := handlers.NewTurnHandler(orch, store, cfg.TurnLockTTL, logger, rec)

	natsTransport := transport.NewNATSTransport(conn, cfg.NatsTurnSubject, cfg.ServiceName, cfg.NatsTimeout, handler, logger)
	if err := natsTransport.Start(); err != nil {
		return err
	}

	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           transport.NewRouter(handler, store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", transport.NewMetricsHandler(reg))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, metricsServer} {
		g.Go(func() error {
			logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := natsTransport.Close(); err != nil {
			errs = append(errs, err)
		}
		for _, srv := range []*http.Server{apiServer, metricsServer} {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	logger.Info("assistant is running",
		zap.String("service", cfg.ServiceName),
		zap.String("subject", cfg.NatsTurnSubject),
		zap.String("command_prefix", cfg.NatsCommandPrefix),
	)
	return g.Wait()
}
