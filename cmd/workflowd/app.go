package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voundbrand/vc83-com-sub014/internal/behaviors"
	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/internal/telemetry"
	"github.com/voundbrand/vc83-com-sub014/internal/trigger"
)

// app is the wired process: store, engine and trigger service.
type app struct {
	cfg       *Config
	logger    *slog.Logger
	store     *store.LibSQLStore
	telemetry *telemetry.Provider
	engine    *engine.Engine
	trigger   *trigger.Service
}

// openStore opens and migrates the database without building the engine.
func openStore(ctx context.Context, cfg *Config) (*store.LibSQLStore, error) {
	if path, ok := strings.CutPrefix(cfg.DB.Path, "file:"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	s, err := store.NewLibSQLStore(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// newApp wires every component. logOut receives process logs; stdio MCP
// passes stderr so stdout stays a clean protocol stream.
func newApp(ctx context.Context, cfg *Config, logOut io.Writer) (*app, error) {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := tp.Metrics()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	reg := behaviors.NewRegistry()
	if err := behaviors.RegisterBuiltins(reg, behaviors.NewEnv(s, s)); err != nil {
		_ = s.Close()
		return nil, err
	}

	eng, err := engine.New(engine.Config{
		Registry:          reg,
		Logger:            logger,
		Tracer:            tp.Tracer(),
		Metrics:           metrics,
		RunTimeout:        cfg.Engine.RunTimeout,
		BehaviorTimeout:   cfg.Engine.BehaviorTimeout,
		MaxConcurrentRuns: cfg.Server.MaxConcurrentRuns,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	svc := trigger.NewService(trigger.Config{
		Engine:   eng,
		Store:    s,
		Notifier: trigger.NewNotifier(&http.Client{}, cfg.Webhook.Timeout),
		Logger:   logger,
	})

	logger.Info("workflowd initialized",
		"db", cfg.DB.Path,
		"behaviors", reg.Count(),
		"max_concurrent_runs", cfg.Server.MaxConcurrentRuns,
		"otlp", cfg.Telemetry.OTLPEndpoint != "",
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     s,
		telemetry: tp,
		engine:    eng,
		trigger:   svc,
	}, nil
}

// close drains running workflows, flushes telemetry and closes the store.
func (a *app) close() error {
	a.engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.telemetry.Shutdown(ctx), a.store.Close())
}
