package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"clinic-authz/internal/audit"
	"clinic-authz/internal/config"
	"clinic-authz/internal/guard"
	"clinic-authz/internal/infra/cache"
	"clinic-authz/internal/policy"
	"clinic-authz/internal/repository/postgres"
	"clinic-authz/internal/transport/echo"

	"github.com/redis/go-redis/v9"
)

const cacheJanitorInterval = 5 * time.Minute

// Service is the authorization decision service with its collaborators
type Service struct {
	config *config.Config
	logger *slog.Logger

	holder *policy.Holder
	routes guard.Routes

	db          *postgres.DB
	redis       *redis.Client
	memoryCache *cache.PrincipalCache
	recorder    *audit.Recorder
	server      *echo.Server

	shutdownTracing func(context.Context) error
}

// Start runs background tasks and serves HTTP until Shutdown is called.
// It returns nil after a graceful shutdown.
func (s *Service) Start(ctx context.Context) error {
	if s.memoryCache != nil {
		go s.memoryCache.RunJanitor(ctx, cacheJanitorInterval)
	}

	s.logger.Info("starting authorization service",
		"port", s.config.Server.Port,
		"entries", len(s.holder.Load().Entries()),
		"policy_file", s.config.Policy.File)

	if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Reload rebuilds the catalog from its source and swaps it in atomically.
// On error the catalog in service is left untouched.
func (s *Service) Reload(_ context.Context) (int, error) {
	engine, err := LoadPolicy(s.config.Policy.File)
	if err != nil {
		s.logger.Error("policy reload rejected", "error", err)
		return 0, err
	}

	s.holder.Swap(engine)
	s.checkRoutes(engine)

	return len(engine.Entries()), nil
}

// Engine returns the catalog currently in service
func (s *Service) Engine() *policy.Engine {
	return s.holder.Load()
}

// Shutdown stops the HTTP server, then flushes audit events and closes the stores
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
	}
	if err := s.closeResources(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) closeResources(ctx context.Context) error {
	var errs []error
	if s.recorder != nil {
		if err := s.recorder.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush audit events: %w", err))
		}
	}
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.db != nil {
		s.db.Close()
	}
	return errors.Join(errs...)
}
