package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clinic-authz/internal/audit"
	"clinic-authz/internal/auth"
	"clinic-authz/internal/config"
	"clinic-authz/internal/guard"
	"clinic-authz/internal/http/middleware"
	"clinic-authz/internal/infra/cache"
	"clinic-authz/internal/metrics"
	"clinic-authz/internal/platform/otel"
	"clinic-authz/internal/policy"
	"clinic-authz/internal/policy/presets"
	"clinic-authz/internal/principal"
	"clinic-authz/internal/repository/postgres"
	"clinic-authz/internal/storage/s3"
	"clinic-authz/internal/transport/echo"
	"clinic-authz/pkg/profiling"
)

const ServiceName = "clinic-authz"

var errEmptyCatalog = errors.New("policy catalog is empty")

// InitializeService wires up all dependencies and returns a configured Service.
// Optional collaborators (Postgres, Redis, S3, tracing) are only built when configured.
func InitializeService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (svc *Service, err error) {
	s := &Service{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			s.closeResources(context.Background())
		}
	}()

	engine, err := LoadPolicy(cfg.Policy.File)
	if err != nil {
		return nil, err
	}
	s.holder = policy.NewHolder(engine)
	s.routes = guard.Clinic()
	s.checkRoutes(engine)

	s.shutdownTracing, err = otel.Setup(ctx, ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	sinks := []audit.Sink{audit.NewLogSink(logger)}

	var source principal.Resolver = principal.StaticResolver{}
	var auditStore echo.AuditQuerier
	if cfg.Database.Enabled() {
		s.db, err = postgres.New(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := s.db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		source = postgres.NewPrincipalRepository(s.db)
		auditRepo := postgres.NewAuditRepository(s.db)
		sinks = append(sinks, auditRepo)
		auditStore = auditRepo
	} else {
		logger.Warn("DB_HOST not set, no user has a role until a database is configured")
	}

	var principalCache principal.Cache
	if cfg.Redis.URL != "" {
		s.redis, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		principalCache = cache.NewRedisPrincipalCache(s.redis)
	} else {
		s.memoryCache = cache.NewPrincipalCache()
		principalCache = s.memoryCache
	}
	resolver := principal.NewCachedResolver(source, principalCache, cfg.Policy.CacheTTL, logger)

	if cfg.Audit.ArchiveEnabled() {
		client, err := s3.NewClient(cfg.Audit.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		sinks = append(sinks, audit.NewS3Archiver(client, cfg.Audit.Bucket, cfg.Audit.Prefix))
	}

	s.recorder = audit.NewRecorder(logger, audit.RecorderOptions{
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		Buffer:        cfg.Audit.Buffer,
	}, sinks...)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)

	deps := &echo.ServerDependencies{
		Config:      cfg.Server,
		Holder:      s.holder,
		Routes:      s.routes,
		Auth:        auth.NewMiddleware(jwtService, resolver, logger),
		Recorder:    s.recorder,
		Metrics:     metrics.New(),
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Reloader:    s,
		Audit:       auditStore,
		Principals:  resolver,
		Health:      s.healthChecks(),
		Logger:      logger,
	}
	s.server = echo.NewServer(deps)

	return s, nil
}

// LoadPolicy builds the engine from a YAML catalog, or from the builtin
// clinic preset when path is empty
func LoadPolicy(path string) (*policy.Engine, error) {
	if path == "" {
		return policy.New(presets.Clinic())
	}

	cfg, err := policy.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return policy.New(cfg)
}

func (s *Service) healthChecks() map[string]profiling.CheckFunc {
	checks := map[string]profiling.CheckFunc{
		"policy": func(context.Context) error {
			if len(s.holder.Load().Entries()) == 0 {
				return errEmptyCatalog
			}
			return nil
		},
	}
	if s.db != nil {
		checks["database"] = s.db.Ping
	}
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}
	}
	return checks
}

// checkRoutes warns about route table entries the catalog cannot grant
func (s *Service) checkRoutes(engine *policy.Engine) {
	for _, err := range s.routes.Validate(engine) {
		s.logger.Warn("route guard references missing policy", "error", err)
	}
}
