package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"clinic-authz/internal/app"
	"clinic-authz/internal/auth"
	"clinic-authz/internal/config"
	"clinic-authz/internal/policy"
	"clinic-authz/internal/policy/presets"
	"clinic-authz/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	envFilePath      = ".env"
	signalBufferSize = 1
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	dumpPolicy := flag.Bool("dump-policy", false, "print the builtin clinic policy as YAML and exit")
	checkPolicy := flag.String("check-policy", "", "validate a policy file and exit")
	issueToken := flag.String("issue-token", "", "print an access token for the given user id and exit")
	flag.Parse()

	if *dumpPolicy {
		os.Exit(runDumpPolicy())
	}
	if *checkPolicy != "" {
		os.Exit(runCheckPolicy(*checkPolicy))
	}

	if err := godotenv.Load(envFilePath); err != nil {
		slog.Warn(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithLevel(cfg.Log.Level),
		logger.WithFormat(cfg.Log.Format),
		logger.WithService(app.ServiceName),
	)
	slog.SetDefault(log)

	if *issueToken != "" {
		os.Exit(runIssueToken(cfg, *issueToken))
	}

	if err := run(cfg, log); err != nil {
		log.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := app.InitializeService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- service.Start(ctx)
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)
	reload := make(chan os.Signal, signalBufferSize)
	signal.Notify(reload, syscall.SIGHUP)

loop:
	for {
		select {
		case <-reload:
			if n, err := service.Reload(ctx); err == nil {
				log.Info("policy reloaded", "entries", n)
			}
		case err := <-errCh:
			if err != nil {
				_ = service.Shutdown(context.Background())
				return err
			}
			break loop
		case <-quit:
			break loop
		}
	}

	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := service.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server exited gracefully")
	return nil
}

func runDumpPolicy() int {
	data, err := policy.MarshalConfig(presets.Clinic())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal policy: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

func runCheckPolicy(path string) int {
	engine, err := app.LoadPolicy(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}
	fmt.Printf("%s: ok, %d policies for %d roles\n", path, len(engine.Entries()), len(engine.Roles()))
	return 0
}

func runIssueToken(cfg *config.Config, userID string) int {
	id, err := uuid.Parse(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid user id %q: %v\n", userID, err)
		return 1
	}

	token, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry).Generate(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}
