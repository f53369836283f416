package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/renoplan/renoplan/internal/config"
	"github.com/renoplan/renoplan/internal/database"
	"github.com/renoplan/renoplan/internal/sessions"
	"github.com/renoplan/renoplan/pkg/logger"
)

// Standalone expired-session sweeper. Deployments that scale the API
// horizontally run one of these instead of the in-process sweep.
// SWEEP_ONCE=true performs a single sweep and exits (cron mode).
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required for the session sweeper")
	}

	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	repo := sessions.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection("sessions"))
	svc := sessions.NewService(repo, nil)

	if os.Getenv("SWEEP_ONCE") == "true" {
		n, err := svc.DeleteExpired(ctx)
		if err != nil {
			logger.Fatalf("sweep failed: %v", err)
		}
		logger.Infof("removed %d expired sessions", n)
		return
	}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger.Infof("sweeping expired sessions every %s", cfg.Auth.SweepInterval)
	svc.RunSweeper(runCtx, cfg.Auth.SweepInterval)
}
