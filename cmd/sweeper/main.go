package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"modelcast-server/internal/cloudinary"
	"modelcast-server/internal/infra"
	"modelcast-server/internal/sweep"
)

const sweepBatchSize = 100

type sweeper struct {
	ctx      context.Context
	runner   *infra.SQLRunner
	assets   *cloudinary.AdminClient
	logger   infra.Logger
	interval time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	s := &sweeper{
		ctx:    ctx,
		runner: infra.NewSQLRunner(pool, logger),
		assets: cloudinary.NewAdminClient(cloudinary.AdminOptions{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		}),
		logger:   logger,
		interval: cfg.SweepInterval,
	}

	if err := s.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("sweeper: stopped with error")
	}
	logger.Info().Msg("sweeper: stopped")
}

func (s *sweeper) Run() error {
	s.logger.Info().Dur("interval", s.interval).Msg("sweeper: started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First pass immediately so a restart does not delay cleanup by a full
	// interval.
	s.sweepOnce()
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *sweeper) sweepOnce() {
	res, err := sweep.Expired(s.ctx, s.runner, s.assets, s.logger, sweepBatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: pass failed")
		return
	}
	if res.Deleted > 0 || res.Failed > 0 {
		s.logger.Info().Int("deleted", res.Deleted).Int("failed", res.Failed).Msg("sweeper: pass complete")
	}
}
