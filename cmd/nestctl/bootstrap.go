package main

import (
	"context"
	"errors"
	"fmt"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/familynest/backend/internal/infrastructure/cache"
	"github.com/familynest/backend/internal/infrastructure/config"
	"github.com/familynest/backend/internal/infrastructure/crypto"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/infrastructure/mail"
	"github.com/familynest/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	lc := logger.DefaultConfig()
	lc.Output = "stderr"
	lc.Service = "nestctl"
	if cfg.Log.Level != "" {
		lc.Level = cfg.Log.Level
	}
	if verbose {
		lc.Level = "debug"
	}
	return logger.New(lc)
}

// openEvaluator connects to the database and Redis the way the server does.
// The returned func releases them.
func openEvaluator(_ context.Context, cfg *config.Config, log *zap.Logger) (campaignRunner, func(), error) {
	if !cfg.Mail.IsConfigured() {
		return nil, nil, errors.New("outbound mail is not configured")
	}
	if !cfg.Database.IsConfigured() {
		return nil, nil, errors.New("database is not configured")
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	store, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open idempotency store: %w", err)
	}
	cleanup := func() {
		_ = store.Close()
		_ = db.Close()
	}

	sealer, err := crypto.NewSealer(cfg.Capsule.AgeIdentity, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	mailer, err := mail.NewSender(&cfg.Mail, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	renderer, err := campaignapp.NewRenderer(cfg.App.BaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	evaluator := campaignapp.NewEvaluator(campaignapp.Dependencies{
		Families: persistence.NewGormFamilyRepository(db.DB),
		Members:  persistence.NewGormMemberRepository(db.DB),
		Activity: persistence.NewGormActivityRepository(db.DB),
		Capsules: persistence.NewGormCapsuleRepository(db.DB, sealer),
		Ledger:   persistence.NewGormCampaignLedger(db.DB),
		Store:    store,
		Mailer:   mailer,
		Renderer: renderer,
	}, campaignapp.EvaluatorConfig{
		From:             cfg.Mail.From,
		Location:         cfg.App.Location(),
		Mode:             campaign.Mode(cfg.Campaign.DripMode),
		BackfillGrace:    cfg.Campaign.BackfillGrace,
		BirthdayLeadDays: cfg.Campaign.BirthdayLeadDays,
		RunLockTTL:       cfg.Cron.LockTTL,
		PendingTimeout:   cfg.Campaign.PendingTimeout,
	}, log)

	return evaluator, cleanup, nil
}
