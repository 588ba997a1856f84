package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CampaignRunner runs the daily notification evaluator
type CampaignRunner interface {
	Run(ctx context.Context, now time.Time) *campaignapp.RunResult
	SweepPending(ctx context.Context, now time.Time) (int64, error)
	Location() *time.Location
}

// CronHandlerConfig configures the scheduler trigger
type CronHandlerConfig struct {
	// Secret is compared with the ?secret= query parameter. Empty refuses every call.
	Secret string
	// Preflight reports missing configuration (mail, database); a non-nil error answers 500
	Preflight func() error
	// AllowDateOverride accepts ?date=YYYY-MM-DD to replay a past day. Never set in production.
	AllowDateOverride bool
	Now               func() time.Time
}

// CronHandler is the external scheduler's entry point. Its responses are
// the bare RunResult, not the API envelope.
type CronHandler struct {
	runner CampaignRunner
	cfg    CronHandlerConfig
}

// NewCronHandler creates a new CronHandler. runner may be nil when Preflight fails.
func NewCronHandler(runner CampaignRunner, cfg CronHandlerConfig) *CronHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CronHandler{runner: runner, cfg: cfg}
}

// Run godoc
// @Summary      Run scheduled campaigns
// @Description  Evaluates birthday reminders, capsule unlock notices, the weekly digest and every drip stage once. One category failing never stops the others.
// @Tags         cron
// @Produce      json
// @Param        secret query string true  "Shared cron secret"
// @Param        date   query string false "Replay date (non-production only)"
// @Success      200 {object} campaignapp.RunResult
// @Failure      401 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /cron/run [get]
func (h *CronHandler) Run(c *gin.Context) {
	if !h.authorized(c.Query("secret")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if h.cfg.Preflight != nil {
		if err := h.cfg.Preflight(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if h.runner == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "campaign evaluator is not configured"})
		return
	}

	now, err := h.runTime(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	log := logger.L(ctx)
	if _, err := h.runner.SweepPending(ctx, now); err != nil {
		log.Warn("Failed to sweep pending campaign reservations", zap.Error(err))
	}

	result := h.runner.Run(ctx, now)
	log.Info("Cron run answered",
		zap.Time("now", now),
		zap.Int("sent", result.Sent()),
		zap.Int("errors", len(result.Errors)),
	)
	c.JSON(http.StatusOK, result)
}

func (h *CronHandler) authorized(given string) bool {
	if h.cfg.Secret == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.cfg.Secret)) == 1
}

// runTime is the server clock, or the same wall time on the replay date
func (h *CronHandler) runTime(date string) (time.Time, error) {
	now := h.cfg.Now()
	if date == "" || !h.cfg.AllowDateOverride {
		return now, nil
	}
	d, err := valueobject.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	loc := h.runner.Location()
	local := now.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc), nil
}
