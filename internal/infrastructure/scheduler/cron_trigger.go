// Package scheduler runs the campaign evaluator from an in-process daily trigger.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is the work fired once per day
type Job func(ctx context.Context, now time.Time)

// DailySchedule is a time of day in a location
type DailySchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseDailySchedule parses the "m h * * *" subset of cron syntax.
// Every other field must be "*".
func ParseDailySchedule(expr string, loc *time.Location) (DailySchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return DailySchedule{}, fmt.Errorf("%w %q: want 5 fields", ErrInvalidSchedule, expr)
	}
	for _, f := range fields[2:] {
		if f != "*" {
			return DailySchedule{}, fmt.Errorf("%w %q: only daily schedules are supported", ErrInvalidSchedule, expr)
		}
	}
	minute, err := strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return DailySchedule{}, fmt.Errorf("%w %q: bad minute", ErrInvalidSchedule, expr)
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return DailySchedule{}, fmt.Errorf("%w %q: bad hour", ErrInvalidSchedule, expr)
	}
	if loc == nil {
		loc = time.UTC
	}
	return DailySchedule{Hour: hour, Minute: minute, Location: loc}, nil
}

// Due reports whether the schedule fires at or before now on now's date
func (s DailySchedule) Due(now time.Time) bool {
	local := now.In(s.Location)
	return local.Hour() > s.Hour || (local.Hour() == s.Hour && local.Minute() >= s.Minute)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	Schedule DailySchedule
	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// CronTrigger fires job once per local day, on the first check at or after
// the scheduled time. A process started after the time fires the same day.
type CronTrigger struct {
	config CronTriggerConfig
	job    Job
	logger *zap.Logger
	now    func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, job Job, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.Schedule.Location == nil {
		config.Schedule.Location = time.UTC
	}
	return &CronTrigger{
		config: config,
		job:    job,
		logger: logger,
		now:    time.Now,
	}
}

// Start begins checking the schedule in a background goroutine
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return ErrAlreadyRunning
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("hour", c.config.Schedule.Hour),
		zap.Int("minute", c.config.Schedule.Minute),
		zap.String("location", c.config.Schedule.Location.String()),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop cancels the loop and waits for a running job until ctx is done
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the job when it is due and has not run today.
// It returns whether the job ran.
func (c *CronTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now()
	today := now.In(c.config.Schedule.Location).Format("2006-01-02")

	c.mu.Lock()
	if c.lastRunDate == today || !c.config.Schedule.Due(now) {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = today
	c.mu.Unlock()

	c.logger.Info("Triggering daily campaign run", zap.String("date", today))
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Daily campaign run panicked", zap.Any("panic", r))
			}
		}()
		c.job(ctx, now)
	}()
	return true
}
