package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunCampaignsOptions holds flags for run-campaigns
type RunCampaignsOptions struct {
	*RootOptions
	Date  string
	Force bool
}

// NewRunCampaignsCommand creates the run-campaigns command
func NewRunCampaignsCommand(rootOpts *RootOptions, env environment) *cobra.Command {
	opts := &RunCampaignsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run-campaigns",
		Short: "Run the scheduled campaign evaluator once",
		Long: `Run birthday reminders, capsule unlock notices, the weekly digest and
every drip stage once, exactly as the cron endpoint does.

--date replays a past local day at the current wall time. A date whose run
is still in progress, or whose run died holding its lock, is refused unless
--force releases the lock; drip emails that were sent stay sent either way.

Examples:
  nestctl run-campaigns
  nestctl run-campaigns --date 2025-01-06 --force --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaigns(cmd, opts, env)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "local date to evaluate (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "release the date's run lock first")

	return cmd
}

func runCampaigns(cmd *cobra.Command, opts *RunCampaignsOptions, env environment) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runner, log, cleanup, err := openRunner(ctx, opts.RootOptions, env)
	if err != nil {
		return err
	}
	defer cleanup()

	now, err := replayTime(env.now(), opts.Date, runner.Location())
	if err != nil {
		return err
	}

	if opts.Force {
		if err := runner.ReleaseRunLock(ctx, valueobject.DateIn(now, runner.Location())); err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
	}

	if _, err := runner.SweepPending(ctx, now); err != nil {
		log.Warn("Failed to sweep pending campaign reservations", zap.Error(err))
	}
	result := runner.Run(ctx, now)
	return printRunResult(cmd.OutOrStdout(), opts.Format, valueobject.DateIn(now, runner.Location()), result)
}

// NewSweepPendingCommand creates the sweep-pending command
func NewSweepPendingCommand(rootOpts *RootOptions, env environment) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-pending",
		Short: "Delete campaign reservations left pending by an interrupted run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			runner, _, cleanup, err := openRunner(ctx, rootOpts, env)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := runner.SweepPending(ctx, env.now())
			if err != nil {
				return fmt.Errorf("sweep pending reservations: %w", err)
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int64{"swept": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Swept %d pending reservation(s)\n", n)
			return nil
		},
	}
}

func openRunner(ctx context.Context, opts *RootOptions, env environment) (campaignRunner, *zap.Logger, func(), error) {
	cfg, err := env.loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := env.newLogger(cfg, opts.Verbose)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	runner, release, err := env.openRunner(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if release != nil {
			release()
		}
		_ = log.Sync()
	}
	return runner, log, cleanup, nil
}

// replayTime keeps the wall clock of now and moves it to date in loc.
// An empty date means now.
func replayTime(now time.Time, date string, loc *time.Location) (time.Time, error) {
	if date == "" {
		return now, nil
	}
	d, err := valueobject.ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date: %w", err)
	}
	local := now.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc), nil
}

func printRunResult(w io.Writer, format string, date valueobject.Date, result *campaignapp.RunResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "Campaign run for %s\n", date)
	rows := []struct {
		label string
		count int
	}{
		{"Birthday reminders", result.BirthdayReminders},
		{"Capsule unlocks", result.CapsuleUnlocks},
		{"Weekly digests", result.WeeklyDigests},
		{"Day 1 nudges", result.Day1Nudges},
		{"Day 3 discovery", result.Day3Discovery},
		{"Day 5 invites", result.Day5Invites},
		{"Day 14 upgrades", result.Day14Upgrades},
		{"Day 30 re-engagement", result.Day30Reengagement},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-22s %d\n", r.label, r.count)
	}
	if len(result.Errors) == 0 {
		fmt.Fprintln(w, "No errors")
		return nil
	}
	fmt.Fprintf(w, "%d error(s):\n", len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	return nil
}
