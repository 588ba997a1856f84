package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags for all commands
type RootOptions struct {
	Verbose bool
	Format  string
}

// campaignRunner is the part of the evaluator the campaign commands drive
type campaignRunner interface {
	Run(ctx context.Context, now time.Time) *campaignapp.RunResult
	SweepPending(ctx context.Context, now time.Time) (int64, error)
	Location() *time.Location
	ReleaseRunLock(ctx context.Context, date valueobject.Date) error
}

// environment holds what commands need from outside the process.
// Tests replace it.
type environment struct {
	loadConfig func() (*config.Config, error)
	openRunner func(ctx context.Context, cfg *config.Config, log *zap.Logger) (campaignRunner, func(), error)
	newLogger  func(cfg *config.Config, verbose bool) (*zap.Logger, error)
	now        func() time.Time
}

func defaultEnvironment() environment {
	return environment{
		loadConfig: config.Load,
		openRunner: openEvaluator,
		newLogger:  newLogger,
		now:        time.Now,
	}
}

// NewRootCommand creates the root command
func NewRootCommand(env environment) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nestctl",
		Short: "Family Nest operator tools",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCampaignsCommand(opts, env))
	cmd.AddCommand(NewSweepPendingCommand(opts, env))
	cmd.AddCommand(NewDevTokenCommand(opts, env))
	cmd.AddCommand(NewAgeKeygenCommand(opts))

	return cmd
}
