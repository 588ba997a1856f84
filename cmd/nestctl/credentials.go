package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/infrastructure/auth"
	"github.com/familynest/backend/internal/infrastructure/crypto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// DevTokenOptions holds flags for dev-token
type DevTokenOptions struct {
	*RootOptions
	UserID   string
	FamilyID string
	TTL      time.Duration
}

// NewDevTokenCommand creates the dev-token command
func NewDevTokenCommand(rootOpts *RootOptions, env environment) *cobra.Command {
	opts := &DevTokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Sign an access token with the configured JWT secret",
		Long: `Sign an access token the way the auth provider would, for local
development. Refused when app.env is production.

Examples:
  nestctl dev-token --user 3f1c... --family 9a2b...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.App.IsProduction() {
				return errors.New("dev-token is disabled in production")
			}

			userID, err := uuid.Parse(opts.UserID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			var familyID *uuid.UUID
			if opts.FamilyID != "" {
				id, err := uuid.Parse(opts.FamilyID)
				if err != nil {
					return fmt.Errorf("--family must be a UUID: %w", err)
				}
				familyID = &id
			}

			token, err := auth.NewTokenValidator(cfg.JWT).DevToken(userID, familyID, opts.TTL)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id (token subject)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&opts.FamilyID, "family", "", "family id claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

// NewAgeKeygenCommand creates the age-keygen command
func NewAgeKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "age-keygen",
		Short: "Generate an identity for capsule.age_identity",
		Long: `Generate an X25519 age identity used to seal capsule letters at rest.
Store the secret key in NEST_CAPSULE_AGE_IDENTITY. Losing it makes every
sealed letter unreadable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, recipient, err := crypto.GenerateIdentity()
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"identity":  identity,
					"recipient": recipient,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
			fmt.Fprintf(cmd.OutOrStdout(), "# public key: %s\n", recipient)
			fmt.Fprintln(cmd.OutOrStdout(), identity)
			return nil
		},
	}
}
