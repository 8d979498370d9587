package main

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/pgstore"
	"github.com/MrEthical07/goSession/privilege"
	"github.com/MrEthical07/goSession/session"
	"github.com/spf13/cobra"
)

// NewUseraddCmd creates the useradd subcommand.
func NewUseraddCmd() *cobra.Command {
	var (
		pw         string
		privileges string
	)
	opts := &hashOptions{}

	cmd := &cobra.Command{
		Use:   "useradd <name>",
		Short: "Create a user",
		Long: `Create a user with a hashed password and a token privilege grant.
Privileges are names separated by "|" or "," (LOGIN|EDIT_USERS) or a decimal mask.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pw == "" {
				return errors.New("--password is required")
			}
			mask, err := privilege.Parse(privileges)
			if err != nil {
				return err
			}
			if mask == 0 {
				mask = privilege.Default
			}
			hash, err := opts.hash(pw)
			if err != nil {
				return err
			}

			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := connectPostgres(ctx, newLogger(cfg), cfg.DatabaseURL, cfg.ConnectAttempts)
			if err != nil {
				return err
			}
			defer pool.Close()

			prof, err := pgstore.NewProfiles(pool).Create(ctx, args[0], hash, mask)
			if err != nil {
				if errors.Is(err, pgstore.ErrProfileExists) {
					return fmt.Errorf("user %q already exists", args[0])
				}
				return err
			}
			cmd.Printf("created user %d (%s) with privileges %s\n", prof.ID, prof.SafeName, prof.Privileges)
			return nil
		},
	}

	cmd.Flags().StringVar(&pw, "password", "", "plaintext password, or the client MD5 digest with --md5")
	cmd.Flags().StringVar(&privileges, "privileges", "LOGIN", "granted token privileges")
	opts.register(cmd)
	return cmd
}

// NewPasswdCmd creates the passwd subcommand.
func NewPasswdCmd() *cobra.Command {
	var pw string
	opts := &hashOptions{}

	cmd := &cobra.Command{
		Use:   "passwd <name>",
		Short: "Replace a user's password",
		Long: `Replace a user's stored hash. Every token issued before the change stops
validating on the next check, on every server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pw == "" {
				return errors.New("--password is required")
			}
			hash, err := opts.hash(pw)
			if err != nil {
				return err
			}

			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := connectPostgres(ctx, newLogger(cfg), cfg.DatabaseURL, cfg.ConnectAttempts)
			if err != nil {
				return err
			}
			defer pool.Close()

			profiles := pgstore.NewProfiles(pool)
			prof, err := profiles.ProfileByName(ctx, args[0])
			if err != nil {
				if errors.Is(err, session.ErrProfileNotFound) {
					return fmt.Errorf("user %q not found", args[0])
				}
				return err
			}
			if err := profiles.UpdatePasswordHash(ctx, prof.ID, hash); err != nil {
				return err
			}
			cmd.Printf("password updated for user %d (%s)\n", prof.ID, prof.SafeName)
			return nil
		},
	}

	cmd.Flags().StringVar(&pw, "password", "", "plaintext password, or the client MD5 digest with --md5")
	opts.register(cmd)
	return cmd
}
