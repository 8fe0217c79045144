package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/console"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig builds the client configuration from the YAML file, if any,
// then applies the base URL override.
func loadConfig() (consoleauth.Config, error) {
	cfg := consoleauth.DefaultConfig()
	if path := viper.GetString("config"); path != "" {
		loaded, err := consoleauth.LoadConfigFile(path)
		if err != nil {
			return consoleauth.Config{}, err
		}
		cfg = loaded
	}
	if base := viper.GetString("base-url"); base != "" {
		cfg.Endpoint.BaseURL = base
	}
	return cfg, cfg.Validate()
}

func newClient(cfg consoleauth.Config) (*consoleauth.Client, error) {
	return consoleauth.New().
		WithConfig(cfg).
		WithErrorHandler(func(message string) {
			slog.Warn("request failed", "message", message)
		}).
		WithAuthExpiredHandler(func(reason error) {
			slog.Error("session expired, log in again", "reason", reason)
		}).
		Build()
}

// commandContext applies the --timeout flag to the command context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if d := viper.GetDuration("timeout"); d > 0 {
		return context.WithTimeout(cmd.Context(), d)
	}
	return context.WithCancel(cmd.Context())
}

// withSession logs in, runs fn and logs out.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, c *consoleauth.Client, api *console.API) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	account, password := viper.GetString("account"), viper.GetString("password")
	if account == "" || password == "" {
		return errors.New("account and password are required (--account/--password or CONSOLE_ACCOUNT/CONSOLE_PASSWORD)")
	}
	if err := client.Login(ctx, account, password); err != nil {
		return err
	}
	slog.Debug("logged in", "account", account, "base_url", cfg.Endpoint.BaseURL)

	runErr := fn(ctx, client, console.New(client))
	if err := client.Logout(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("logout", "error", err)
	}
	return runErr
}
