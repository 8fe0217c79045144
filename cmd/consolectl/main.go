// Command consolectl drives the console API from a terminal through the
// token-refreshing client.
//
// Settings come from flags, CONSOLE_* environment variables, or a YAML
// client config:
//
//	CONSOLE_BASE_URL=http://127.0.0.1:8080/api \
//	CONSOLE_ACCOUNT=admin CONSOLE_PASSWORD='Admin@123' consolectl info
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "consolectl",
	Short:         "Console API client",
	Long:          "Command line client for the admin console API with automatic token refresh.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("base-url", "", "API base URL, e.g. http://127.0.0.1:8080/api")
	flags.StringP("config", "c", "", "YAML client configuration file")
	flags.StringP("account", "u", "", "Login account")
	flags.StringP("password", "p", "", "Login password")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Duration("timeout", 0, "Overall command timeout (0 means none)")

	viper.SetEnvPrefix("CONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{"base-url", "config", "account", "password", "verbose", "timeout"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "bind %s flag: %v\n", name, err)
		}
	}

	rootCmd.AddCommand(infoCmd, navCmd, getCmd, usersCmd, dictCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
