package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/console"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(ctx context.Context, _ *consoleauth.Client, api *console.API) error {
			info, err := api.Info(ctx)
			if err != nil {
				return err
			}
			return printJSON(info)
		})
	},
}

var navCmd = &cobra.Command{
	Use:   "nav",
	Short: "Print the side bar URLs the user may open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(ctx context.Context, _ *consoleauth.Client, api *console.API) error {
			bar, err := api.SideBar(ctx)
			if err != nil {
				return err
			}
			for _, u := range console.FlattenSideBar(bar) {
				fmt.Println(u)
			}
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <path> [key=value ...]",
	Short: "GET a path and print the reply body",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("query argument %q must be key=value", kv)
			}
			query.Add(k, v)
		}
		return withSession(cmd, func(ctx context.Context, c *consoleauth.Client, _ *console.API) error {
			resp, err := c.Get(ctx, args[0], query)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(resp.Body)
			return err
		})
	},
}

var usersCmd = &cobra.Command{
	Use:   "users [account filter]",
	Short: "List users",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var query url.Values
		if len(args) == 1 {
			query = url.Values{"account": {args[0]}}
		}
		return withSession(cmd, func(ctx context.Context, _ *consoleauth.Client, api *console.API) error {
			users, err := api.Users().List(ctx, query)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%s\t%s\t%s\tstatus=%s\n", u.PublicID, u.Account, u.Name, u.Status)
			}
			return nil
		})
	},
}

var dictCmd = &cobra.Command{
	Use:   "dict <type>",
	Short: "Print the enabled options of a dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, _ *consoleauth.Client, api *console.API) error {
			opts, err := api.DictOptions(ctx, args[0])
			if err != nil {
				return err
			}
			for _, o := range opts {
				fmt.Printf("%s\t%s\n", o.Value, o.Label)
			}
			return nil
		})
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
