// Package main provides the outline-admin binary entry point: a command-line
// client for the Outline proxy-server management API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/outline-tools/outline-admin/internal/app"
	"github.com/outline-tools/outline-admin/internal/config"
	"github.com/outline-tools/outline-admin/internal/logger"
	"github.com/outline-tools/outline-admin/pkg/outline"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "outline-admin",
		Short:         "Manage an Outline proxy server over its HTTPS management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(keysCmd(), serverCmd(), metricsCmd())
	return cmd
}

// withAdmin loads config, initializes logging and runs fn against a wired
// admin runtime.
func withAdmin(fn func(ctx context.Context, a *app.Admin) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	admin, err := app.NewAdmin(cfg, &logger.Zap{L: log})
	if err != nil {
		return err
	}
	defer admin.Close()

	return fn(ctx, admin)
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage access keys",
	}
	cmd.AddCommand(keysListCmd(), keysGetCmd(), keysCreateCmd(), keysUpdateCmd(), keysDeleteCmd(), keysLimitCmd())
	return cmd
}

func keysListCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List access keys",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				if offline {
					entries, err := a.OfflineKeys()
					if err != nil {
						return err
					}
					return printJSON(entries)
				}
				raw, err := a.ListKeys(ctx)
				if err != nil {
					return err
				}
				return printRaw(raw)
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "list journaled keys without calling the API")
	return cmd
}

func keysGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key-id>",
		Short: "Fetch one access key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				raw, err := a.GetKey(ctx, args[0])
				if err != nil {
					return err
				}
				return printRaw(raw)
			})
		},
	}
}

func keysCreateCmd() *cobra.Command {
	var (
		name       string
		password   string
		method     string
		limitBytes int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an access key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := keyParamsFromFlags(cmd, name, password, method, limitBytes)
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				raw, err := a.CreateKey(ctx, params)
				if err != nil {
					return err
				}
				return printRaw(raw)
			})
		},
	}
	addKeyParamFlags(cmd, &name, &password, &method, &limitBytes)
	return cmd
}

func keysUpdateCmd() *cobra.Command {
	var (
		name       string
		password   string
		method     string
		limitBytes int64
	)

	cmd := &cobra.Command{
		Use:   "update <key-id>",
		Short: "Update an access key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := keyParamsFromFlags(cmd, name, password, method, limitBytes)
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				raw, err := a.UpdateKey(ctx, args[0], params)
				if err != nil {
					return err
				}
				return printRaw(raw)
			})
		},
	}
	addKeyParamFlags(cmd, &name, &password, &method, &limitBytes)
	return cmd
}

func keysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an access key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				return a.DeleteKey(ctx, args[0])
			})
		},
	}
}

func keysLimitCmd() *cobra.Command {
	var (
		limitBytes int64
		clear      bool
	)

	cmd := &cobra.Command{
		Use:   "limit <key-id>",
		Short: "Set or clear a key's data limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear == cmd.Flags().Changed("bytes") {
				return fmt.Errorf("exactly one of --bytes or --clear is required")
			}
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				if clear {
					return a.ClearLimit(ctx, args[0])
				}
				return a.SetLimit(ctx, args[0], limitBytes)
			})
		},
	}
	cmd.Flags().Int64Var(&limitBytes, "bytes", 0, "data limit in bytes")
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the data limit")
	return cmd
}

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Inspect and rename the server",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show the server record",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withAdmin(func(ctx context.Context, a *app.Admin) error {
					raw, err := a.ServerInfo(ctx)
					if err != nil {
						return err
					}
					return printRaw(raw)
				})
			},
		},
		&cobra.Command{
			Use:   "rename <name>",
			Short: "Set the server's display name",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return withAdmin(func(ctx context.Context, a *app.Admin) error {
					return a.RenameServer(ctx, args[0])
				})
			},
		},
	)
	return cmd
}

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show per-key transferred bytes",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withAdmin(func(ctx context.Context, a *app.Admin) error {
				raw, err := a.Metrics(ctx)
				if err != nil {
					return err
				}
				return printRaw(raw)
			})
		},
	}
}

func addKeyParamFlags(cmd *cobra.Command, name, password, method *string, limitBytes *int64) {
	cmd.Flags().StringVar(name, "name", "", "key display name")
	cmd.Flags().StringVar(password, "password", "", "key password")
	cmd.Flags().StringVar(method, "method", "", "encryption method")
	cmd.Flags().Int64Var(limitBytes, "limit-bytes", 0, "data limit in bytes")
}

// keyParamsFromFlags maps only the flags the user actually set; unset flags
// stay absent from the request body.
func keyParamsFromFlags(cmd *cobra.Command, name, password, method string, limitBytes int64) outline.KeyParams {
	var params outline.KeyParams
	if cmd.Flags().Changed("name") {
		params.Name = outline.String(name)
	}
	if cmd.Flags().Changed("password") {
		params.Password = outline.String(password)
	}
	if cmd.Flags().Changed("method") {
		params.Method = outline.String(method)
	}
	if cmd.Flags().Changed("limit-bytes") {
		params.DataLimitBytes = outline.Int64(limitBytes)
	}
	return params
}

func printRaw(raw []byte) error {
	_, err := fmt.Fprintln(os.Stdout, string(raw))
	return err
}

func printJSON(v any) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return printRaw(out)
}
