package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/autofilm-dash/internal/api"
	"github.com/rickgao/autofilm-dash/internal/dashboard"
	"github.com/rickgao/autofilm-dash/internal/model"
	"github.com/rickgao/autofilm-dash/internal/poller"
)

func newSystemCommand(ctx *commandContext) *cobra.Command {
	systemCmd := &cobra.Command{
		Use:   "system",
		Short: "Inspect the server host and process",
	}

	systemCmd.AddCommand(newFetchCommand(ctx, "info", "Show host and process overview", (*api.Client).SystemInfo, renderSystemInfo))
	systemCmd.AddCommand(newFetchCommand(ctx, "health", "Show component health", (*api.Client).Health, renderHealth))
	systemCmd.AddCommand(newFetchCommand(ctx, "stats", "Show file and process counters", (*api.Client).Stats, renderStats))
	systemCmd.AddCommand(newFetchCommand(ctx, "version", "Show the server build", (*api.Client).Version, renderVersion))
	systemCmd.AddCommand(newFetchCommand(ctx, "env", "Show the server environment", (*api.Client).Environment, renderEnvironment))
	systemCmd.AddCommand(newSystemRestartCommand(ctx))

	return systemCmd
}

// newFetchCommand builds a command that fetches one resource and prints it
// as JSON or through render.
func newFetchCommand[T any](
	ctx *commandContext,
	use, short string,
	fetch func(*api.Client, context.Context) (T, error),
	render func(*cobra.Command, T),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				v, err := fetch(client, cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, v)
				}
				render(cmd, v)
				return nil
			})
		},
	}
}

func renderSystemInfo(cmd *cobra.Command, info *model.SystemInfo) {
	fields := map[string]any{
		"platform":         info.Platform,
		"python_version":   info.PythonVersion,
		"autofilm_version": info.AutofilmVersion,
		"uptime":           info.Uptime,
		"cpu_percent":      info.CPUPercent,
	}
	for k, v := range info.MemoryUsage {
		fields["memory."+k] = v
	}
	for k, v := range info.DiskUsage {
		fields["disk."+k] = v
	}
	for k, v := range info.NetworkIO {
		fields["network."+k] = v
	}
	printFields(cmd, fields)
}

func renderHealth(cmd *cobra.Command, health *model.HealthStatus) {
	printMessage(cmd, dashboard.FormatSnapshot(poller.Snapshot{Health: health}))
	if health.Uptime != "" {
		printMessage(cmd, "uptime "+health.Uptime)
	}
}

func renderStats(cmd *cobra.Command, stats *model.SystemStats) {
	printFields(cmd, stats.Stats)
}

func renderVersion(cmd *cobra.Command, v *model.VersionInfo) {
	printFields(cmd, map[string]any{
		"autofilm_version": v.AutofilmVersion,
		"python_version":   v.PythonVersion,
		"platform":         v.Platform,
		"architecture":     strings.Join(v.Architecture, " "),
		"machine":          v.Machine,
		"processor":        v.Processor,
	})
}

func renderEnvironment(cmd *cobra.Command, env *model.Environment) {
	printFields(cmd, env.Environment)
}

func newSystemRestartCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Ask the server to restart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("restart requires --yes")
			}
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.Restart(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				printMessage(cmd, resp.Message)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the restart")
	return cmd
}
