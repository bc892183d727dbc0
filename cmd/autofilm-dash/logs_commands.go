package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/autofilm-dash/internal/api"
	"github.com/rickgao/autofilm-dash/internal/dashboard"
	"github.com/rickgao/autofilm-dash/internal/model"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Read and manage server logs",
	}

	logsCmd.AddCommand(newLogsQueryCommand(ctx))
	logsCmd.AddCommand(newLogsFollowCommand(ctx))
	logsCmd.AddCommand(newLogsLevelsCommand(ctx))
	logsCmd.AddCommand(newLogsFilesCommand(ctx))
	logsCmd.AddCommand(newLogsClearCommand(ctx))
	logsCmd.AddCommand(newLogsDeleteCommand(ctx))

	return logsCmd
}

func newLogsQueryCommand(ctx *commandContext) *cobra.Command {
	var query model.LogQuery
	var file string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print recent log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				var (
					page *model.LogPage
					err  error
				)
				if file != "" {
					page, err = client.ReadLogFile(cmd.Context(), file, query)
				} else {
					page, err = client.QueryLogs(cmd.Context(), query)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, page)
				}
				if page.Message != "" && len(page.Logs) == 0 {
					printMessage(cmd, page.Message)
					return nil
				}
				for _, entry := range page.Logs {
					fmt.Fprintln(cmd.OutOrStdout(), dashboard.FormatLogEntry(entry))
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d lines\n", page.FilteredLines, page.TotalLines)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&query.Lines, "lines", "n", 100, "Number of entries")
	cmd.Flags().StringVar(&query.Level, "level", "", "Only entries at this level")
	cmd.Flags().StringVar(&query.Keyword, "keyword", "", "Only entries containing this text")
	cmd.Flags().StringVar(&file, "file", "", "Read a rotated log file instead of the current one")
	return cmd
}

func newLogsFollowCommand(ctx *commandContext) *cobra.Command {
	var filter dashboard.LogFilter

	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Stream new log entries as they are written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd.ErrOrStderr())

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The log stream is a second channel with no heartbeat
			mgr, err := ctx.newManager(cfg.LogStream.Path, false, logger)
			if err != nil {
				return err
			}

			view := dashboard.NewLogView(cmd.OutOrStdout(), filter)
			view.Attach(mgr)
			dashboard.NewStatusIndicator(cmd.ErrOrStderr()).Attach(mgr)
			down := exhaustion(mgr)

			if err := mgr.Start(sigCtx); err != nil {
				return err
			}
			err = waitChannel(sigCtx, down)
			stopAll(logger, mgr.Stop)
			return err
		},
	}
	cmd.Flags().StringVar(&filter.Level, "level", "", "Only entries at this level")
	cmd.Flags().StringVar(&filter.Keyword, "keyword", "", "Only entries containing this text")
	return cmd
}

func newLogsLevelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the log levels the server filters on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				levels, err := client.LogLevels(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, levels)
				}
				printMessage(cmd, strings.Join(levels.Levels, " "))
				return nil
			})
		},
	}
}

func newLogsFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List log files on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				files, err := client.LogFiles(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, files)
				}
				if len(files.Files) == 0 {
					printMessage(cmd, "No log files")
					return nil
				}

				rows := make([][]string, 0, len(files.Files))
				for _, f := range files.Files {
					current := ""
					if f.IsCurrent {
						current = "*"
					}
					rows = append(rows, []string{f.Name, formatSize(f.Size), formatTime(f.Modified), current})
				}
				printTable(cmd,
					[]string{"Name", "Size", "Modified", "Current"},
					rows,
					[]dashboard.Alignment{dashboard.AlignLeft, dashboard.AlignRight, dashboard.AlignLeft, dashboard.AlignLeft},
				)
				return nil
			})
		},
	}
}

func newLogsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Back up and truncate the current log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.ClearLog(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if resp.BackupFile != "" {
					printMessage(cmd, fmt.Sprintf("%s (backup: %s)", resp.Message, resp.BackupFile))
				} else {
					printMessage(cmd, resp.Message)
				}
				return nil
			})
		},
	}
}

func newLogsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file>",
		Short: "Delete a rotated log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.DeleteLogFile(cmd.Context(), args[0])
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
}
