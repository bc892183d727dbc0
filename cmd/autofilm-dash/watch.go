package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/autofilm-dash/internal/api"
	"github.com/rickgao/autofilm-dash/internal/dashboard"
	"github.com/rickgao/autofilm-dash/internal/database"
	"github.com/rickgao/autofilm-dash/internal/history"
	"github.com/rickgao/autofilm-dash/internal/poller"
)

type watchOptions struct {
	refresh   time.Duration
	noHistory bool
	noPoll    bool
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow task status changes in real time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.refresh, "refresh", 0, "Reprint the task board at this interval (0 disables)")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record status changes even if history is enabled")
	cmd.Flags().BoolVar(&opts.noPoll, "no-poll", false, "Do not poll server health")
	return cmd
}

func runWatch(cmd *cobra.Command, ctx *commandContext, opts watchOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.logger(cmd.ErrOrStderr())

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ctx.withClient(cmd, func(client *api.Client) error {
		out := cmd.OutOrStdout()
		board := dashboard.NewTaskBoard(out)
		indicator := dashboard.NewStatusIndicator(out)

		tasks, err := client.ListTasks(sigCtx)
		if err != nil {
			logger.Warn("initial task list failed", "error", err)
		} else {
			board.Seed(tasks)
			board.Print()
		}

		mgr, err := ctx.newManager(cfg.Channel.Path, true, logger)
		if err != nil {
			return err
		}
		board.Attach(mgr)
		indicator.Attach(mgr)
		down := exhaustion(mgr)

		var stops []func(context.Context) error

		if cfg.History.Enabled && !opts.noHistory {
			pool, err := database.Connect(sigCtx, cfg.History.Database)
			if err != nil {
				return fmt.Errorf("connect history database: %w", err)
			}
			defer pool.Close()

			if err := database.EnsureSchema(sigCtx, pool); err != nil {
				return err
			}

			recorder := history.NewRecorder(history.Config{
				BatchSize:     cfg.History.BatchSize,
				FlushInterval: cfg.History.FlushInterval,
				BufferSize:    cfg.History.BufferSize,
			}, pool, logger)
			recorder.Attach(mgr)
			if err := recorder.Start(sigCtx); err != nil {
				return err
			}
			stops = append(stops, recorder.Stop)
		}

		if !opts.noPoll {
			p := poller.New(poller.Config{
				Interval: cfg.Poller.Interval,
				Timeout:  cfg.Poller.Timeout,
			}, client, indicator, logger)
			if err := p.Start(sigCtx); err != nil {
				return err
			}
			stops = append([]func(context.Context) error{p.Stop}, stops...)
		}

		if err := mgr.Start(sigCtx); err != nil {
			return err
		}
		// Manager first so no update reaches a stopped recorder
		stops = append([]func(context.Context) error{mgr.Stop}, stops...)

		g, gctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			return waitChannel(gctx, down)
		})
		if opts.refresh > 0 {
			g.Go(func() error {
				ticker := time.NewTicker(opts.refresh)
				defer ticker.Stop()
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-ticker.C:
						board.Print()
					}
				}
			})
		}

		err = g.Wait()
		stopAll(logger, stops...)
		return err
	})
}
