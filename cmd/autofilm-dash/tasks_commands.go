package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/autofilm-dash/internal/api"
	"github.com/rickgao/autofilm-dash/internal/dashboard"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and control server tasks",
	}

	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksShowCommand(ctx))
	tasksCmd.AddCommand(newTasksTriggerCommand(ctx))
	tasksCmd.AddCommand(newTasksStopCommand(ctx))
	tasksCmd.AddCommand(newTasksLogsCommand(ctx))

	return tasksCmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				tasks, err := client.ListTasks(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tasks)
				}
				if len(tasks) == 0 {
					printMessage(cmd, "No tasks configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), dashboard.RenderTaskTable(tasks))
				return nil
			})
		},
	}
}

func newTasksShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				task, err := client.GetTask(cmd.Context(), args[0])
				if err != nil {
					if api.IsNotFound(err) {
						return fmt.Errorf("task %s not found", args[0])
					}
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, task)
				}

				fields := map[string]any{
					"id":       task.ID,
					"name":     task.Name,
					"type":     task.Type,
					"status":   task.Status,
					"progress": fmt.Sprintf("%.0f%%", task.Progress),
					"message":  task.Message,
				}
				if task.LastRun != nil {
					fields["last_run"] = formatTime(*task.LastRun)
				}
				if task.NextRun != nil {
					fields["next_run"] = formatTime(*task.NextRun)
				}
				for k, v := range task.Config {
					fields["config."+k] = v
				}
				printFields(cmd, fields)
				return nil
			})
		},
	}
}

func newTasksTriggerCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "trigger <task-id>",
		Short: "Run a task now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.TriggerTask(cmd.Context(), args[0], force)
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
	cmd.Flags().BoolVar(&force, "force", false, "Cancel a running instance first")
	return cmd
}

func newTasksStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <task-id>",
		Short: "Stop a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.StopTask(cmd.Context(), args[0])
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

func newTasksLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs <task-id>",
		Short: "Show the log tail of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				logs, err := client.TaskLogs(cmd.Context(), args[0], lines)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, logs)
				}
				for _, line := range logs.Logs {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of lines")
	return cmd
}
