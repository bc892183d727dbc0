package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rickgao/autofilm-dash/internal/api"
	"github.com/rickgao/autofilm-dash/internal/model"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the server's task configuration",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigApplyCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigBackupsCommand(ctx))
	configCmd.AddCommand(newConfigRestoreCommand(ctx))
	configCmd.AddCommand(newConfigDeleteBackupCommand(ctx))
	configCmd.AddCommand(newConfigTemplateCommand(ctx))
	configCmd.AddCommand(newConfigLocalCommand(ctx))

	return configCmd
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				doc, err := client.GetConfig(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "# %s (modified %s)\n", doc.FilePath, formatTime(doc.LastModified))
				return writeYAML(cmd, doc.Config)
			})
		},
	}
}

func newConfigApplyCommand(ctx *commandContext) *cobra.Command {
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Replace the server configuration with a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var doc map[string]any
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if len(doc) == 0 {
				return fmt.Errorf("%s is empty", args[0])
			}

			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.UpdateConfig(cmd.Context(), model.ConfigUpdate{Config: doc, Backup: !noBackup})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				printMessage(cmd, resp.Message)
				if resp.BackupCreated {
					printMessage(cmd, "previous configuration backed up")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not back up the current configuration")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the server-side configuration check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				result, err := client.ValidateConfig(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				for _, w := range result.Warnings {
					printMessage(cmd, "warning: "+w)
				}
				for _, e := range result.Errors {
					printMessage(cmd, "error: "+e)
				}
				if !result.Valid {
					return fmt.Errorf("configuration is invalid (%d errors)", len(result.Errors))
				}
				printMessage(cmd, "configuration is valid")
				return nil
			})
		},
	}
}

func newConfigBackupsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List configuration backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				backups, err := client.ConfigBackups(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, backups)
				}
				if len(backups) == 0 {
					printMessage(cmd, "No backups")
					return nil
				}
				rows := make([][]string, 0, len(backups))
				for _, b := range backups {
					rows = append(rows, []string{b.Filename, formatTime(b.Timestamp), formatSize(b.Size)})
				}
				printTable(cmd, []string{"File", "Created", "Size"}, rows, nil)
				return nil
			})
		},
	}
}

func newConfigRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore the configuration from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.RestoreConfig(cmd.Context(), args[0])
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

func newConfigDeleteBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-backup <backup>",
		Short: "Delete a configuration backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				resp, err := client.DeleteConfigBackup(cmd.Context(), args[0])
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

func newConfigTemplateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print an example server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *api.Client) error {
				tmpl, err := client.ConfigTemplate(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tmpl)
				}
				return writeYAML(cmd, tmpl)
			})
		},
	}
}

func newConfigLocalCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "local",
		Short: "Print the effective dashboard configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.Server.APIKey != "" {
				redacted.Server.APIKey = "********"
			}
			if redacted.History.Database.Password != "" {
				redacted.History.Database.Password = "********"
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, redacted)
			}
			return writeYAML(cmd, redacted)
		},
	}
}
