package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}
	cmd.AddCommand(newConfigCheckCommand(ctx))
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which commands the current configuration supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			source := cfg.Source
			if source == "" {
				source = "(none)"
			}
			writeLine(out, "Config file: %s", source)

			checks := []struct {
				name string
				err  error
			}{
				{"general", cfg.Validate()},
				{"sweep", cfg.ValidateSweep(false)},
				{"sweep --from-queue", cfg.ValidateSweep(true)},
				{"queue", cfg.ValidateQueue()},
			}
			rows := make([][]string, 0, len(checks))
			failed := false
			for _, c := range checks {
				status := "ok"
				if c.err != nil {
					status = c.err.Error()
					failed = true
				}
				rows = append(rows, []string{c.name, status})
			}
			rows = append(rows,
				[]string{"slack", enabledLabel(cfg.SlackEnabled())},
				[]string{"history", enabledLabel(cfg.HistoryEnabled())},
			)
			writeLine(out, "%s", renderTable([]string{"Check", "Status"}, rows, nil))
			if failed {
				return errors.New("configuration is incomplete")
			}
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateSample(path); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "Wrote sample configuration to %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.DefaultConfigFile, "Destination path")
	return cmd
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
