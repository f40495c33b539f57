package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/internal/database"
	"github.com/AndreasDit/Contento/internal/models"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent publish attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.HistoryEnabled() {
				return errors.New("publish history is disabled: set HISTORY_DSN")
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			repo, err := database.OpenHistory(cmd.Context(), cfg.History.DSN, logger)
			if err != nil {
				return fmt.Errorf("open publish history: %w", err)
			}
			defer repo.Close()

			attempts, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				writeLine(out, "No publish attempts recorded")
				return nil
			}
			rows := make([][]string, 0, len(attempts))
			for _, a := range attempts {
				rows = append(rows, []string{
					a.AttemptedAt.Local().Format(models.TimestampLayout),
					a.File,
					a.PostID,
					a.Outcome,
					a.Error,
				})
			}
			writeLine(out, "%s", renderTable([]string{"Attempted", "File", "ID", "Outcome", "Error"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", database.DefaultRecentLimit, "Number of attempts to show")
	return cmd
}
