package main

import (
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/internal/tui"
)

func newUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive queue editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fd := os.Stdout.Fd()
			if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
				return errors.New("contento ui needs an interactive terminal")
			}
			// The alternate screen owns the terminal; only the log file
			// receives records while the editor runs.
			cmd.SetErr(io.Discard)
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			return tui.Run(store, tui.WithLogger(logger))
		},
	}
}
