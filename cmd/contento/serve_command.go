package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndreasDit/Contento/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the queue over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = cfg.API.Addr
			}
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
			}
			return api.Serve(cmd.Context(), ln, api.NewRouter(store, logger), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default API_ADDR)")
	return cmd
}
