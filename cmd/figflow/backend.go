package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/figflow/internal/echoapi"
	"github.com/spf13/cobra"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run the reference transformation service",
	Long: `Serves /, /api/test, /api/process and /api/upload. Both API endpoints echo the
submitted code back, which is enough to exercise the whole round trip locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Backend.Addr = addr
		}

		srv := &http.Server{
			Addr:    cfg.Backend.Addr,
			Handler: echoapi.NewHandler(echoapi.WithLogger(logger)),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting reference backend", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
			logger.Info("Reference backend stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(backendCmd)
	backendCmd.Flags().String("addr", "", "Address to listen on (overrides backend.addr)")
}
