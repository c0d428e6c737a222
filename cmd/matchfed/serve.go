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

	"github.com/gin-gonic/gin"
	"github.com/pevans/matchfed/api"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index and match details as a JSON API",
		Long: `Start an HTTP server exposing:

  GET /api/v1/index
  GET /api/v1/details?url=<link>[&title=<title>]
  GET /api/v1/assets/<position>
  GET /api/v1/history[?kind=<kind>&limit=<n>]`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringP("listen", "l", "", "Address to listen on (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Listen
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		addr = listen
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewAPIServer(a.cfg.IndexURL, a.indexer, a.extractor, a.verdicts, a.assets, a.logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", a.cfg.IndexURL, addr)

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
