package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/alacarte/internal/config"
	"github.com/MeKo-Tech/alacarte/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tile server",
	Long:  "serve loads every stylesheet, preloads geodata, and starts serving tiles over HTTP until interrupted.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("metrics-addr", ":9090", "Prometheus /metrics listen address (empty disables it)")
	serveCmd.Flags().Int("num-threads", 4, "Number of render worker goroutines")
	serveCmd.Flags().Int("max-queue-size", 128, "Maximum number of queued user requests before returning 503")
	serveCmd.Flags().Int("prerender-level", 0, "Recursive prerender depth below zoom 0")
	serveCmd.Flags().Bool("strict-style", false, "Return 404 for an unknown style instead of substituting the fallback stylesheet")

	for _, name := range []string{"addr", "metrics-addr", "num-threads", "max-queue-size", "prerender-level", "strict-style"} {
		if err := viper.BindPFlag(name, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %q: %v", name, err))
		}
	}

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromViper(viper.GetViper())

	ctx, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer ctx.Close()

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: ctx.Mux()}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("tile server listening", "addr", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("tile server: %w", err)
		}
	}()

	var metricsSrv *http.Server
	if h := ctx.MetricsHandler(); h != nil {
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: h}
		go func() {
			logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}
