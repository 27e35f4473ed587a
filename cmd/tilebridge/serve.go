package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olablt/tilebridge/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for layer snapshots",
	Long: `Start an HTTP server that renders the configured layer for any host view.

Endpoints:
  GET /health
  GET /api/v1/snapshot.png?lon=&lat=&zoom=
  GET /api/v1/extent?lon=&lat=&zoom=

Examples:
  tilebridge serve
  tilebridge serve --bind 0.0.0.0 --port 3000 --config ortho.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")

	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	addr := cfg.Addr()
	// a snapshot may wait the full request timeout for tiles before encoding
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewServer(version, r).Handler(cfg.Server.Timeout),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: 2 * cfg.Server.Timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting tilebridge server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot endpoint: http://%s/api/v1/snapshot.png\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}
	return nil
}
