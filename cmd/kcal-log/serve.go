// cmd/kcal-log/serve.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcp-kcal-log/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the kcal log tools over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The server's loop runs the start-up rollover check.
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("host") {
			a.cfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			a.cfg.Port = servePort
		}
		cfg := &server.Config{
			Addr:             a.cfg.Addr(),
			RolloverInterval: a.cfg.RolloverInterval,
		}

		srv := server.NewKcalLogServer(cfg, a.tracker)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(ctx)
		}()

		var serveErr error
		select {
		case <-sigCh:
			log.Println("Received shutdown signal")
		case serveErr = <-errCh:
			if serveErr != nil {
				log.Printf("Server error: %v", serveErr)
			}
		}

		log.Println("Shutting down...")
		cancel()
		if err := srv.Stop(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		return serveErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host address (overrides KCAL_HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 8011, "Port for HTTP transport (overrides KCAL_PORT)")
}
