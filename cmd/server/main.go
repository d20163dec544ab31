package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coscribe/coscribe/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "coscribe-server",
		Short: "Real-time collaborative text synchronization server",
		Long: `Coscribe keeps one shared document in sync across every connected
WebSocket client. Edits are whole-document replacements applied
last-write-wins and broadcast to all subscribers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.Flags().String("port", "", "listen address (e.g. :8080); overrides SERVER_PORT")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	config := server.NewConfigFromEnv()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		config.Port = port
	}
	server.SetConfig(config)

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	server.GetHub().Close()
	return server.ShutdownServer(httpServer, shutdownTimeout)
}
