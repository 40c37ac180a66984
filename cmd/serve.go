package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/page"
	"github.com/cardforge/cardforge/internal/pool"
	"github.com/cardforge/cardforge/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the CardForge web server.
The server accepts render requests over a JSON API, streams progress
events over SSE, and serves the finished page images.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to CARDFORGE_LISTEN_ADDR or :8080)")
	serveCmd.Flags().Bool("gpu", false, "Run the flood fill on the GPU when available")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx := context.Background()

	registry := pool.NewRegistry()
	renderer, store, err := newWorkerStack(ctx, cfg, mustGetBool(cmd, "gpu") || cfg.Render.GPU, registry)
	if err != nil {
		return err
	}

	comp := page.NewCompositor(renderer)
	server := web.NewServer(cfg, comp)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}

		registry.DestroyAll()
		if err := store.Close(); err != nil {
			fmt.Printf("Error closing cache store: %v\n", err)
		}
	}()

	fmt.Printf("Starting CardForge on http://%s\n", listenHost(cfg.Server.Addr))
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// listenHost makes a bare ":8080" address printable as "localhost:8080".
func listenHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
