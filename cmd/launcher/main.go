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

	"github.com/pkg/browser"

	"github.com/Shinokawa/Web-annotation-tool/internal/config"
	"github.com/Shinokawa/Web-annotation-tool/internal/server"
	"github.com/Shinokawa/Web-annotation-tool/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewSugared(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, log.Desugar())
	if err != nil {
		log.Fatal("Failed to create server: ", err)
	}

	local, network := srv.URLs()
	fmt.Println("Lane annotation tool")
	fmt.Println("------------------------------")
	fmt.Printf("Server running at: %s\n", local)
	fmt.Printf("Network access: %s\n", network)
	fmt.Println("Press Ctrl+C to stop the server")
	fmt.Println()

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: ", err)
		}
	}()

	timer := time.AfterFunc(cfg.Launcher.BrowserDelay, func() {
		if err := browser.OpenURL(local); err != nil {
			log.Warnf("Failed to open browser: %v", err)
		}
	})
	defer timer.Stop()

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server stopped")
}
