package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "listen port (overrides PORT)")
	storePath := flag.String("store", "", "settings database path (overrides STORE_PATH)")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	// Single-instance convention: if another instance already listens here,
	// ask it to surface itself and exit instead of fighting over the port.
	if pingExisting(cfg) {
		logger.Info("another instance is running, deferring to it")
		return
	}

	srv, err := server.New(cfg, nil, logger)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("server error: %v", err)
	}
}

// pingExisting probes the configured address for a live instance and, when
// one answers, tells it to refocus its primary window.
func pingExisting(cfg *config.Config) bool {
	base := fmt.Sprintf("http://%s:%s", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 500 * time.Millisecond}

	resp, err := client.Get(base + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	if resp, err := client.Post(base+"/focus", "application/json", nil); err == nil {
		resp.Body.Close()
	}
	return true
}
