package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/nb-spam-filter/internal/adapters/cache"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/di"
	"github.com/mikey/nb-spam-filter/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if err := container.Invoke(func(l *zap.Logger) { logger = l }); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", dig.RootCause(err))
		os.Exit(1)
	}

	// Run the application; a missing model aborts startup here
	if err := container.Invoke(run); err != nil {
		msg, code := failure(err)
		logger.Error(msg, zap.Error(dig.RootCause(err)))
		logger.Sync()
		os.Exit(code)
	}
}

// Exit codes
const (
	exitError          = 1
	exitModelNotLoaded = 3
)

// failure picks the log message and exit code for a startup error
func failure(err error) (string, int) {
	if errors.Is(dig.RootCause(err), core.ErrModelNotLoaded) {
		return "Failed to load model", exitModelNotLoaded
	}
	return "Application error", exitError
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	service *core.SpamFilterService,
	cacheRepo cache.Repository,
) error {
	defer logger.Sync()

	logger.Info("Model loaded", zap.String("version", service.ClassifierVersion()))

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		logger.Fatal("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the filter
	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	// Stop the cache if needed
	if cacheRepo != nil {
		cacheRepo.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
