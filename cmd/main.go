package main

import (
	"os"
	"os/signal"
	"syscall"

	"kairos/internal/bootstrap"
)

func main() {
	// Build the dependency container (fail-fast on any init error)
	c := bootstrap.NewContainer()
	c.MustInit()

	log := c.Log

	// Start workers, consumer, and HTTP server
	if err := c.Start(); err != nil {
		log.Errorf("Failed to start: %v", err)
		c.Shutdown()
		os.Exit(1)
	}

	// Wait for shutdown signal or a fatal component error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down...", sig)
	case <-c.Context.Done():
		log.Info("Component failure, shutting down...")
	}

	c.Shutdown()
}
