package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"line-work-assistant/internal/bootstrap"
	"line-work-assistant/internal/config"
	"line-work-assistant/internal/server"
	"line-work-assistant/internal/tracer"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer("line-work-assistant")

	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Line.ChannelSecret == "" || cfg.Line.ChannelAccessToken == "" {
		log.Println("[WARN] LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN is not set")
	}

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	if err := container.ConsumerService.Consume(context.Background()); err != nil {
		log.Fatalf("[FATAL] Failed to start audio workers: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := container.ConsumerService.Shutdown(ctx); err != nil {
		log.Printf("Consumer shutdown error: %v", err)
	}
	container.Close()
	if err := shutdownTracer(ctx); err != nil {
		log.Printf("Tracer shutdown error: %v", err)
	}
}
