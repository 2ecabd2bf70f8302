package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/fakeapi"
	"docwise-client/internal/shared/config"
	"docwise-client/internal/shared/server"
	"docwise-client/internal/shared/server/middleware"
	"docwise-client/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	api := fakeapi.NewServer(fakeapi.Options{AdminEmail: cfg.AdminEmail})
	if email, password := os.Getenv("SEED_EMAIL"), os.Getenv("SEED_PASSWORD"); email != "" && password != "" {
		userID := api.SeedUser(email, password, "Dev User")
		api.SeedPrompt(userID, "Summary", "Summarize the key points of this document.")
		log.Printf("Seeded %s", email)
	}

	r := fakeapi.NewRouter(api, fakeapi.RouterOptions{
		CORSOrigins:   cfg.CORSAllowOrigin,
		AuthRateLimit: middleware.RateLimitRule{Rate: 1, Burst: 10},
		ExposeMetrics: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting dev API server on %s", addr)
	if err := server.Run(ctx, addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
