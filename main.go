package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	auction "auction-service/internal/auctionService"
	bidding "auction-service/internal/biddingService"
	finalize "auction-service/internal/finalizeService"
	"auction-service/internal/repository"
	"auction-service/internal/scheduler"
	"auction-service/internal/server"
	"auction-service/utils"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		utils.Warn("no .env file loaded, relying on environment", map[string]any{"error": err.Error()})
	}

	store, err := newStore()
	if err != nil {
		utils.Fatal("failed to initialize auction store", map[string]any{"error": err.Error()})
	}

	auctionSvc := auction.NewAuctionService(store)
	biddingSvc := bidding.NewBiddingService(store)
	finalizeSvc := finalize.NewFinalizeService(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	autoClose := scheduler.NewScheduler(store, finalizeSvc, sweepInterval())
	go autoClose.Start(ctx)

	router := server.SetupRouter(auctionSvc, biddingSvc, finalizeSvc)

	port := getPort()
	utils.Info("starting auction server", map[string]any{"port": port})
	if err := router.Run(port); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

// newStore selects the auction store from the environment. An empty
// POSTGRES_CONN falls back to the in-memory store.
func newStore() (repository.AuctionStore, error) {
	connStr := os.Getenv("POSTGRES_CONN")
	if connStr == "" {
		utils.Info("POSTGRES_CONN not set, using in-memory store", nil)
		return repository.NewMemoryStore(), nil
	}
	return repository.NewPostgresStore(connStr)
}

// sweepInterval returns the auto-close cadence from env or the default
func sweepInterval() time.Duration {
	if v := os.Getenv("AUTOCLOSE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		utils.Warn("invalid AUTOCLOSE_INTERVAL, using default", map[string]any{"value": v})
	}
	return scheduler.DefaultInterval
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}
