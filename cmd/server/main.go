package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"delivery-tracking-service/internal/adapters/location"
	"delivery-tracking-service/internal/adapters/reporter"
	"delivery-tracking-service/internal/adapters/repositories"
	"delivery-tracking-service/internal/adapters/routing"
	"delivery-tracking-service/internal/api"
	"delivery-tracking-service/internal/config"
	"delivery-tracking-service/internal/platform/db"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/internal/tracking"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, routing API, Redis) behind ports and
// starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfgPath := getEnv("CONFIG_PATH", "config.yml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}
	routingKey := os.Getenv("ROUTING_API_KEY")
	if strings.TrimSpace(routingKey) == "" {
		log.Fatal("ROUTING_API_KEY is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	repo := repositories.NewPostgresDeliveryRepository(conn)

	optimizer, err := routing.NewClient(cfg.Routing.BaseURL, routingKey, cfg.RoutingTimeout())
	if err != nil {
		log.Fatal(err)
	}

	// Live-position reporting is optional; with no Redis address the
	// sessions simply keep their state in memory.
	var positions ports.PositionReporter
	redisAddr := getEnv("REDIS_ADDR", cfg.Redis.Addr)
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		positions, err = reporter.NewRedisReporter(client, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		if err != nil {
			log.Fatal(err)
		}
	}

	manager := services.NewSessionManager(
		repo,
		optimizer,
		positions,
		func() ports.PushableSource { return location.NewPushSource() },
		tracking.Config{
			OffRouteThresholdMeters: cfg.Tracking.OffRouteThresholdMeters,
			Debounce:                cfg.Debounce(),
			RequestTimeout:          cfg.RoutingTimeout(),
			Subscription: ports.SubscriptionOptions{
				MinInterval:           cfg.SampleInterval(),
				MinDisplacementMeters: cfg.Tracking.MinDisplacementMeters,
			},
		},
	)
	defer manager.Close()

	router := api.NewRouter(manager)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
