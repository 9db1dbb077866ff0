/**
 * @description
 * This is the main entry point for the hawala-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external API clients, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/ratesclient: Exchange-rate provider chain.
 * - pkg/smsclient: ClickSend SMS gateway client.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/api"
	"github.com/isasouthern/hawala-service/internal/app"
	"github.com/isasouthern/hawala-service/internal/config"
	"github.com/isasouthern/hawala-service/internal/store"
	"github.com/isasouthern/hawala-service/pkg/rabbitmq"
	"github.com/isasouthern/hawala-service/pkg/ratesclient"
	"github.com/isasouthern/hawala-service/pkg/smsclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting hawala-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish lifecycle events. A broker
	// outage degrades to a no-op publisher instead of blocking startup.
	var eventPublisher rabbitmq.Publisher
	rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventPublisher = &rabbitmq.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		eventPublisher = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the ClickSend SMS client. Missing credentials should not
	// prevent the service from booting; notifications will degrade.
	var smsSender app.SMSSender
	if strings.TrimSpace(cfg.ClickSendUsername) == "" || strings.TrimSpace(cfg.ClickSendAPIKey) == "" {
		log.Println("level=warn component=bootstrap msg=\"clicksend not configured; sms notifications disabled\"")
	} else {
		smsSender = smsclient.NewClient(cfg.ClickSendUsername, cfg.ClickSendAPIKey, cfg.ClickSendSender)
	}

	// Initialize the exchange-rate provider chain.
	rateChain := ratesclient.NewChain(cfg.OpenExchangeAppID, cfg.CurrencyLayerKey)

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; sms rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; sms rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; sms rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	service := app.NewService(
		repository,
		rateChain,
		smsSender,
		eventPublisher,
		cfg.TransactionEventExchange,
		cfg.LocalCurrency,
		decimal.NewFromFloat(cfg.FeePercent),
		decimal.NewFromFloat(cfg.FeeFlat),
		time.Duration(cfg.RateFreshnessMinutes)*time.Minute,
		cfg.RateHistoryKeep,
	)
	if redisClient != nil {
		service.SetSMSRateLimiter(app.NewRedisSMSRateLimiter(
			redisClient, cfg.RedisRateLimitPrefix, cfg.SMSRateLimitPerMinute, time.Minute,
		))
	}

	authService := app.NewAuthService(repository, cfg.JWTSecret)

	// Start the scheduled exchange-rate refresh.
	slogger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	scheduler := app.NewScheduler(service, slogger, cfg.RateRefreshSchedule)
	scheduler.Start()

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(service, authService)
	router := api.Routes(handlers, cfg.JWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	<-scheduler.Stop().Done()

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
