// Command server runs the security-event receiver: a webhook that verifies
// signed provider notifications and applies them to the account store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"riscguard/internal/account"
	"riscguard/internal/audit"
	"riscguard/internal/platform/config"
	"riscguard/internal/platform/httpserver"
	"riscguard/internal/platform/logger"
	platformredis "riscguard/internal/platform/redis"
	"riscguard/internal/risc"
	rischandler "riscguard/internal/risc/handler"
	"riscguard/internal/risc/keycache"
	riscmetrics "riscguard/internal/risc/metrics"
	httptransport "riscguard/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if cfg.Provider.Audience == "" {
		log.Error("RISC_EXPECTED_AUDIENCE must be set to this service's OAuth client ID")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := riscmetrics.New()

	// Account store: Redis when configured, in-memory otherwise.
	var accounts account.Repository
	var health httptransport.HealthCheck
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		accounts = account.NewRedisStore(redisClient.Client)
		health = redisClient.Health
		log.Info("using redis account store")
	} else {
		accounts = account.NewInMemory()
		log.Warn("redis not configured, using in-memory account store")
	}

	// Audit trail: Kafka when configured, bounded in-memory otherwise.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaSink.Close(closeCtx); err != nil {
				log.Error("kafka close failed", "error", err)
			}
		}()
		sink = kafkaSink
		log.Info("audit trail publishing to kafka", "topic", cfg.Kafka.Topic)
	} else {
		sink = audit.NewInMemory(4096)
		log.Warn("kafka not configured, audit trail is in-memory only")
	}
	publisher := audit.NewPublisher(sink, 256, log)
	go publisher.Run(ctx)

	cache := keycache.New(cfg.Provider.JWKSURL, cfg.Provider.KeyCacheTTL, cfg.Provider.FetchTimeout, log, m)
	verifier := risc.NewVerifier(cache, cfg.Provider.Issuer, cfg.Provider.Audience, cfg.Provider.ClockSkew, log, m)
	dispatcher := risc.NewDispatcher(accounts, publisher, log, m)
	service := risc.NewService(verifier, dispatcher, log, m)

	webhook := rischandler.New(service, log, cfg.MaxBodyBytes)
	router := httptransport.NewRouter(webhook, health)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting riscguard",
			"addr", cfg.Addr,
			"issuer", cfg.Provider.Issuer,
			"jwks_url", cfg.Provider.JWKSURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
