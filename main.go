package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-sync/internal/api"
	"chat-sync/internal/auth"
	"chat-sync/internal/db"
	"chat-sync/internal/handlers"
	"chat-sync/internal/middleware"
	"chat-sync/internal/observability"
	"chat-sync/internal/rabbitmq"
	"chat-sync/internal/repositories"
	"chat-sync/internal/session"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

const serviceName = "chat-sync"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "chat-sync.events"))
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.actions", serviceName, getEnv("APP_ENV", "development"))

	tokens, closeTokens := tokenSource()
	defer closeTokens()

	st := store.New()
	backend := api.NewClient(getEnv("API_BASE_URL", "http://localhost:8000/api/v1/"), tokens, nil)
	supervisor := ws.NewSupervisor(ws.Config{
		BaseURL:              getEnv("WS_BASE_URL", "ws://localhost:8001"),
		Tokens:               tokens,
		Errors:               st,
		MaxReconnectAttempts: uint64(max(0, getEnvInt("WS_MAX_RECONNECT_ATTEMPTS", 0))),
		PingInterval:         getEnvDuration("WS_PING_INTERVAL", ws.DefaultPingInterval),
	})
	defer supervisor.Close()

	sess := session.New(session.Config{Backend: backend, Supervisor: supervisor, Store: st, Audit: audit})
	if err := sess.Start(ctx); err != nil {
		log.Printf("session start: %v", err)
	}
	defer sess.Close()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.RequestID())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	apiGroup := router.Group("/api", middleware.AuthMiddleware(getEnv("LOCAL_API_KEY", "")))
	handlers.NewChatHandler(sess).Register(apiGroup)
	handlers.NewNotificationHandler(sess).Register(apiGroup)
	handlers.NewStatusHandler(sess).Register(apiGroup)

	if dsn := db.DSN(); dsn != "" {
		database, err := db.Connect(dsn)
		if err != nil {
			log.Fatalf("failed to connect to archive db: %v", err)
		}
		defer database.Close()

		messageRepo := repositories.NewMessageRepo(database)
		notificationRepo := repositories.NewNotificationRepo(database)
		go repositories.NewArchiver(messageRepo, notificationRepo, st).Run(ctx)
		handlers.NewArchiveHandler(messageRepo, notificationRepo).Register(apiGroup)
	} else {
		log.Printf("archive disabled: ARCHIVE_DB_DSN not set")
	}

	srv := &http.Server{Addr: ":" + getEnv("PORT", "8090"), Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("local api listening addr=%s", srv.Addr)

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// tokenSource prefers a token shared through Redis, falling back to CHAT_TOKEN.
func tokenSource() (auth.TokenSource, func()) {
	addr := getEnv("REDIS_ADDR", "")
	if addr == "" {
		return auth.StaticToken(getEnv("CHAT_TOKEN", "")), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: getEnv("REDIS_PASSWORD", "")})
	log.Printf("token source: redis addr=%s session=%s", addr, getEnv("SESSION_ID", "default"))
	return auth.NewRedisTokenSource(rdb, getEnv("SESSION_ID", "default")), func() { _ = rdb.Close() }
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}
