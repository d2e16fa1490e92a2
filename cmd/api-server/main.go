package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/booking-service/internal/api"
	"github.com/mediconnect/booking-service/internal/auth"
	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/config"
	"github.com/mediconnect/booking-service/internal/db"
	"github.com/mediconnect/booking-service/internal/eventlog"
	"github.com/mediconnect/booking-service/internal/kvstore"
	"github.com/mediconnect/booking-service/internal/record"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var pgPool *pgxpool.Pool
	var events eventlog.Recorder = eventlog.Nop{}
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()

		recorder := eventlog.NewPgRecorder(pgPool)
		if err := recorder.EnsureSchema(rootCtx); err != nil {
			log.Fatalf("event log schema error: %v", err)
		}
		events = recorder
		log.Println("connected to Postgres, event log enabled")
	} else {
		log.Println("no POSTGRES_DSN set, event log disabled")
	}

	store := kvstore.NewRedis(rdb, cfg.KeyPrefix)
	repo := record.New(store)

	migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
	err = repo.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		log.Fatalf("store migration error: %v", err)
	}

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	otp := auth.NewOTPManager(repo, locker, cfg.OTPTTL, cfg.OTPResendCooldown, cfg.OTPMaxAttempts)

	authSvc := auth.NewService(repo, otp, tokens, locker, events)
	clinicSvc := clinic.NewService(repo, locker, events)

	router := api.NewRouter(api.RouterConfig{
		Auth:    authSvc,
		Clinic:  clinicSvc,
		Tokens:  tokens,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}
