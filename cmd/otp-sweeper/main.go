package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediconnect/booking-service/internal/auth"
	"github.com/mediconnect/booking-service/internal/config"
	"github.com/mediconnect/booking-service/internal/kvstore"
	"github.com/mediconnect/booking-service/internal/record"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("otp-sweeper starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running otp sweeper in env=%s interval=%s", cfg.Env, cfg.SweepInterval)

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

	repo := record.New(kvstore.NewRedis(rdb, cfg.KeyPrefix))
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	otp := auth.NewOTPManager(repo, locker, cfg.OTPTTL, cfg.OTPResendCooldown, cfg.OTPMaxAttempts)

	// Run once at startup
	runOnce(rootCtx, otp)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping otp sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, otp)
		}
	}
}

func runOnce(ctx context.Context, otp *auth.OTPManager) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	removed, err := otp.SweepExpired(runCtx)
	if err != nil {
		log.Printf("sweep run error: %v", err)
		return
	}
	log.Printf("sweep complete: removed=%d in %s", removed, time.Since(start))
}
