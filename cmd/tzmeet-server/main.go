// Package main implements the tzmeet HTTP API for meeting planning.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/codeGROOVE-dev/tzmeet/pkg/config"
	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
)

var (
	port       = flag.String("port", "", "Port for web server (or set PORT)")
	configPath = flag.String("config", "", "Config file (or set TZMEET_CONFIG)")
	mapsAPIKey = flag.String("maps-key", "", "Google Maps API key (or set GOOGLE_MAPS_API_KEY)")
	redisAddr  = flag.String("redis", "", "Redis address for the holiday store and rate limits (or set REDIS_ADDR)")
	offline    = flag.Bool("offline", false, "Use only bundled holiday calendars")
	trustProxy = flag.Bool("trust-proxy", false, "Key rate limits on X-Forwarded-For (or set TRUST_PROXY)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("tzmeet Server v0.3.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	path := *configPath
	if path == "" {
		path = os.Getenv("TZMEET_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("Failed to load config", "error", err, "path", path)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if *port != "" {
		if n, err := strconv.Atoi(*port); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if *mapsAPIKey != "" {
		cfg.MapsAPIKey = *mapsAPIKey
	}
	if *redisAddr != "" {
		cfg.RedisAddr = *redisAddr
	}
	if *offline {
		cfg.Offline = true
	}
	if *trustProxy {
		cfg.Server.TrustProxy = true
	}

	logger.Info("Server configuration",
		"port", cfg.Server.Port,
		"verbose", *verbose,
		"offline", cfg.Offline,
		"rate_limit_per_minute", cfg.Server.RateLimitPerMinute,
		"trust_proxy", cfg.Server.TrustProxy,
		"prewarm_countries", cfg.Server.PrewarmCountries,
		"prewarm_schedule", cfg.Server.PrewarmSchedule,
		"has_maps_key", cfg.MapsAPIKey != "",
		"has_redis", cfg.RedisAddr != "")

	opts := []planner.Option{
		planner.WithMapsAPIKey(cfg.MapsAPIKey),
		planner.WithNagerBaseURL(cfg.NagerBaseURL),
		planner.WithOffline(cfg.Offline),
		planner.WithNoCache(cfg.NoCache),
	}
	if cfg.RedisAddr != "" {
		opts = append(opts, planner.WithRedisAddr(cfg.RedisAddr))
	} else {
		opts = append(opts, planner.WithMemoryOnlyCache())
	}
	p := planner.NewWithLogger(context.Background(), logger, opts...)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("Failed to close planner", "error", err)
		}
	}()

	var lim limiter = newMemoryLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Debug("Failed to close redis client", "error", err)
			}
		}()
		lim = newRedisLimiter(rdb, cfg.Server.RateLimitPerMinute, time.Minute)
	}

	s := &server{
		planner:    p,
		cache:      newResponseCache(),
		limiter:    lim,
		logger:     logger,
		now:        time.Now,
		trustProxy: cfg.Server.TrustProxy,
	}

	scheduler, err := startPrewarm(p, cfg.Server, logger)
	if err != nil {
		logger.Error("Invalid prewarm schedule", "error", err, "schedule", cfg.Server.PrewarmSchedule)
		os.Exit(1)
	}
	defer scheduler.Stop()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

// startPrewarm loads the configured countries for this and next year once
// at startup and then on the configured cron schedule.
func startPrewarm(p *planner.Planner, cfg config.Server, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	if len(cfg.PrewarmCountries) == 0 {
		return c, nil
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		year := time.Now().Year()
		if err := p.Prewarm(ctx, cfg.PrewarmCountries, []int{year, year + 1}); err != nil {
			logger.Warn("Holiday prewarm failed", "error", err)
		}
	}
	if _, err := c.AddFunc(cfg.PrewarmSchedule, run); err != nil {
		return nil, fmt.Errorf("scheduling prewarm: %w", err)
	}
	c.Start()
	go run()
	return c, nil
}
