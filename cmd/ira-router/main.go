package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ira-chat/ira/internal/analytics"
	"github.com/ira-chat/ira/internal/api"
	"github.com/ira-chat/ira/internal/buildinfo"
	"github.com/ira-chat/ira/internal/config"
	"github.com/ira-chat/ira/internal/metrics"
	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/netutil"
	"github.com/ira-chat/ira/internal/pool"
	"github.com/ira-chat/ira/internal/routing"
)

func main() {
	// 1. Load and validate environment config
	cfg, err := config.LoadRouterConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log.Printf("ira-router %s (%s) starting", buildinfo.Version, buildinfo.GitCommit)

	// 2. Analytics sink
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	analyticsRepo, err := analytics.OpenRepo(filepath.Join(cfg.DataDir, "analytics.db"))
	if err != nil {
		log.Fatalf("open analytics db: %v", err)
	}
	defer analyticsRepo.Close()

	sink := analytics.NewService(analytics.ServiceConfig{
		Repo:          analyticsRepo,
		QueueSize:     cfg.AnalyticsQueueSize,
		FlushBatch:    cfg.AnalyticsFlushBatch,
		FlushInterval: cfg.AnalyticsFlushInterval,
		Retention:     cfg.AnalyticsRetention,
		PruneSchedule: cfg.AnalyticsPruneSchedule,
	})
	sink.Start()
	defer sink.Stop()

	// 3. Pool manager and health polling
	var poolConfigs []pool.Config
	for _, name := range []string{model.PoolPriority, model.PoolStandard, model.PoolOverflow} {
		ps := cfg.Pools[name]
		poolConfigs = append(poolConfigs, pool.Config{
			Name:           name,
			BaseURL:        ps.BaseURL,
			MaxConcurrency: ps.MaxConcurrency,
		})
	}
	pools, err := pool.NewManager(poolConfigs, netutil.NewWorkerClient())
	if err != nil {
		log.Fatalf("build pool manager: %v", err)
	}
	defer pools.Close()
	pools.StartHealthPolling(cfg.PoolHealthInterval)

	// 4. Routing policy
	table := routing.DefaultTable()
	if cfg.TierPolicyPath != "" {
		table, err = routing.LoadTableFile(cfg.TierPolicyPath)
		if err != nil {
			log.Fatalf("load tier policy: %v", err)
		}
		log.Printf("[routing] policy loaded from %s", cfg.TierPolicyPath)
	}

	collector := metrics.NewCollector()
	router := routing.NewTierRouter(routing.Config{
		Pools:      pools,
		Table:      table,
		OnDecision: collector.RecordDecision,
	})

	// 5. Front door
	srv := api.NewServer(api.ServerConfig{
		ListenAddress: cfg.ListenAddress,
		Port:          cfg.RouterPort,
		MaxBodyBytes:  int64(cfg.APIMaxBodyBytes),
		Router:        router,
		Pools:         pools,
		Collector:     collector,
		Emit:          sink.Emit,
		Ready: func() bool {
			for _, name := range pools.Pools() {
				if pools.Healthy(name) {
					return true
				}
			}
			return false
		},
	})

	go func() {
		log.Printf("ira-router listening on %s:%d", cfg.ListenAddress, cfg.RouterPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("received signal %s, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("server stopped")
}
