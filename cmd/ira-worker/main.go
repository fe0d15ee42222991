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

	"github.com/ira-chat/ira/internal/buildinfo"
	"github.com/ira-chat/ira/internal/config"
	"github.com/ira-chat/ira/internal/kv"
	"github.com/ira-chat/ira/internal/ratelimit"
	"github.com/ira-chat/ira/internal/scanloop"
	"github.com/ira-chat/ira/internal/store"
	"github.com/ira-chat/ira/internal/worker"
)

// Stale sessions from previous UTC days are swept closed on this cadence.
const sessionSweepInterval = 5 * time.Minute

func main() {
	// 1. Load and validate environment config
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log.Printf("ira-worker %s (%s) starting pool=%s", buildinfo.Version, buildinfo.GitCommit, cfg.Pool)

	// 2. Shared KV store for rate limiting
	kvStore, err := kv.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer kvStore.Close()

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Store:     kvStore,
		Namespace: cfg.RateLimitNamespace,
	})

	// 3. Document store
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	docs, err := store.Open(filepath.Join(cfg.DataDir, "documents.db"))
	if err != nil {
		log.Fatalf("open document store: %v", err)
	}
	defer docs.Close()

	// 4. Stale session sweeper
	stopSweep := make(chan struct{})
	go scanloop.Run(stopSweep, sessionSweepInterval, sessionSweepInterval/5, func() {
		day := time.Now().UTC().Format("2006-01-02")
		if n, err := docs.CloseSessionsBefore(day); err != nil {
			log.Printf("[worker] session sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("[worker] closed %d stale sessions", n)
		}
	})
	defer close(stopSweep)

	// 5. Serve
	srv := worker.NewServer(worker.ServerConfig{
		ListenAddress: cfg.ListenAddress,
		Port:          cfg.WorkerPort,
		MaxBodyBytes:  int64(cfg.APIMaxBodyBytes),
		Processor: worker.NewProcessor(worker.ProcessorConfig{
			Pool:    cfg.Pool,
			Limiter: limiter,
			Docs:    docs,
		}),
	})

	go func() {
		log.Printf("ira-worker listening on %s:%d", cfg.ListenAddress, cfg.WorkerPort)
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
