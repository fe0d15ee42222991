// Package config handles environment-based configuration loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ira-chat/ira/internal/model"
)

// PoolSettings is the static configuration for one worker pool.
type PoolSettings struct {
	BaseURL        string
	MaxConcurrency int
}

// RouterConfig holds the router's environment-driven settings.
type RouterConfig struct {
	// Network
	ListenAddress   string
	RouterPort      int
	APIMaxBodyBytes int

	// Pools
	Pools              map[string]PoolSettings
	PoolHealthInterval time.Duration
	TierPolicyPath     string

	// Data
	DataDir string

	// Analytics
	AnalyticsQueueSize     int
	AnalyticsFlushBatch    int
	AnalyticsFlushInterval time.Duration
	AnalyticsRetention     time.Duration
	AnalyticsPruneSchedule string
}

// WorkerConfig holds a worker's environment-driven settings.
type WorkerConfig struct {
	// Network
	ListenAddress   string
	WorkerPort      int
	APIMaxBodyBytes int

	// Identity
	Pool string

	// Rate limiting
	RedisURL           string
	RateLimitNamespace string

	// Data
	DataDir string
}

// LoadRouterConfig reads environment variables and returns a validated
// RouterConfig. Returns an error if any value is invalid.
func LoadRouterConfig() (*RouterConfig, error) {
	cfg := &RouterConfig{}
	var errs []string

	// --- Network ---
	cfg.ListenAddress = strings.TrimSpace(envStr("IRA_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.RouterPort = envInt("IRA_ROUTER_PORT", 8000, &errs)
	cfg.APIMaxBodyBytes = envInt("IRA_API_MAX_BODY_BYTES", 1<<20, &errs)

	// --- Pools ---
	cfg.Pools = map[string]PoolSettings{
		model.PoolPriority: {
			BaseURL:        envStr("PRIORITY_WORKER_URL", "http://localhost:8001"),
			MaxConcurrency: envInt("PRIORITY_MAX_CONCURRENCY", 50, &errs),
		},
		model.PoolStandard: {
			BaseURL:        envStr("STANDARD_WORKER_URL", "http://localhost:8002"),
			MaxConcurrency: envInt("STANDARD_MAX_CONCURRENCY", 80, &errs),
		},
		model.PoolOverflow: {
			BaseURL:        envStr("OVERFLOW_WORKER_URL", "http://localhost:8003"),
			MaxConcurrency: envInt("OVERFLOW_MAX_CONCURRENCY", 30, &errs),
		},
	}
	cfg.PoolHealthInterval = envSeconds("POOL_HEALTH_INTERVAL_S", time.Second, &errs)
	cfg.TierPolicyPath = strings.TrimSpace(envStr("TIER_POLICY_PATH", ""))

	// --- Data ---
	cfg.DataDir = envStr("IRA_DATA_DIR", "/var/lib/ira")

	// --- Analytics ---
	cfg.AnalyticsQueueSize = envInt("ANALYTICS_QUEUE_SIZE", 8192, &errs)
	cfg.AnalyticsFlushBatch = envInt("ANALYTICS_FLUSH_BATCH", 512, &errs)
	cfg.AnalyticsFlushInterval = envDuration("ANALYTICS_FLUSH_INTERVAL", 2*time.Second, &errs)
	cfg.AnalyticsRetention = envDuration("ANALYTICS_RETENTION", 30*24*time.Hour, &errs)
	cfg.AnalyticsPruneSchedule = envStr("ANALYTICS_PRUNE_SCHEDULE", "0 4 * * *")

	// --- Validation ---
	if cfg.ListenAddress == "" {
		errs = append(errs, "IRA_LISTEN_ADDRESS must not be empty")
	}
	validatePort("IRA_ROUTER_PORT", cfg.RouterPort, &errs)
	validatePositive("IRA_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)

	for _, name := range []string{model.PoolPriority, model.PoolStandard, model.PoolOverflow} {
		p := cfg.Pools[name]
		if strings.TrimSpace(p.BaseURL) == "" {
			errs = append(errs, fmt.Sprintf("%s_WORKER_URL must not be empty", strings.ToUpper(name)))
		}
		validatePositive(strings.ToUpper(name)+"_MAX_CONCURRENCY", p.MaxConcurrency, &errs)
	}
	if cfg.PoolHealthInterval <= 0 {
		errs = append(errs, "POOL_HEALTH_INTERVAL_S must be positive")
	}

	validatePositive("ANALYTICS_QUEUE_SIZE", cfg.AnalyticsQueueSize, &errs)
	validatePositive("ANALYTICS_FLUSH_BATCH", cfg.AnalyticsFlushBatch, &errs)
	if cfg.AnalyticsFlushInterval <= 0 {
		errs = append(errs, "ANALYTICS_FLUSH_INTERVAL must be positive")
	}
	if cfg.AnalyticsRetention <= 0 {
		errs = append(errs, "ANALYTICS_RETENTION must be positive")
	}
	if _, err := cron.ParseStandard(cfg.AnalyticsPruneSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("ANALYTICS_PRUNE_SCHEDULE: invalid cron expression %q: %v", cfg.AnalyticsPruneSchedule, err))
	}
	if cfg.AnalyticsQueueSize < 2*cfg.AnalyticsFlushBatch {
		errs = append(errs, "ANALYTICS_QUEUE_SIZE must be at least 2x ANALYTICS_FLUSH_BATCH")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

// LoadWorkerConfig reads environment variables and returns a validated
// WorkerConfig. WORKER_POOL is required and must name a known pool.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	var errs []string

	cfg.ListenAddress = strings.TrimSpace(envStr("IRA_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.WorkerPort = envInt("IRA_WORKER_PORT", 8001, &errs)
	cfg.APIMaxBodyBytes = envInt("IRA_API_MAX_BODY_BYTES", 1<<20, &errs)

	cfg.Pool = strings.TrimSpace(envStr("WORKER_POOL", ""))

	cfg.RedisURL = envStr("REDIS_URL", "redis://localhost:6379/0")
	cfg.RateLimitNamespace = envStr("RATE_LIMIT_NAMESPACE", "ira")

	cfg.DataDir = envStr("IRA_DATA_DIR", "/var/lib/ira")

	if cfg.ListenAddress == "" {
		errs = append(errs, "IRA_LISTEN_ADDRESS must not be empty")
	}
	validatePort("IRA_WORKER_PORT", cfg.WorkerPort, &errs)
	validatePositive("IRA_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)

	switch cfg.Pool {
	case model.PoolPriority, model.PoolStandard, model.PoolOverflow:
	case "":
		errs = append(errs, "WORKER_POOL must be defined")
	default:
		errs = append(errs, fmt.Sprintf("WORKER_POOL: unknown pool %q (allowed: %s, %s, %s)",
			cfg.Pool, model.PoolPriority, model.PoolStandard, model.PoolOverflow))
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		errs = append(errs, "REDIS_URL must not be empty")
	}
	if strings.TrimSpace(cfg.RateLimitNamespace) == "" {
		errs = append(errs, "RATE_LIMIT_NAMESPACE must not be empty")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

// envSeconds reads a float number of seconds, e.g. "1.0" or "0.25".
func envSeconds(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid number %q", key, v))
		return defaultVal
	}
	return time.Duration(f * float64(time.Second))
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
