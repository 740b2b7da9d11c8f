// Package config reads the service configuration from command-line flags,
// with a few settings overridable from the environment.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	EnvRedisAddr = "RESTAURANT_REDIS_ADDR"
	EnvAMQPURL   = "RESTAURANT_AMQP_URL"
	EnvLogLevel  = "RESTAURANT_LOG_LEVEL"
)

type Config struct {
	KitchenWorkers int
	QueueCapacity  int
	SubmitTimeout  time.Duration
	PollInterval   time.Duration
	CookPerItem    time.Duration
	ShutdownGrace  time.Duration

	Tables         int
	LockTimeout    time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration
	WriteTimeout   time.Duration
	PipelineSlots  int
	Backend        string
	RedisAddr      string
	AMQPURL        string
	LogLevel       string
	LogFormat      string
	LogFile        string
	DemoOrders     int
	DemoWaiters    int
	DemoRestockers int
}

func Default() Config {
	return Config{
		KitchenWorkers: 4,
		QueueCapacity:  100,
		SubmitTimeout:  5 * time.Second,
		PollInterval:   time.Second,
		CookPerItem:    500 * time.Millisecond,
		ShutdownGrace:  30 * time.Second,
		Tables:         50,
		LockTimeout:    2 * time.Second,
		RetryAttempts:  5,
		RetryBackoff:   100 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
		PipelineSlots:  8,
		Backend:        BackendMemory,
		RedisAddr:      "localhost:6379",
		LogLevel:       "info",
		LogFormat:      "text",
		DemoOrders:     20,
		DemoWaiters:    4,
		DemoRestockers: 2,
	}
}

// Parse reads args (without the program name). Environment values from
// getenv override the matching flags when non-empty; pass os.Getenv in
// production.
func Parse(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()
	set := flag.NewFlagSet("restaurant", flag.ContinueOnError)
	set.SetOutput(io.Discard)

	set.IntVar(&cfg.KitchenWorkers, "kitchen-workers", cfg.KitchenWorkers, "Number of kitchen workers.")
	set.IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "Capacity of the kitchen ticket queue.")
	set.DurationVar(&cfg.SubmitTimeout, "submit-timeout", cfg.SubmitTimeout, "How long to wait for room in the kitchen queue.")
	set.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Kitchen worker poll interval.")
	set.DurationVar(&cfg.CookPerItem, "cook-per-item", cfg.CookPerItem, "Cooking time per order item.")
	set.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "How long shutdown lets the kitchen drain.")
	set.IntVar(&cfg.Tables, "tables", cfg.Tables, "Number of tables, numbered from 1.")
	set.DurationVar(&cfg.LockTimeout, "lock-timeout", cfg.LockTimeout, "Per-table lock timeout for timed operations.")
	set.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Attempts for table reservations with retry.")
	set.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial backoff between reservation attempts.")
	set.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "How long a record write waits for its lock.")
	set.IntVar(&cfg.PipelineSlots, "pipeline-concurrency", cfg.PipelineSlots, "Order pipelines allowed to run at once.")
	set.StringVar(&cfg.Backend, "backend", cfg.Backend, "Record storage: memory or redis.")
	set.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the redis backend.")
	set.StringVar(&cfg.AMQPURL, "amqp-url", cfg.AMQPURL, "RabbitMQ URL for order notifications; empty logs them instead.")
	set.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error.")
	set.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json.")
	set.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path; empty logs to stderr.")
	set.IntVar(&cfg.DemoOrders, "demo-orders", cfg.DemoOrders, "Orders each demo waiter places.")
	set.IntVar(&cfg.DemoWaiters, "demo-waiters", cfg.DemoWaiters, "Concurrent demo waiters.")
	set.IntVar(&cfg.DemoRestockers, "demo-restockers", cfg.DemoRestockers, "Concurrent demo restockers.")

	if err := set.Parse(args); err != nil {
		return Config{}, err
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	if v := getenv(EnvAMQPURL); v != "" {
		cfg.AMQPURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.KitchenWorkers < 1:
		return fmt.Errorf("kitchen-workers must be at least 1, got %d", c.KitchenWorkers)
	case c.QueueCapacity < 1:
		return fmt.Errorf("queue-capacity must be at least 1, got %d", c.QueueCapacity)
	case c.Tables < 1:
		return fmt.Errorf("tables must be at least 1, got %d", c.Tables)
	case c.RetryAttempts < 1:
		return fmt.Errorf("retry-attempts must be at least 1, got %d", c.RetryAttempts)
	case c.PipelineSlots < 1:
		return fmt.Errorf("pipeline-concurrency must be at least 1, got %d", c.PipelineSlots)
	case c.SubmitTimeout <= 0 || c.LockTimeout <= 0 || c.WriteTimeout <= 0:
		return fmt.Errorf("timeouts must be positive")
	case c.Backend != BackendMemory && c.Backend != BackendRedis:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
