package config

import (
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil, noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 50, cfg.Tables)
	assert.Equal(t, 500*time.Millisecond, cfg.CookPerItem)
}

func TestParse_FlagsAndEnvironment(t *testing.T) {
	env := map[string]string{
		EnvRedisAddr: "redis:6380",
		EnvLogLevel:  "debug",
	}
	cfg, err := Parse([]string{
		"-kitchen-workers", "8",
		"-queue-capacity=3",
		"-lock-timeout", "250ms",
		"-backend", "redis",
		"-redis-addr", "ignored:1",
	}, func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.KitchenWorkers)
	assert.Equal(t, 3, cfg.QueueCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero workers", []string{"-kitchen-workers", "0"}},
		{"unknown backend", []string{"-backend", "postgres"}},
		{"negative timeout", []string{"-submit-timeout", "-1s"}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args, noEnv)
			assert.Error(t, err)
		})
	}
}

func TestParse_Help(t *testing.T) {
	_, err := Parse([]string{"-h"}, noEnv)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
