// Package config loads worker and starter settings from the environment, an
// optional .env file and an optional YAML file named by ORCHESTRATOR_CONFIG.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"kalpanik-operations/order-processing/types"
)

const (
	keyTemporalHost        = "temporal_host"
	keyTemporalNamespace   = "temporal_namespace"
	keyTaskQueue           = "order_task_queue"
	keyLogLevel            = "log_level"
	keySeedFile            = "seed_file"
	keyRiskModelPath       = "risk_model_path"
	keyCollaboratorTimeout = "collaborator_timeout"
	keyMaxReplanAttempts   = "max_replan_attempts"
	keyAuditCapacity       = "audit_capacity"

	// FileEnv names the optional YAML config file
	FileEnv = "ORCHESTRATOR_CONFIG"
)

// Config holds process settings
type Config struct {
	TemporalHost        string
	TemporalNamespace   string
	TaskQueue           string
	LogLevel            string
	SeedFile            string
	RiskModelPath       string
	CollaboratorTimeout time.Duration
	MaxReplanAttempts   int
	AuditCapacity       int
}

func defaults(v *viper.Viper) {
	v.SetDefault(keyTemporalHost, "localhost:7233")
	v.SetDefault(keyTemporalNamespace, "default")
	v.SetDefault(keyTaskQueue, "order-task-queue")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keySeedFile, "")
	v.SetDefault(keyRiskModelPath, "")
	v.SetDefault(keyCollaboratorTimeout, types.DefaultCollaboratorTimeout)
	v.SetDefault(keyMaxReplanAttempts, types.DefaultMaxReplanAttempts)
	v.SetDefault(keyAuditCapacity, 1000)
}

// Load reads .env (if present), the environment and the optional config file.
// Environment variables override file values.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	defaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := v.GetString(FileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		TemporalHost:        v.GetString(keyTemporalHost),
		TemporalNamespace:   v.GetString(keyTemporalNamespace),
		TaskQueue:           v.GetString(keyTaskQueue),
		LogLevel:            v.GetString(keyLogLevel),
		SeedFile:            v.GetString(keySeedFile),
		RiskModelPath:       v.GetString(keyRiskModelPath),
		CollaboratorTimeout: v.GetDuration(keyCollaboratorTimeout),
		MaxReplanAttempts:   v.GetInt(keyMaxReplanAttempts),
		AuditCapacity:       v.GetInt(keyAuditCapacity),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TemporalHost) == "" {
		errs = append(errs, errors.New("TEMPORAL_HOST is required"))
	}
	if strings.TrimSpace(c.TaskQueue) == "" {
		errs = append(errs, errors.New("ORDER_TASK_QUEUE is required"))
	}
	if c.CollaboratorTimeout <= 0 {
		errs = append(errs, fmt.Errorf("COLLABORATOR_TIMEOUT must be positive, got %s", c.CollaboratorTimeout))
	}
	if c.MaxReplanAttempts < 0 {
		errs = append(errs, fmt.Errorf("MAX_REPLAN_ATTEMPTS must not be negative, got %d", c.MaxReplanAttempts))
	}
	if c.AuditCapacity <= 0 {
		errs = append(errs, fmt.Errorf("AUDIT_CAPACITY must be positive, got %d", c.AuditCapacity))
	}
	return errors.Join(errs...)
}

// RunOptions are the per-run options derived from the process config. A
// configured replan limit of zero disables replanning.
func (c *Config) RunOptions() types.RunOptions {
	attempts := c.MaxReplanAttempts
	if attempts == 0 {
		attempts = -1
	}
	return types.RunOptions{
		MaxReplanAttempts:   attempts,
		CollaboratorTimeout: c.CollaboratorTimeout,
	}
}
