package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Equal(t, "order-task-queue", cfg.TaskQueue)
	assert.Equal(t, 5*time.Second, cfg.CollaboratorTimeout)
	assert.Equal(t, 2, cfg.MaxReplanAttempts)
	assert.Equal(t, 1000, cfg.AuditCapacity)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ORDER_TASK_QUEUE", "orders-eu")
	t.Setenv("COLLABORATOR_TIMEOUT", "750ms")
	t.Setenv("MAX_REPLAN_ATTEMPTS", "4")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "orders-eu", cfg.TaskQueue)
	assert.Equal(t, 750*time.Millisecond, cfg.CollaboratorTimeout)
	assert.Equal(t, 4, cfg.MaxReplanAttempts)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	body := "order_task_queue: from-file\nlog_level: debug\naudit_capacity: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TaskQueue)
	assert.Equal(t, 50, cfg.AuditCapacity)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{TemporalHost: "", TaskQueue: "q", CollaboratorTimeout: 0, MaxReplanAttempts: -1, AuditCapacity: 0}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"TEMPORAL_HOST", "COLLABORATOR_TIMEOUT", "MAX_REPLAN_ATTEMPTS", "AUDIT_CAPACITY"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRunOptions(t *testing.T) {
	cfg := &Config{CollaboratorTimeout: time.Second, MaxReplanAttempts: 3}
	opts := cfg.RunOptions().WithDefaults()
	assert.Equal(t, 3, opts.MaxReplanAttempts)
	assert.Equal(t, time.Second, opts.CollaboratorTimeout)

	cfg.MaxReplanAttempts = 0
	assert.Equal(t, 0, cfg.RunOptions().WithDefaults().MaxReplanAttempts)
}
