package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(dir, "info", false)
	require.NoError(t, err)
	defer func() { _ = log.Sync() }()

	assert.DirExists(t, dir)

	log.Info("test_message_from_logging_test")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "readycheck.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "test_message_from_logging_test")
}

func TestNewLogger_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "warn", false)
	require.NoError(t, err)
	log.Info("hidden_info")
	log.Warn("shown_warn")
	_ = log.Sync()

	b, _ := os.ReadFile(filepath.Join(dir, "readycheck.log"))
	assert.NotContains(t, string(b), "hidden_info")
	assert.Contains(t, string(b), "shown_warn")
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger("", "loud", false)
	assert.Error(t, err)
}

func TestNewLogger_NoSinksIsNop(t *testing.T) {
	log, err := NewLogger("", "debug", false)
	require.NoError(t, err)
	log.Info("goes nowhere")
}
