package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "documents.db", cfg.LocalDBDSN)
	assert.Equal(t, "postgres://localhost:5432/documents?sslmode=disable", cfg.RemoteDBDSN)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 300*time.Second, cfg.BackoffCap)
	assert.Equal(t, 90*24*time.Hour, cfg.TombstoneRetention)
	assert.Equal(t, time.Hour, cfg.AutoResolveThreshold)
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"syncd", "-r", "postgres://db.example.com:5432/documents", "-i", "10"}

	cfg := LoadConfig()

	assert.Equal(t, "postgres://db.example.com:5432/documents", cfg.RemoteDBDSN)
	assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, "documents.db", cfg.LocalDBDSN, "untouched fields keep defaults")
}

func TestLoadConfig_JsonThenFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	f, err := os.CreateTemp(t.TempDir(), "cfg*.json")
	require.NoError(t, err)
	_, err = f.WriteString(`{
		"remote_db_dsn": "postgres://json.example.com:5432/documents",
		"local_db_dsn": "json.db",
		"sync_interval": "2m",
		"max_retries": 3,
		"tombstone_retention": "720h"
	}`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// flag overrides the DSN from JSON, JSON overrides the rest
	os.Args = []string{"syncd", "-c", f.Name(), "-r", "postgres://flag.example.com:5432/documents"}

	cfg := LoadConfig()

	assert.Equal(t, "postgres://flag.example.com:5432/documents", cfg.RemoteDBDSN)
	assert.Equal(t, "json.db", cfg.LocalDBDSN)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 720*time.Hour, cfg.TombstoneRetention)
}

func TestParseJson_PartialFileKeepsDefaults(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	f, err := os.CreateTemp(t.TempDir(), "cfg*.json")
	require.NoError(t, err)
	_, err = f.WriteString(`{"s3_bucket": "documents"}`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	os.Args = []string{"syncd", "-c", f.Name()}

	cfg := LoadConfig()
	assert.Equal(t, "documents", cfg.S3Bucket)
	assert.Equal(t, time.Hour, cfg.AutoResolveThreshold)
	assert.Equal(t, 5, cfg.MaxRetries)
}
