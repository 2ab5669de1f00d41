package config

import "time"

// Config holds runtime settings for the document sync engine.
//
// Durations are time.Duration values; the retry cap and budget are plain
// integers. Heuristic knobs the engine inherited from the original design
// (AutoResolveThreshold, the pull-after-push ordering) are configurable
// rather than hard-wired.
type Config struct {
	// LocalDBDSN is the sqlite DSN of the offline store.
	LocalDBDSN string
	// RemoteDBDSN is the postgres DSN of the shared document service.
	RemoteDBDSN string

	// OnlineCheckInterval is how often the engine probes remote reachability.
	OnlineCheckInterval time.Duration
	// ConnectivityTTL bounds how long a cached connectivity snapshot is trusted.
	ConnectivityTTL time.Duration
	// DebounceDelay coalesces rapid repeated sync triggers into one cycle.
	DebounceDelay time.Duration
	// SyncInterval drives the periodic background trigger.
	SyncInterval time.Duration

	// MaxRetries is the cumulative failure count after which a document is
	// marked permanently errored.
	MaxRetries int
	// BackoffCap bounds the exponential backoff wait.
	BackoffCap time.Duration

	// TombstoneRetention is how long deletion markers are kept before the
	// purge sweep removes them.
	TombstoneRetention time.Duration
	// AutoResolveThreshold is the recency margin beyond which background
	// conflict resolution prefers one side outright instead of merging.
	AutoResolveThreshold time.Duration

	// AuthToken is the JWT presented as this device's identity.
	AuthToken string
	// SecretKey verifies the token signature.
	SecretKey string

	// Blob store (S3-compatible) settings.
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBDSN = "documents.db"
	c.RemoteDBDSN = "postgres://localhost:5432/documents?sslmode=disable"
	c.OnlineCheckInterval = 3 * time.Second
	c.ConnectivityTTL = 5 * time.Second
	c.DebounceDelay = 500 * time.Millisecond
	c.SyncInterval = 5 * time.Minute
	c.MaxRetries = 5
	c.BackoffCap = 300 * time.Second
	c.TombstoneRetention = 90 * 24 * time.Hour
	c.AutoResolveThreshold = time.Hour
	c.S3Region = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
