package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/flagx"
	"github.com/philipmoss2002/life-app-sub008/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type JsonConfig struct {
	LocalDBDSN           string         `json:"local_db_dsn"`
	RemoteDBDSN          string         `json:"remote_db_dsn"`
	OnlineCheckInterval  timex.Duration `json:"online_check_interval"`
	ConnectivityTTL      timex.Duration `json:"connectivity_ttl"`
	DebounceDelay        timex.Duration `json:"debounce_delay"`
	SyncInterval         timex.Duration `json:"sync_interval"`
	MaxRetries           *int           `json:"max_retries"`
	BackoffCap           timex.Duration `json:"backoff_cap"`
	TombstoneRetention   timex.Duration `json:"tombstone_retention"`
	AutoResolveThreshold timex.Duration `json:"auto_resolve_threshold"`
	AuthToken            string         `json:"auth_token"`
	SecretKey            string         `json:"secret_key"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	S3AccessKey          string         `json:"s3_access_key"`
	S3SecretKey          string         `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags via flagx.JsonConfigFlags; if no path
// is given, nothing is loaded. Zero values in the file leave the existing
// Config values in place, so the file may be partial.
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlayString(&cfg.LocalDBDSN, jc.LocalDBDSN)
	overlayString(&cfg.RemoteDBDSN, jc.RemoteDBDSN)
	overlayDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	overlayDuration(&cfg.ConnectivityTTL, jc.ConnectivityTTL)
	overlayDuration(&cfg.DebounceDelay, jc.DebounceDelay)
	overlayDuration(&cfg.SyncInterval, jc.SyncInterval)
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
	overlayDuration(&cfg.BackoffCap, jc.BackoffCap)
	overlayDuration(&cfg.TombstoneRetention, jc.TombstoneRetention)
	overlayDuration(&cfg.AutoResolveThreshold, jc.AutoResolveThreshold)
	overlayString(&cfg.AuthToken, jc.AuthToken)
	overlayString(&cfg.SecretKey, jc.SecretKey)
	overlayString(&cfg.S3Bucket, jc.S3Bucket)
	overlayString(&cfg.S3Region, jc.S3Region)
	overlayString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	overlayString(&cfg.S3AccessKey, jc.S3AccessKey)
	overlayString(&cfg.S3SecretKey, jc.S3SecretKey)
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
