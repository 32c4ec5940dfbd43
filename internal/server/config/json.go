package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/serialgate/internal/flagx"
	"github.com/dmitrijs2005/serialgate/internal/timex"
)

// JsonConfig mirrors Config for JSON decoding. Durations use timex.Duration
// so both "5m" and integer nanoseconds are accepted.
type JsonConfig struct {
	DatabaseDSN          string         `json:"database_dsn"`
	LogFile              string         `json:"log_file"`
	LogLevel             string         `json:"log_level"`
	CheckpointInterval   timex.Duration `json:"checkpoint_interval"`
	DrainTimeout         timex.Duration `json:"drain_timeout"`
	LinksBundlePath      string         `json:"links_bundle"`
	TokenBundlePath      string         `json:"token_bundle"`
	YouTubeBaseURL       string         `json:"youtube_base_url"`
	YouTubeAPIBaseURL    string         `json:"youtube_api_base_url"`
	HandleLookupTimeout  timex.Duration `json:"handle_lookup_timeout"`
	ChannelLookupTimeout timex.Duration `json:"channel_lookup_timeout"`
	BlockedHandles       []string       `json:"blocked_handles"`
	BlockedChannelIDs    []string       `json:"blocked_channel_ids"`
	S3RootUser           string         `json:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	RedisURL             string         `json:"redis_url"`
	HandleCacheTTL       timex.Duration `json:"handle_cache_ttl"`
	MetricsAddr          string         `json:"metrics_addr"`
	EndpointAddrGRPC     string         `json:"endpoint_addr_grpc"`
	GateLookups          *bool          `json:"gate_lookups"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Only keys present in the file (non-zero after decoding) replace
// the current values. Unreadable or invalid files panic, aborting startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogFile, c.LogFile)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.CheckpointInterval, c.CheckpointInterval)
	setDuration(&config.DrainTimeout, c.DrainTimeout)
	setString(&config.LinksBundlePath, c.LinksBundlePath)
	setString(&config.TokenBundlePath, c.TokenBundlePath)
	setString(&config.YouTubeBaseURL, c.YouTubeBaseURL)
	setString(&config.YouTubeAPIBaseURL, c.YouTubeAPIBaseURL)
	setDuration(&config.HandleLookupTimeout, c.HandleLookupTimeout)
	setDuration(&config.ChannelLookupTimeout, c.ChannelLookupTimeout)
	if c.BlockedHandles != nil {
		config.BlockedHandles = c.BlockedHandles
	}
	if c.BlockedChannelIDs != nil {
		config.BlockedChannelIDs = c.BlockedChannelIDs
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisURL, c.RedisURL)
	setDuration(&config.HandleCacheTTL, c.HandleCacheTTL)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.GateLookups != nil {
		config.GateLookups = *c.GateLookups
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
