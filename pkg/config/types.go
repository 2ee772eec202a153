package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent aide configuration stored as config.toml
// in the .aide/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Search      SearchConfig      `toml:"search"`
	Feed        FeedConfig        `toml:"feed"`
	EventStream EventStreamConfig `toml:"eventstream"`
	API         APIConfig         `toml:"api"`
	Watch       WatchConfig       `toml:"watch"`
}

// StorageConfig selects the realm and memory store.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// SearchConfig holds defaults for search.
type SearchConfig struct {
	Strategy    string  `toml:"strategy,omitempty"`
	TopK        int     `toml:"top_k,omitempty"`
	MaxDistance float64 `toml:"max_distance,omitempty"`
}

// FeedConfig controls how feeds are fetched.
type FeedConfig struct {
	Timeout   string  `toml:"timeout,omitempty"`
	UserAgent string  `toml:"user_agent,omitempty"`
	RateLimit float64 `toml:"rate_limit,omitempty"`
}

// TimeoutDuration parses Timeout, returning zero when it is unset or invalid.
func (f FeedConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// EventStreamConfig controls the external mirror of memory change events.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// WatchConfig controls scheduled re-ingestion.
type WatchConfig struct {
	FeedsFile string `toml:"feeds_file,omitempty"`
	Schedule  string `toml:"schedule,omitempty"`
	Workers   int    `toml:"workers,omitempty"`
	LogFile   string `toml:"log_file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.api_key": stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),

	"search.strategy":     stringKey(func(c *Config) *string { return &c.Search.Strategy }),
	"search.top_k":        intKey("search.top_k", func(c *Config) *int { return &c.Search.TopK }),
	"search.max_distance": floatKey("search.max_distance", func(c *Config) *float64 { return &c.Search.MaxDistance }),

	"feed.timeout": {
		get: func(c *Config) string { return c.Feed.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for feed.timeout: %w", err)
			}
			c.Feed.Timeout = v
			return nil
		},
	},
	"feed.user_agent": stringKey(func(c *Config) *string { return &c.Feed.UserAgent }),
	"feed.rate_limit": floatKey("feed.rate_limit", func(c *Config) *float64 { return &c.Feed.RateLimit }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"watch.feeds_file": stringKey(func(c *Config) *string { return &c.Watch.FeedsFile }),
	"watch.schedule":   stringKey(func(c *Config) *string { return &c.Watch.Schedule }),
	"watch.workers":    intKey("watch.workers", func(c *Config) *int { return &c.Watch.Workers }),
	"watch.log_file":   stringKey(func(c *Config) *string { return &c.Watch.LogFile }),
}
