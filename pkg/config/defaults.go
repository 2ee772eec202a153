package config

const (
	defaultStorageProvider = "sqlite"
	defaultSQLitePath      = "aide.db"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "memory_content"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultSearchStrategy    = "semantic"
	defaultSearchTopK        = 3
	defaultSearchMaxDistance = 0.75

	defaultFeedTimeout   = "30s"
	defaultFeedUserAgent = "aide-memoire/0.1"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "aide.memory.changed"

	defaultAPIListen = ":8082"

	defaultWatchFeedsFile = "feeds.yaml"
	defaultWatchSchedule  = "@every 1h"
	defaultWatchWorkers   = 4
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			SQLitePath: defaultSQLitePath,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Search: SearchConfig{
			Strategy:    defaultSearchStrategy,
			TopK:        defaultSearchTopK,
			MaxDistance: defaultSearchMaxDistance,
		},
		Feed: FeedConfig{
			Timeout:   defaultFeedTimeout,
			UserAgent: defaultFeedUserAgent,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Watch: WatchConfig{
			FeedsFile: defaultWatchFeedsFile,
			Schedule:  defaultWatchSchedule,
			Workers:   defaultWatchWorkers,
		},
	}
}
