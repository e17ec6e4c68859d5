package config

import (
	"time"

	"github.com/spf13/viper"
)

type EnrichmentProvider string

const (
	EnrichmentNone      EnrichmentProvider = "none"
	EnrichmentOpenAI    EnrichmentProvider = "openai"
	EnrichmentAnthropic EnrichmentProvider = "anthropic"
)

type AssetStoreKind string

const (
	AssetStoreSanity   AssetStoreKind = "sanity"   // Sanity image assets, referenced by id
	AssetStoreSupabase AssetStoreKind = "supabase" // Supabase storage bucket, referenced by public URL
)

type (
	Config struct {
		HTTP
		Webflow
		Sanity
		Enrichment
		Assets
		Supabase
		Migration
		Ledger
		Sync
		Logging
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Webflow struct {
		Token             string
		SiteID            string
		BaseURL           string
		PageSize          int
		RequestsPerMinute int // 0 disables client-side limiting
		MaxRetries        int
	}
	Sanity struct {
		ProjectID  string
		Dataset    string
		Token      string
		APIVersion string
		BaseURL    string // Overrides https://<project>.api.sanity.io when set
	}
	Enrichment struct {
		Provider        EnrichmentProvider
		OpenAIKey       string
		OpenAIModel     string
		OpenAIBaseURL   string
		AnthropicKey    string
		MaxTokens       int
		Temperature     float64
		RequestInterval time.Duration
	}
	Assets struct {
		Store    AssetStoreKind
		CacheDir string // Empty disables the download cache
	}
	Supabase struct {
		URL    string
		Key    string
		Bucket string
	}
	Migration struct {
		MappingFile string
		BatchSize   int
		WriteDelay  time.Duration
	}
	Ledger struct {
		Path string // Empty disables the run ledger
	}
	Sync struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Logging struct {
		Level string
		JSON  bool
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("webflow_base_url", DefaultWebflowBaseURL)
	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("source_rate_per_minute", 60)
	v.SetDefault("max_retries", 3)

	v.SetDefault("sanity_api_version", DefaultSanityAPIVersion)

	v.SetDefault("enrichment_provider", string(EnrichmentNone))
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("enrichment_max_tokens", 600)
	v.SetDefault("enrichment_temperature", 0.2)
	v.SetDefault("enrichment_request_interval", "1s")

	v.SetDefault("asset_store", string(AssetStoreSanity))
	v.SetDefault("supabase_bucket", "images")

	v.SetDefault("mapping_file", DefaultMappingFile)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("write_delay", DefaultWriteDelay.String())

	v.SetDefault("ledger_path", DefaultLedgerPath)

	v.SetDefault("sync_enabled", false)
	v.SetDefault("sync_schedule", "0 3 * * *") // Daily at 03:00

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Webflow: Webflow{
			Token:             v.GetString("WEBFLOW_API_TOKEN"),
			SiteID:            v.GetString("WEBFLOW_SITE_ID"),
			BaseURL:           v.GetString("WEBFLOW_BASE_URL"),
			PageSize:          v.GetInt("PAGE_SIZE"),
			RequestsPerMinute: v.GetInt("SOURCE_RATE_PER_MINUTE"),
			MaxRetries:        v.GetInt("MAX_RETRIES"),
		},
		Sanity: Sanity{
			ProjectID:  v.GetString("SANITY_PROJECT_ID"),
			Dataset:    v.GetString("SANITY_DATASET"),
			Token:      v.GetString("SANITY_TOKEN"),
			APIVersion: v.GetString("SANITY_API_VERSION"),
			BaseURL:    v.GetString("SANITY_BASE_URL"),
		},
		Enrichment: Enrichment{
			Provider:        EnrichmentProvider(v.GetString("ENRICHMENT_PROVIDER")),
			OpenAIKey:       v.GetString("OPENAI_API_KEY"),
			OpenAIModel:     v.GetString("OPENAI_MODEL"),
			OpenAIBaseURL:   v.GetString("OPENAI_BASE_URL"),
			AnthropicKey:    v.GetString("ANTHROPIC_API_KEY"),
			MaxTokens:       v.GetInt("ENRICHMENT_MAX_TOKENS"),
			Temperature:     v.GetFloat64("ENRICHMENT_TEMPERATURE"),
			RequestInterval: v.GetDuration("ENRICHMENT_REQUEST_INTERVAL"),
		},
		Assets: Assets{
			Store:    AssetStoreKind(v.GetString("ASSET_STORE")),
			CacheDir: v.GetString("ASSET_CACHE_DIR"),
		},
		Supabase: Supabase{
			URL:    v.GetString("SUPABASE_URL"),
			Key:    v.GetString("SUPABASE_KEY"),
			Bucket: v.GetString("SUPABASE_BUCKET"),
		},
		Migration: Migration{
			MappingFile: v.GetString("MAPPING_FILE"),
			BatchSize:   v.GetInt("BATCH_SIZE"),
			WriteDelay:  v.GetDuration("WRITE_DELAY"),
		},
		Ledger: Ledger{
			Path: v.GetString("LEDGER_PATH"),
		},
		Sync: Sync{
			Enabled:  v.GetBool("SYNC_ENABLED"),
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Logging: Logging{
			Level: v.GetString("LOG_LEVEL"),
			JSON:  v.GetBool("LOG_JSON"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
