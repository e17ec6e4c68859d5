// Package cli implements the cmsmigrate command tree.
package cli

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/assets"
	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/enrichment"
	"github.com/mrlokans/cms-migrator/internal/sanity"
	"github.com/mrlokans/cms-migrator/internal/storage"
	"github.com/mrlokans/cms-migrator/internal/storage/providers/supabase"
	"github.com/mrlokans/cms-migrator/internal/webflow"
)

// App carries what every command needs. The root command fills Config and
// Logger before a subcommand runs; tests set them directly.
type App struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	Out     io.Writer
	Version string
}

func newWebflowClient(cfg *config.Config, logger *zap.SugaredLogger) *webflow.Client {
	return webflow.NewClient(webflow.Options{
		BaseURL:           cfg.Webflow.BaseURL,
		Token:             cfg.Webflow.Token,
		SiteID:            cfg.Webflow.SiteID,
		PageSize:          cfg.Webflow.PageSize,
		RequestsPerMinute: cfg.Webflow.RequestsPerMinute,
		MaxRetries:        cfg.Webflow.MaxRetries,
		Logger:            logger,
	})
}

func newSanityClient(cfg *config.Config, logger *zap.SugaredLogger) *sanity.Client {
	return sanity.NewClient(sanity.Options{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		Token:      cfg.Sanity.Token,
		APIVersion: cfg.Sanity.APIVersion,
		BaseURL:    cfg.Sanity.BaseURL,
		Logger:     logger,
	})
}

// newAssetStore returns the store images are relocated into.
func newAssetStore(cfg *config.Config, sanityClient *sanity.Client) (storage.AssetStore, error) {
	switch cfg.Assets.Store {
	case config.AssetStoreSanity:
		return sanityClient, nil
	case config.AssetStoreSupabase:
		return supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Bucket), nil
	}
	return nil, errors.Newf("unknown asset store %q", cfg.Assets.Store)
}

func newRelocator(cfg *config.Config, store storage.AssetStore, logger *zap.SugaredLogger) (*assets.Relocator, error) {
	relocator := assets.NewRelocator(store, logger)
	if cfg.Assets.CacheDir != "" {
		cache, err := assets.NewCache(cfg.Assets.CacheDir)
		if err != nil {
			return nil, err
		}
		relocator.SetCache(cache)
		logger.Debugw("asset download cache enabled", "dir", cache.Dir())
	}
	return relocator, nil
}

// newEnricher returns nil when enrichment is disabled.
func newEnricher(cfg *config.Config, logger *zap.SugaredLogger) *enrichment.Enricher {
	var provider enrichment.Provider
	switch cfg.Enrichment.Provider {
	case config.EnrichmentOpenAI:
		provider = enrichment.NewOpenAIProvider(
			cfg.Enrichment.OpenAIKey,
			cfg.Enrichment.OpenAIModel,
			cfg.Enrichment.OpenAIBaseURL,
			cfg.Enrichment.MaxTokens,
			cfg.Enrichment.Temperature,
		)
	case config.EnrichmentAnthropic:
		provider = enrichment.NewAnthropicProvider(
			cfg.Enrichment.AnthropicKey,
			cfg.Enrichment.MaxTokens,
			cfg.Enrichment.Temperature,
		)
	default:
		return nil
	}

	enricher := enrichment.NewEnricher(provider, logger)
	enricher.SetRequestInterval(cfg.Enrichment.RequestInterval)
	return enricher
}
