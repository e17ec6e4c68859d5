package config

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Requirement names a group of settings a command cannot run without.
type Requirement string

const (
	RequireWebflow    Requirement = "webflow"
	RequireSanity     Requirement = "sanity"
	RequireAssets     Requirement = "assets"
	RequireEnrichment Requirement = "enrichment"
)

// ConfigurationError lists every required environment variable that is unset.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Require checks presence of the settings behind each requirement. Values are
// not validated beyond being non-empty.
func (c *Config) Require(requirements ...Requirement) error {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	for _, r := range requirements {
		switch r {
		case RequireWebflow:
			check("WEBFLOW_API_TOKEN", c.Webflow.Token)
			check("WEBFLOW_SITE_ID", c.Webflow.SiteID)
		case RequireSanity:
			check("SANITY_PROJECT_ID", c.Sanity.ProjectID)
			check("SANITY_DATASET", c.Sanity.Dataset)
			check("SANITY_TOKEN", c.Sanity.Token)
		case RequireAssets:
			switch c.Assets.Store {
			case AssetStoreSupabase:
				check("SUPABASE_URL", c.Supabase.URL)
				check("SUPABASE_KEY", c.Supabase.Key)
				check("SUPABASE_BUCKET", c.Supabase.Bucket)
			case AssetStoreSanity:
			default:
				missing = append(missing, fmt.Sprintf("ASSET_STORE (unknown value %q)", c.Assets.Store))
			}
		case RequireEnrichment:
			switch c.Enrichment.Provider {
			case EnrichmentOpenAI:
				check("OPENAI_API_KEY", c.Enrichment.OpenAIKey)
			case EnrichmentAnthropic:
				check("ANTHROPIC_API_KEY", c.Enrichment.AnthropicKey)
			case EnrichmentNone, "":
			default:
				missing = append(missing, fmt.Sprintf("ENRICHMENT_PROVIDER (unknown value %q)", c.Enrichment.Provider))
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return errors.WithHint(
		&ConfigurationError{Missing: dedupe(missing)},
		"export the listed variables or add them to your environment file before running",
	)
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
