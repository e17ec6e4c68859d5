package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultWebflowBaseURL, cfg.Webflow.BaseURL)
	assert.Equal(t, 100, cfg.Webflow.PageSize)
	assert.Equal(t, 10, cfg.Migration.BatchSize)
	assert.Equal(t, 150*time.Millisecond, cfg.Migration.WriteDelay)
	assert.Equal(t, EnrichmentNone, cfg.Enrichment.Provider)
	assert.Equal(t, AssetStoreSanity, cfg.Assets.Store)
	assert.Equal(t, DefaultSanityAPIVersion, cfg.Sanity.APIVersion)
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	t.Setenv("WEBFLOW_API_TOKEN", "wf-token")
	t.Setenv("WEBFLOW_SITE_ID", "site-1")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("WRITE_DELAY", "200ms")
	t.Setenv("ASSET_STORE", "supabase")

	cfg := NewConfig()

	assert.Equal(t, "wf-token", cfg.Webflow.Token)
	assert.Equal(t, "site-1", cfg.Webflow.SiteID)
	assert.Equal(t, 25, cfg.Webflow.PageSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Migration.WriteDelay)
	assert.Equal(t, AssetStoreSupabase, cfg.Assets.Store)
}

func TestRequire(t *testing.T) {
	t.Run("reports every missing variable", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.Require(RequireWebflow, RequireSanity)

		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		for _, name := range []string{"WEBFLOW_API_TOKEN", "WEBFLOW_SITE_ID", "SANITY_PROJECT_ID", "SANITY_DATASET", "SANITY_TOKEN"} {
			assert.Contains(t, err.Error(), name)
		}
	})

	t.Run("passes when present", func(t *testing.T) {
		cfg := &Config{
			Webflow: Webflow{Token: "t", SiteID: "s"},
			Sanity:  Sanity{ProjectID: "p", Dataset: "d", Token: "t"},
			Assets:  Assets{Store: AssetStoreSanity},
		}
		assert.NoError(t, cfg.Require(RequireWebflow, RequireSanity, RequireAssets, RequireEnrichment))
	})

	t.Run("whitespace counts as missing", func(t *testing.T) {
		cfg := &Config{Webflow: Webflow{Token: "  ", SiteID: "s"}}
		err := cfg.Require(RequireWebflow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WEBFLOW_API_TOKEN")
		assert.NotContains(t, err.Error(), "WEBFLOW_SITE_ID")
	})

	t.Run("supabase store needs supabase credentials", func(t *testing.T) {
		cfg := &Config{Assets: Assets{Store: AssetStoreSupabase}, Supabase: Supabase{Bucket: "images"}}
		err := cfg.Require(RequireAssets)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SUPABASE_URL")
		assert.Contains(t, err.Error(), "SUPABASE_KEY")
		assert.NotContains(t, err.Error(), "SUPABASE_BUCKET")
	})

	t.Run("enrichment key depends on provider", func(t *testing.T) {
		cfg := &Config{Enrichment: Enrichment{Provider: EnrichmentAnthropic}}
		err := cfg.Require(RequireEnrichment)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

		cfg.Enrichment.Provider = EnrichmentNone
		assert.NoError(t, cfg.Require(RequireEnrichment))
	})
}

const sampleMapping = `
jobs:
  - name: team
    type: teamMember
    source: {kind: csv, path: employees.csv}
    name_field: Name
    exclude_if_true: [Archived]
    categories: {eng: engineering}
    fields:
      - {source: Name, target: name}
      - {source: Department, target: department, kind: category}
      - {source: Avatar, target: image, kind: image}
  - name: projects
    type: project
    source: {kind: webflow, collection: projects}
    name_field: name
    slug_field: slug
    fields:
      - {source: summary, kind: richtext}
`

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping(strings.NewReader(sampleMapping))
	require.NoError(t, err)
	require.Len(t, m.Jobs, 2)

	team := m.Jobs[0]
	assert.Equal(t, "teamMember", team.Type)
	assert.Equal(t, SourceCSV, team.Source.Kind)
	assert.Equal(t, []string{"Archived"}, team.ExcludeIfTrue)
	assert.Equal(t, KindText, team.Fields[0].Kind, "kind defaults to text")
	assert.Equal(t, "engineering", team.Categories["eng"])

	projects := m.Jobs[1]
	assert.Equal(t, "summary", projects.Fields[0].Target, "target defaults to source")
	assert.Equal(t, []string{"teamMember", "project"}, m.Types())
	assert.True(t, NeedsAssets(m.Jobs))
	assert.True(t, HasWebflowSource(m.Jobs))
}

func TestParseMapping_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"no jobs", "jobs: []", "no jobs"},
		{"missing type", "jobs: [{name: a, name_field: n, source: {kind: csv, path: x}}]", "type is required"},
		{"unknown source", "jobs: [{name: a, type: t, name_field: n, source: {kind: ftp}}]", "unknown source kind"},
		{"unknown kind", "jobs: [{name: a, type: t, name_field: n, source: {kind: csv, path: x}, fields: [{source: f, kind: blob}]}]", "unknown kind"},
		{"no slug source", "jobs: [{name: a, type: t, source: {kind: csv, path: x}}]", "slug"},
		{"unknown key", "jobs: [{name: a, type: t, name_field: n, colour: red, source: {kind: csv, path: x}}]", "colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMapping(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMapping_Select(t *testing.T) {
	m, err := ParseMapping(strings.NewReader(sampleMapping))
	require.NoError(t, err)

	jobs, err := m.Select([]string{"projects"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "projects", jobs[0].Name)

	all, err := m.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = m.Select([]string{"team", "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
