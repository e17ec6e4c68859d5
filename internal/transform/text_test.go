package transform

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jo Lee", "jo-lee"},
		{"  Jo   Lee  ", "jo-lee"},
		{"Ann-Marie O'Neil", "ann-marie-o-neil"},
		{"Café & Co.", "caf-co"},
		{"--already-slugged--", "already-slugged"},
		{"UPPER_case_123", "upper-case-123"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugify_Properties(t *testing.T) {
	alphabet := regexp.MustCompile(`^[a-z0-9-]*$`)
	inputs := []string{
		"Jo Lee", "Ünïcödé Ñame", "tabs\tand\nnewlines", "-lead", "trail-", "a--b", "Über/Cool\\Path", "12 Monkeys",
	}

	for _, input := range inputs {
		slug := Slugify(input)
		assert.Equal(t, slug, Slugify(slug), "idempotent for %q", input)
		assert.Regexp(t, alphabet, slug)
		assert.NotRegexp(t, `^-|-$`, slug)
		assert.NotContains(t, slug, "--")
		assert.Equal(t, slug, Slugify(input), "deterministic for %q", input)
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected bool
	}{
		{"text true", "true", true},
		{"bool true", true, true},
		{"bool false", false, false},
		{"upper case", "TRUE", false},
		{"title case", "True", false},
		{"one", "1", false},
		{"yes", "yes", false},
		{"empty", "", false},
		{"nil", nil, false},
		{"number", 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CoerceBool(tt.input))
		})
	}
}

func TestSplitMulti(t *testing.T) {
	assert.Equal(t, []string{"sales", "marketing"}, SplitMulti(" sales ; marketing "))
	assert.Equal(t, []string{"solo"}, SplitMulti("solo"))
	assert.Nil(t, SplitMulti(" ; ;"))

	primary, ok := Primary("engineering; design; ops")
	assert.True(t, ok)
	assert.Equal(t, "engineering", primary)

	_, ok = Primary("")
	assert.False(t, ok)
}

func TestExtractPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"paragraph with entity", "<p>Hello &amp; welcome</p>", "Hello & welcome", true},
		{"nbsp", "<p>Hello&nbsp;world</p>", "Hello world", true},
		{"nested tags", "<div><h2>Title</h2><p>Body <strong>bold</strong></p></div>", "TitleBody bold", true},
		{"plain text", "  just text  ", "just text", true},
		{"other entities stay escaped", "a &lt; b", "a &lt; b", true},
		{"whitespace only", "   ", "", false},
		{"empty tags", "<p></p><br/>", "", false},
		{"nbsp only", "<p>&nbsp;</p>", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := ExtractPlainText(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestMapCategory(t *testing.T) {
	table := map[string]string{"eng": "engineering", "mkt": "marketing"}

	assert.Equal(t, "engineering", MapCategory(table, "eng"))
	assert.Equal(t, "sales", MapCategory(table, "sales"), "unknown codes pass through")
	assert.Equal(t, "eng", MapCategory(nil, "eng"))
}
