package utils

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	// Anything outside the asset filename alphabet
	invalidAssetChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	// Hyphen runs left behind by replacement
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// DefaultImageExtension is used when the source URL has no recognised extension.
const DefaultImageExtension = "jpg"

var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// SanitizeAssetLabel reduces a label to [A-Za-z0-9-_]. Runs of other
// characters become a single hyphen. An empty result becomes "asset".
func SanitizeAssetLabel(label string) string {
	label = invalidAssetChars.ReplaceAllString(strings.TrimSpace(label), "-")
	label = repeatedHyphens.ReplaceAllString(label, "-")
	label = strings.Trim(label, "-")

	if len(label) > 120 {
		label = strings.Trim(label[:120], "-")
	}
	if label == "" {
		label = "asset"
	}
	return label
}

// ImageExtension returns the lower-cased extension of the URL path when it is a
// recognised image type, and DefaultImageExtension otherwise.
func ImageExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if imageExtensions[ext] {
		return ext
	}
	return DefaultImageExtension
}

// AssetFilename combines a sanitised label with the source image extension.
func AssetFilename(label, rawURL string) string {
	return SanitizeAssetLabel(label) + "." + ImageExtension(rawURL)
}

// ContentTypeForExtension maps an image extension to its MIME type.
func ContentTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
