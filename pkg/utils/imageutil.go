package utils

import (
	"net/http"
	"strings"
	"unicode"
)

// IsValidImageType checks if content type is a valid image type
func IsValidImageType(contentType string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
		"image/tiff",
	}

	ct := strings.ToLower(contentType)
	for _, validType := range validTypes {
		if strings.Contains(ct, validType) {
			return true
		}
	}
	return false
}

// DetectImageType sniffs the content type of raw image bytes.
func DetectImageType(data []byte) string {
	return http.DetectContentType(data)
}

// ExtensionForFormat maps an output format name to a file extension.
func ExtensionForFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "jpg"
	case "webp":
		return "webp"
	default:
		return "png"
	}
}

// Slugify turns a prompt into a filesystem-safe lowercase token, truncated
// to maxLen runes. Consecutive separators collapse to one dash.
func Slugify(s string, maxLen int) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 {
		runes := []rune(slug)
		if len(runes) > maxLen {
			slug = strings.Trim(string(runes[:maxLen]), "-")
		}
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
