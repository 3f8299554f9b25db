// Package slug derives URL-safe post identifiers and keeps them unique across the collection.
package slug

import (
	"regexp"
	"strings"

	"github.com/bilgisen/folio/internal/models"
)

// Length bounds of a stored slug
const (
	MinLength = 3
	MaxLength = 100
)

var (
	// Fixed transliteration table. Anything else outside ASCII is stripped.
	transliterator = strings.NewReplacer(
		"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
		"Ç", "c", "Ğ", "g", "İ", "i", "Ö", "o", "Ş", "s", "Ü", "u",
	)
	disallowed = regexp.MustCompile(`[^A-Za-z0-9_\s\p{Zs}-]+`)
	separators = regexp.MustCompile(`[\s\p{Zs}_-]+`)
	wellFormed = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Derive turns a title into a slug candidate of at most MaxLength characters.
// The result may be empty or shorter than MinLength.
func Derive(title string) string {
	s := transliterator.Replace(title)
	s = strings.ToLower(s)
	s = disallowed.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return Truncate(strings.Trim(s, "-"), MaxLength)
}

// Truncate shortens a slug to at most max characters, cutting at the last hyphen
// that fits when there is one
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	cut := s[:max]
	if s[max] != '-' {
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, "-")
}

// Validate checks the stored slug format
func Validate(s string) error {
	switch {
	case s == "":
		return &models.MalformedSlugError{Slug: s, Reason: "slug is required"}
	case len(s) < MinLength:
		return &models.MalformedSlugError{Slug: s, Reason: "slug must be at least 3 characters"}
	case len(s) > MaxLength:
		return &models.MalformedSlugError{Slug: s, Reason: "slug must be at most 100 characters"}
	case strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-"):
		return &models.MalformedSlugError{Slug: s, Reason: "slug cannot start or end with a hyphen"}
	case strings.Contains(s, "--"):
		return &models.MalformedSlugError{Slug: s, Reason: "slug cannot contain consecutive hyphens"}
	case !wellFormed.MatchString(s):
		return &models.MalformedSlugError{Slug: s, Reason: "slug may only contain lowercase letters, numbers and hyphens"}
	}
	return nil
}
