package fanlink

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	slugSuffixLen = 4
	slugAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	emptySlugBase = "link"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	slugStripRe  = regexp.MustCompile(`[^a-z0-9-]`)
	slugValidRe  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// randomSuffix returns the random part appended to generated slugs.
// Tests replace it to force collisions.
var randomSuffix = func() string {
	b := make([]byte, slugSuffixLen)
	limit := big.NewInt(int64(len(slugAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("fanlink: reading random bytes: " + err.Error())
		}
		b[i] = slugAlphabet[n.Int64()]
	}
	return string(b)
}

// NormalizeSlug applies the slug field's input rules: lower-case,
// whitespace runs become "-", anything outside [a-z0-9-] is dropped.
func NormalizeSlug(s string) string {
	s = strings.ToLower(s)
	s = whitespaceRe.ReplaceAllString(s, "-")
	return slugStripRe.ReplaceAllString(s, "")
}

// GenerateSlug derives a slug from title with a short random suffix. It does
// not check uniqueness.
func GenerateSlug(title string) string {
	base := strings.Trim(NormalizeSlug(strings.TrimSpace(title)), "-")
	if base == "" {
		base = emptySlugBase
	}
	return base + "-" + randomSuffix()
}

// ValidSlug reports whether s is a non-empty URL-safe slug.
func ValidSlug(s string) bool {
	return slugValidRe.MatchString(s)
}
