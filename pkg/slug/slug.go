package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	apostrophe = strings.NewReplacer("'", "", "’", "", "`", "")
)

// Generate creates a URL-friendly slug from name. Apostrophes are dropped
// rather than turned into separators, so possessives stay one word.
//
// Examples:
//   - "men's clothing" → "mens-clothing"
//   - "Mens Casual Premium Slim Fit T-Shirts " → "mens-casual-premium-slim-fit-t-shirts"
//   - "electronics" → "electronics"
func Generate(name string) string {
	s := apostrophe.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Matches reports whether name slugifies to want. An empty want matches
// everything.
func Matches(name, want string) bool {
	if want == "" {
		return true
	}
	return Generate(name) == Generate(want)
}
