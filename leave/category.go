package leave

import (
	"regexp"
	"strings"
	"unicode"
)

// =============================================================================
// CATEGORY NORMALIZER
// =============================================================================
//
// Categories are free text: "Casual", "Casual Leave" and " CASUAL  LEAVE "
// all name the same thing. CategoryKey produces the comparison key and
// CategoryPattern the equivalent store query pattern.

var trailingLeave = regexp.MustCompile(`\s*leave\s*$`)

// CategoryKey canonicalizes a category display name: trim, lowercase, drop
// one trailing "leave" word, remove all whitespace.
func CategoryKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = trailingLeave.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SameCategory reports whether two display names are the same category.
func SameCategory(a, b string) bool {
	return CategoryKey(a) == CategoryKey(b)
}

// CategoryPattern returns a case-insensitive regular expression matching every
// display name whose CategoryKey equals name's key. Whitespace is tolerated
// between characters and an optional trailing "leave" word is accepted.
func CategoryPattern(name string) string {
	key := CategoryKey(name)
	var b strings.Builder
	b.WriteString(`(?i)^\s*`)
	for i, r := range key {
		if i > 0 {
			b.WriteString(`\s*`)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString(`(\s*leave)?\s*$`)
	return b.String()
}

// IsHalfDay reports whether the category is the half-day category.
func IsHalfDay(category string) bool {
	return CategoryKey(category) == "halfday"
}

// IsMonthly reports whether limits for the category are accounted per month.
// Casual leave is monthly, everything else is yearly.
func IsMonthly(category string) bool {
	return strings.HasPrefix(CategoryKey(category), "casual")
}

// DefaultAlwaysAllowed are categories that may be requested even when the
// staff member's template doesn't list them.
var DefaultAlwaysAllowed = []string{"Unpaid"}

// IsAlwaysAllowed reports whether category belongs to the allow-list.
func IsAlwaysAllowed(category string, allowList []string) bool {
	for _, allowed := range allowList {
		if SameCategory(category, allowed) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
