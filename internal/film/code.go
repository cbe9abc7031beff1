package film

import (
	"regexp"
	"strings"
)

// CodeCategory classifies a product code by the studio naming convention it
// follows. Categories are mutually exclusive.
type CodeCategory int

// Code categories, in evaluation order.
const (
	// CategoryPlain codes carry no studio marker and are used as-is.
	CategoryPlain CodeCategory = iota
	// CategoryPrefixed codes carry a literal studio prefix that is stripped.
	CategoryPrefixed
	// CategoryCarib codes keep their digits-digits pair verbatim.
	CategoryCarib
	// CategoryUnderscored codes use their digits-digits pair joined by "_".
	CategoryUnderscored
)

// String returns a readable category name for logs.
func (c CodeCategory) String() string {
	switch c {
	case CategoryPrefixed:
		return "prefixed"
	case CategoryCarib:
		return "carib"
	case CategoryUnderscored:
		return "underscored"
	default:
		return "plain"
	}
}

const (
	caribMarker   = "CARIB"
	caribPRMarker = "CARIBPR"
)

// prefixMarkers maps a studio marker to the literal prefix removed from codes.
var prefixMarkers = []struct {
	marker string
	prefix string
}{
	{marker: "TOKYO-HOT", prefix: "TOKYO-HOT-"},
	{marker: "GACHINCO", prefix: "GACHINCO-"},
}

var underscoredMarkers = []string{caribPRMarker, "PACO", "10MU", "1PONDO"}

var numberPairPattern = regexp.MustCompile(`[0-9]+-[0-9]+`)

// ClassifyCode returns the category of an upper-case product code.
// CARIBPR contains CARIB, so it is excluded from CategoryCarib and claimed by
// CategoryUnderscored.
func ClassifyCode(code string) CodeCategory {
	for _, m := range prefixMarkers {
		if strings.Contains(code, m.marker) {
			return CategoryPrefixed
		}
	}
	if strings.Contains(code, caribMarker) && !strings.Contains(code, caribPRMarker) {
		return CategoryCarib
	}
	for _, marker := range underscoredMarkers {
		if strings.Contains(code, marker) {
			return CategoryUnderscored
		}
	}
	return CategoryPlain
}

// NormalizeCode maps a raw upper-case product code to the search key used by
// code lookups. The boolean is false when the code has no usable search key.
func NormalizeCode(code string) (string, bool) {
	switch ClassifyCode(code) {
	case CategoryPrefixed:
		for _, m := range prefixMarkers {
			if strings.Contains(code, m.marker) {
				return strings.ReplaceAll(code, m.prefix, ""), true
			}
		}
		return code, true
	case CategoryCarib:
		pair := numberPairPattern.FindString(code)
		if pair == "" {
			return "", false
		}
		return pair, true
	case CategoryUnderscored:
		pair := numberPairPattern.FindString(code)
		if pair == "" {
			return "", false
		}
		return strings.ReplaceAll(pair, "-", "_"), true
	default:
		return code, true
	}
}
