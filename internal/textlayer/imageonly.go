package textlayer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultImageOnlyThreshold is the trimmed length below which text counts as missing.
	DefaultImageOnlyThreshold = 50
	// MinMeaningfulChars is the floor of non-space, non-control characters.
	MinMeaningfulChars = 20
)

// IsImageOnly reports whether text is too thin to come from a real text layer:
// fewer than threshold characters after trimming, or fewer than
// MinMeaningfulChars non-whitespace non-control characters.
func IsImageOnly(text string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultImageOnlyThreshold
	}
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < threshold {
		return true
	}
	meaningful := 0
	for _, r := range trimmed {
		if !unicode.IsSpace(r) && !unicode.IsControl(r) {
			meaningful++
			if meaningful >= MinMeaningfulChars {
				return false
			}
		}
	}
	return true
}
