package fields

import (
	"regexp"
	"strings"
)

// Byte sequences seen when a text layer was written with a broken font map.
var garbledPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Z\d+\+\s*\d+\\`),
	regexp.MustCompile(`\d+\+/+`),
	regexp.MustCompile(`/\d+\s+/\d+`),
}

var (
	symbolChars = regexp.MustCompile(`[+\\/\[\]{}|]`)
	letterChars = regexp.MustCompile(`[a-zA-Z\x{0590}-\x{05FF}]`)
)

const (
	garbledMinLines  = 3
	garbledLineRatio = 0.3
	garbledMinSymbol = 3
)

// IsGarbled reports whether text looks like a corrupted text layer: a known
// bad byte pattern, or more than 30% of lines dominated by structural symbols.
func IsGarbled(text string) bool {
	for _, re := range garbledPatterns {
		if re.MatchString(text) {
			return true
		}
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < garbledMinLines {
		return false
	}

	bad := 0
	for _, l := range lines {
		symbols := len(symbolChars.FindAllStringIndex(l, -1))
		letters := len(letterChars.FindAllStringIndex(l, -1))
		if symbols > letters && symbols > garbledMinSymbol {
			bad++
		}
	}
	return float64(bad) > float64(len(lines))*garbledLineRatio
}
