package textnorm

import (
	"regexp"
	"strings"
)

var (
	// hyphenBreak matches a hyphenated word break across a line boundary.
	hyphenBreak = regexp.MustCompile(`(\p{L})-\n(\p{L})`)

	// horizontalRuns matches runs of spaces and tabs.
	horizontalRuns = regexp.MustCompile(`[ \t]+`)

	// blankRuns matches three or more consecutive newlines.
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// CleanText performs basic text cleanup before indexing:
// unified line endings, layout unicode characters stripped,
// hyphenated line-wrap breaks merged, whitespace collapsed and
// blank-line runs capped at one.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\u00ad", "") // soft hyphen
	cleaned = strings.ReplaceAll(cleaned, "\u00a0", " ")
	cleaned = hyphenBreak.ReplaceAllString(cleaned, "$1$2")
	cleaned = horizontalRuns.ReplaceAllString(cleaned, " ")
	cleaned = blankRuns.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
