package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "unifies CRLF line endings",
			input:    "one\r\ntwo\rthree\n",
			expected: "one\ntwo\nthree",
		},
		{
			name:     "strips soft hyphens",
			input:    "hy­phen­ated",
			expected: "hyphenated",
		},
		{
			name:     "replaces non-breaking spaces",
			input:    "a b",
			expected: "a b",
		},
		{
			name:     "merges hyphenated word breaks across lines",
			input:    "docu-\nment",
			expected: "document",
		},
		{
			name:     "merges hyphenated breaks in cyrillic text",
			input:    "доку-\nмент",
			expected: "документ",
		},
		{
			name:     "keeps hyphen before a digit",
			input:    "ISO-\n9001",
			expected: "ISO-\n9001",
		},
		{
			name:     "collapses runs of spaces and tabs",
			input:    "a  \t  b",
			expected: "a b",
		},
		{
			name:     "caps blank line runs at one",
			input:    "para one\n\n\n\n\npara two",
			expected: "para one\n\npara two",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "\n\n  body  \n\n",
			expected: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}
