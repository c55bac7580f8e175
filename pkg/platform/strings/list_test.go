package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "only separators and blanks",
			input:    " , ,, ",
			expected: nil,
		},
		{
			name:     "single item",
			input:    "heart",
			expected: []string{"heart"},
		},
		{
			name:     "trims and lower-cases",
			input:    "  Kidney , LIVER",
			expected: []string{"kidney", "liver"},
		},
		{
			name:     "case-insensitive duplicates keep first position",
			input:    "corneas,Kidney,corneas,kidney",
			expected: []string{"corneas", "kidney"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}
