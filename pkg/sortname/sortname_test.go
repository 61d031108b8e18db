package sortname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantDisplay string
		wantSort    string
	}{
		// "Last, First" convention
		{
			name:        "comma with both parts",
			input:       "King, Stephen",
			wantDisplay: "Stephen King",
			wantSort:    "King, Stephen",
		},
		{
			name:        "comma with initials",
			input:       "Tolkien, J. R. R.",
			wantDisplay: "J. R. R. Tolkien",
			wantSort:    "Tolkien, J. R. R.",
		},
		{
			name:        "only first comma splits",
			input:       "Downey, Robert, Jr.",
			wantDisplay: "Robert, Jr. Downey",
			wantSort:    "Downey, Robert, Jr.",
		},
		{
			name:        "trailing comma keeps family name only",
			input:       "Smith,",
			wantDisplay: "Smith",
			wantSort:    "Smith",
		},
		{
			name:        "leading comma gets Unknown family name",
			input:       ", Stephen",
			wantDisplay: "Stephen Unknown",
			wantSort:    "Unknown, Stephen",
		},
		{
			name:        "whitespace collapsed around comma",
			input:       "  King ,   Stephen  ",
			wantDisplay: "Stephen King",
			wantSort:    "King, Stephen",
		},

		// "First Last" convention
		{
			name:        "simple two-part name",
			input:       "Stephen King",
			wantDisplay: "Stephen King",
			wantSort:    "King, Stephen",
		},
		{
			name:        "three-part name",
			input:       "Martin Luther King",
			wantDisplay: "Martin Luther King",
			wantSort:    "King, Martin Luther",
		},
		{
			name:        "initials without comma",
			input:       "J. R. R. Tolkien",
			wantDisplay: "J. R. R. Tolkien",
			wantSort:    "Tolkien, J. R. R.",
		},
		{
			name:        "internal whitespace collapsed",
			input:       "George   R.R.   Martin",
			wantDisplay: "George R.R. Martin",
			wantSort:    "Martin, George R.R.",
		},
		{
			name:        "single token",
			input:       "Madonna",
			wantDisplay: "Madonna",
			wantSort:    "Madonna",
		},
		{
			name:        "apostrophes preserved",
			input:       "Flannery O'Connor",
			wantDisplay: "Flannery O'Connor",
			wantSort:    "O'Connor, Flannery",
		},

		// Degenerate inputs
		{
			name:        "empty string",
			input:       "",
			wantDisplay: UnknownAuthor,
			wantSort:    UnknownAuthor,
		},
		{
			name:        "whitespace only",
			input:       "   ",
			wantDisplay: UnknownAuthor,
			wantSort:    UnknownAuthor,
		},
		{
			name:        "commas only",
			input:       ",,",
			wantDisplay: Unknown,
			wantSort:    Unknown,
		},
		{
			name:        "single comma",
			input:       ",",
			wantDisplay: Unknown,
			wantSort:    Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, sort := Normalize(tt.input)
			assert.Equal(t, tt.wantDisplay, display)
			assert.Equal(t, tt.wantSort, sort)
		})
	}
}

// The two source conventions must agree on the sort name so that the same
// person imported under either spelling deduplicates to one identity.
func TestNormalizeRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"Tolkien, J. R. R.", "J. R. R. Tolkien"},
		{"King, Stephen", "Stephen King"},
		{"Lovecraft, H.P.", "H.P. Lovecraft"},
	}

	for _, pair := range pairs {
		_, sortA := Normalize(pair[0])
		_, sortB := Normalize(pair[1])
		assert.Equal(t, sortA, sortB, "inputs %q and %q should share a sort name", pair[0], pair[1])
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	d1, s1 := Normalize("Ludwig van Beethoven")
	d2, s2 := Normalize("Ludwig van Beethoven")
	assert.Equal(t, d1, d2)
	assert.Equal(t, s1, s2)
}

func TestForTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "The at beginning",
			input:    "The Hobbit",
			expected: "Hobbit, The",
		},
		{
			name:     "A at beginning",
			input:    "A Tale of Two Cities",
			expected: "Tale of Two Cities, A",
		},
		{
			name:     "An at beginning",
			input:    "An American Tragedy",
			expected: "American Tragedy, An",
		},
		{
			name:     "case preserved",
			input:    "the hobbit",
			expected: "hobbit, the",
		},
		{
			name:     "no article",
			input:    "Lord of the Rings",
			expected: "Lord of the Rings",
		},
		{
			name:     "article in middle only",
			input:    "Return of the King",
			expected: "Return of the King",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "just The",
			input:    "The",
			expected: "The",
		},
		{
			name:     "single word",
			input:    "Dune",
			expected: "Dune",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForTitle(tt.input))
		})
	}
}
