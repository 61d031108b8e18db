// Package sortname canonicalizes free-form contributor names and titles into
// bibliographic display/sort forms.
package sortname

import (
	"strings"
)

// Placeholder names for contributor strings that carry no usable name.
const (
	UnknownAuthor = "Unknown Author"
	Unknown       = "Unknown"
)

// TitleArticles are articles to strip from the beginning of titles.
// These are moved to the end (e.g., "The Hobbit" -> "Hobbit, The").
var TitleArticles = []string{
	"The",
	"A",
	"An",
}

// Normalize converts a raw contributor string into a display name and a sort
// name. It is pure and total: any input, including garbage, produces a
// usable pair.
//
// Both source conventions are handled and round-trip to the same sort name:
//   - "Tolkien, J. R. R." -> ("J. R. R. Tolkien", "Tolkien, J. R. R.")
//   - "J. R. R. Tolkien"  -> ("J. R. R. Tolkien", "Tolkien, J. R. R.")
//
// Only whitespace is normalized; apostrophes, periods, and other punctuation
// pass through verbatim.
func Normalize(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownAuthor, UnknownAuthor
	}

	if strings.Contains(raw, ",") {
		// "Last, First" convention. Only the first comma splits; anything
		// after it (e.g. "Jr.") stays with the given-name portion.
		parts := strings.SplitN(raw, ",", 2)
		lastPart := collapse(parts[0])
		firstPart := collapse(parts[1])

		switch {
		case isBlank(lastPart) && isBlank(firstPart):
			return Unknown, Unknown
		case isBlank(lastPart):
			return firstPart + " " + Unknown, Unknown + ", " + firstPart
		case isBlank(firstPart):
			return lastPart, lastPart
		default:
			return firstPart + " " + lastPart, lastPart + ", " + firstPart
		}
	}

	// "First Last" convention: the last token is the family name.
	tokens := strings.Fields(raw)
	if len(tokens) == 1 {
		return tokens[0], tokens[0]
	}

	family := tokens[len(tokens)-1]
	given := strings.Join(tokens[:len(tokens)-1], " ")
	return given + " " + family, family + ", " + given
}

// ForTitle generates a sort title from a display title.
// Leading articles are moved to the end.
// Examples:
//   - "The Hobbit" -> "Hobbit, The"
//   - "A Tale of Two Cities" -> "Tale of Two Cities, A"
//   - "Lord of the Rings" -> "Lord of the Rings" (no change)
func ForTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	for _, article := range TitleArticles {
		prefix := article + " "
		if strings.EqualFold(title[:min(len(prefix), len(title))], prefix) && len(title) > len(prefix) {
			// Extract the actual article from the title (preserving original case)
			actualArticle := title[:len(article)]
			rest := strings.TrimSpace(title[len(prefix):])
			if rest != "" {
				return rest + ", " + actualArticle
			}
		}
	}

	return title
}

// collapse trims a name part and squeezes runs of whitespace into single
// spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isBlank reports whether a collapsed name part carries no actual name, i.e.
// it is empty or consists only of commas and spaces (",," and friends).
func isBlank(s string) bool {
	return strings.Trim(s, ", ") == ""
}
