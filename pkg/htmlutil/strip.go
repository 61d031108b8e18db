// Package htmlutil reduces HTML fragments to plain text. Catalog summaries
// are stored as HTML and need flattening before they go in the database.
package htmlutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern            = regexp.MustCompile(`<[^>]*>`)
	multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)
)

// Block-closing tags become newlines so paragraph breaks survive stripping.
var blockTags = []string{
	"</p>", "</div>", "<br>", "<br/>", "<br />", "</li>",
	"</h1>", "</h2>", "</h3>", "</h4>", "</h5>", "</h6>",
}

// StripTags removes all HTML tags from a string, decodes entities, and
// normalizes whitespace. Paragraph structure is kept as single newlines.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	for _, tag := range blockTags {
		s = strings.ReplaceAll(s, tag, "\n")
		s = strings.ReplaceAll(s, strings.ToUpper(tag), "\n")
	}

	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(multipleSpacesPattern.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
