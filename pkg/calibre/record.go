package calibre

import "time"

// BookRecord is the intermediate representation of one book extracted from a
// Calibre catalog. Records are ephemeral: the importer consumes them and
// throws them away, and none of the foreign row identifiers survive into the
// target store. Title is always present (the Calibre schema guarantees it);
// every other field is optional.
type BookRecord struct {
	ID              int
	Title           string
	SortTitle       string
	Authors         []string // raw, un-normalized, in catalog order
	SeriesName      string
	SeriesIndex     *float64
	Tags            []string
	Publisher       string
	ISBN            string
	PublicationDate *time.Time
	Rating          *float64 // 0-5 stars
	Summary         string
	CoverPath       string   // relative to the catalog root
	FormatPaths     []string // relative to the catalog root, in catalog order
}
