package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MetadataCommon holds the format-independent metadata for one media item.
// It is created in the same transaction as its item and is never orphaned.
type MetadataCommon struct {
	bun.BaseModel `bun:"table:metadata_common,alias:mc"`

	ItemID          int        `bun:",pk,nullzero" json:"item_id"`
	Title           string     `bun:",notnull" json:"title"`
	SortTitle       string     `bun:",nullzero" json:"sort_title"`
	Summary         string     `bun:",nullzero" json:"summary,omitempty"`
	Publisher       string     `bun:",nullzero" json:"publisher,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Rating          *float64   `json:"rating,omitempty"`
	Tags            []string   `bun:",nullzero" json:"tags,omitempty"`
	CoverPath       string     `bun:",nullzero" json:"cover_path,omitempty"`
}

// MetadataBook holds book-specific metadata, 1:1 with a media item.
type MetadataBook struct {
	bun.BaseModel `bun:"table:metadata_book,alias:mb"`

	ItemID      int      `bun:",pk,nullzero" json:"item_id"`
	ISBN        string   `bun:",nullzero" json:"isbn,omitempty"`
	SeriesName  string   `bun:",nullzero" json:"series_name,omitempty"`
	SeriesIndex *float64 `json:"series_index,omitempty"`
}
