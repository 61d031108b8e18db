package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MediaTypeBook      = "book"
	MediaTypeAudiobook = "audiobook"
)

// MediaItem is one imported file in a library. Identity is the
// library-relative filepath; the content hash detects unchanged vs. modified
// files across import runs.
type MediaItem struct {
	bun.BaseModel `bun:"table:media_items,alias:mi"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LibraryID     int       `bun:",nullzero" json:"library_id"`
	Library       *Library  `bun:"rel:belongs-to" json:"library,omitempty"`
	Filepath      string    `bun:",nullzero" json:"filepath"`
	MediaType     string    `bun:",nullzero,default:'book'" json:"media_type"`
	ContentHash   string    `bun:",nullzero" json:"content_hash"`
	FilesizeBytes int64     `bun:",nullzero" json:"filesize_bytes"`
	LastScannedAt time.Time `json:"last_scanned_at"`

	Common *MetadataCommon    `bun:"rel:has-one,join:id=item_id" json:"common,omitempty"`
	Book   *MetadataBook      `bun:"rel:has-one,join:id=item_id" json:"book,omitempty"`
	People []*MediaPersonRole `bun:"rel:has-many,join:id=item_id" json:"people,omitempty"`
}
