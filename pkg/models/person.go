package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role values for media item / person links.
const (
	RoleAuthor   = "AUTHOR"
	RoleNarrator = "NARRATOR"
	RoleEditor   = "EDITOR"
)

// Person is a deduplicated contributor identity. SortName is the dedup key,
// compared case-insensitively: "Tolkien, J. R. R." and "J. R. R. Tolkien"
// are the same person no matter how the source catalog spelled them.
type Person struct {
	bun.BaseModel `bun:"table:persons,alias:p"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	Name      string    `bun:",nullzero" json:"name"`
	SortName  string    `bun:",notnull" json:"sort_name"`
}

// MediaPersonRole links a person to a media item in a given role. A person is
// shared across many items and is never deleted as a side effect of deleting
// one item.
type MediaPersonRole struct {
	bun.BaseModel `bun:"table:media_person_roles,alias:mpr"`

	ID        int     `bun:",pk,nullzero" json:"id"`
	ItemID    int     `bun:",nullzero" json:"item_id"`
	PersonID  int     `bun:",nullzero" json:"person_id"`
	Person    *Person `bun:"rel:belongs-to,join:person_id=id" json:"person,omitempty"`
	Role      string  `bun:",nullzero" json:"role"`
	// SortOrder starts at 0 for the first credit, so it must never be
	// treated as a zero-is-null column.
	SortOrder int `bun:"sort_order" json:"sort_order"`
}
