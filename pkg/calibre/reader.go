// Package calibre extracts book records from a Calibre metadata.db catalog.
//
// The reader is deliberately forgiving: a missing, empty, or corrupt catalog
// is not an error to the caller, it is simply "nothing to import". ReadBooks
// therefore never fails; every problem collapses to an empty result. Callers
// rely on this contract, so don't "fix" it into returning errors.
package calibre

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/toshokanbooks/toshokan/pkg/htmlutil"
	"github.com/toshokanbooks/toshokan/pkg/isbn"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadBooks opens the catalog at dbPath read-only and returns one BookRecord
// per book, keyed by the foreign book id. On any failure to open, parse, or
// query the catalog it returns an empty map.
func (r *Reader) ReadBooks(ctx context.Context, dbPath string) map[int]*BookRecord {
	log := logger.FromContext(ctx)

	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		log.Warn("no catalog path configured; nothing to import")
		return map[int]*BookRecord{}
	}
	if _, err := os.Stat(dbPath); err != nil {
		log.Warn("catalog not found; nothing to import", logger.Data{"path": dbPath, "err": err.Error()})
		return map[int]*BookRecord{}
	}

	records, err := r.read(ctx, dbPath)
	if err != nil {
		log.Warn("catalog unreadable; nothing to import", logger.Data{"path": dbPath, "err": err.Error()})
		return map[int]*BookRecord{}
	}

	return records
}

func (r *Reader) read(ctx context.Context, dbPath string) (map[int]*BookRecord, error) {
	db, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records := map[int]*BookRecord{}

	// Base rows. A zero-length or non-SQLite file surfaces here as a query
	// error, which the caller collapses to an empty result.
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, sort, series_index, path, pubdate, has_cover
		FROM books
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookDirs := map[int]string{}
	for rows.Next() {
		var (
			id          int
			title       string
			sortTitle   sql.NullString
			seriesIndex sql.NullFloat64
			bookDir     sql.NullString
			pubdate     sql.NullString
			hasCover    sql.NullBool
		)
		if err := rows.Scan(&id, &title, &sortTitle, &seriesIndex, &bookDir, &pubdate, &hasCover); err != nil {
			return nil, err
		}
		record := &BookRecord{
			ID:        id,
			Title:     title,
			SortTitle: sortTitle.String,
		}
		if seriesIndex.Valid {
			idx := seriesIndex.Float64
			record.SeriesIndex = &idx
		}
		if t := parseTimestamp(pubdate.String); t != nil {
			record.PublicationDate = t
		}
		if hasCover.Valid && hasCover.Bool && bookDir.String != "" {
			record.CoverPath = path.Join(bookDir.String, "cover.jpg")
		}
		bookDirs[id] = bookDir.String
		records[id] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Authors, preserving the catalog's link order.
	err = r.each(ctx, db, `
		SELECT bal.book, a.name
		FROM books_authors_link bal
		JOIN authors a ON a.id = bal.author
		ORDER BY bal.book, bal.id`, func(book int, value string) {
		if record, ok := records[book]; ok {
			record.Authors = append(record.Authors, value)
		}
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, db, `
		SELECT bsl.book, s.name
		FROM books_series_link bsl
		JOIN series s ON s.id = bsl.series`, func(book int, value string) {
		if record, ok := records[book]; ok {
			record.SeriesName = value
		}
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, db, `
		SELECT btl.book, t.name
		FROM books_tags_link btl
		JOIN tags t ON t.id = btl.tag
		ORDER BY btl.book, btl.id`, func(book int, value string) {
		if record, ok := records[book]; ok {
			record.Tags = append(record.Tags, value)
		}
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, db, `
		SELECT bpl.book, p.name
		FROM books_publishers_link bpl
		JOIN publishers p ON p.id = bpl.publisher`, func(book int, value string) {
		if record, ok := records[book]; ok {
			record.Publisher = value
		}
	})
	if err != nil {
		return nil, err
	}

	// Summaries are stored as HTML fragments.
	err = r.each(ctx, db, `
		SELECT book, text
		FROM comments`, func(book int, value string) {
		if record, ok := records[book]; ok {
			record.Summary = htmlutil.StripTags(value)
		}
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, db, `
		SELECT book, val
		FROM identifiers
		WHERE type = 'isbn'`, func(book int, value string) {
		if record, ok := records[book]; ok {
			// Hyphenation varies; store the canonical form when the
			// checksum holds, the raw value otherwise.
			if canonical := isbn.Canonical(value); canonical != "" {
				record.ISBN = canonical
			} else {
				record.ISBN = value
			}
		}
	})
	if err != nil {
		return nil, err
	}

	// Calibre stores ratings doubled (0-10 for 0-5 stars).
	ratingRows, err := db.QueryContext(ctx, `
		SELECT brl.book, r.rating
		FROM books_ratings_link brl
		JOIN ratings r ON r.id = brl.rating`)
	if err != nil {
		return nil, err
	}
	defer ratingRows.Close()
	for ratingRows.Next() {
		var book int
		var rating float64
		if err := ratingRows.Scan(&book, &rating); err != nil {
			return nil, err
		}
		if record, ok := records[book]; ok {
			stars := rating / 2
			record.Rating = &stars
		}
	}
	if err := ratingRows.Err(); err != nil {
		return nil, err
	}

	// Format files live at <book dir>/<name>.<lowercased format>.
	formatRows, err := db.QueryContext(ctx, `
		SELECT book, format, name
		FROM data
		ORDER BY book, id`)
	if err != nil {
		return nil, err
	}
	defer formatRows.Close()
	for formatRows.Next() {
		var book int
		var format, name string
		if err := formatRows.Scan(&book, &format, &name); err != nil {
			return nil, err
		}
		record, ok := records[book]
		if !ok {
			continue
		}
		filename := name + "." + strings.ToLower(format)
		record.FormatPaths = append(record.FormatPaths, path.Join(bookDirs[book], filename))
	}
	if err := formatRows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// each runs a (book id, text value) query and feeds every row to fn.
func (r *Reader) each(ctx context.Context, db *sql.DB, query string, fn func(book int, value string)) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var book int
		var value sql.NullString
		if err := rows.Scan(&book, &value); err != nil {
			return err
		}
		if value.Valid && value.String != "" {
			fn(book, value.String)
		}
	}
	return rows.Err()
}

// Calibre writes timestamps in a handful of close-but-not-identical layouts.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02",
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Calibre uses 0101-01-01 as "no date".
			if t.Year() <= 101 {
				return nil
			}
			return &t
		}
	}
	return nil
}
