// Package testgen generates synthetic Calibre catalogs (metadata.db plus
// format files) with configurable metadata for testing the import pipeline.
package testgen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun/driver/sqliteshim"
)

// CatalogFormat is one format file attached to a catalog book.
type CatalogFormat struct {
	Format   string // e.g. "EPUB"
	Name     string // filename without extension
	Contents string // written to disk when the catalog root is materialized
}

// CatalogBook configures one book row and its joined metadata.
type CatalogBook struct {
	Title       string
	SortTitle   string
	Authors     []string
	Series      string
	SeriesIndex float64
	Tags        []string
	Publisher   string
	ISBN        string
	Rating      int // 0-5 stars
	Summary     string
	PubDate     string // Calibre-style timestamp, optional
	Dir         string // book directory relative to the catalog root
	HasCover    bool
	Formats     []CatalogFormat
}

// WriteCatalog creates a Calibre-shaped metadata.db at dbPath containing the
// given books. Format files are written under rootDir so the importer can
// hash them; pass an empty rootDir to produce a catalog whose files are
// missing on disk.
func WriteCatalog(dbPath, rootDir string, books []CatalogBook) error {
	db, err := sql.Open(sqliteshim.ShimName, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	schema := []string{
		`CREATE TABLE books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT 'Unknown',
			sort TEXT,
			series_index REAL NOT NULL DEFAULT 1.0,
			path TEXT NOT NULL DEFAULT '',
			pubdate TEXT,
			has_cover BOOL DEFAULT 0
		)`,
		`CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, sort TEXT)`,
		`CREATE TABLE books_authors_link (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, author INTEGER NOT NULL)`,
		`CREATE TABLE series (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`,
		`CREATE TABLE books_series_link (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, series INTEGER NOT NULL)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`,
		`CREATE TABLE books_tags_link (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, tag INTEGER NOT NULL)`,
		`CREATE TABLE publishers (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`,
		`CREATE TABLE books_publishers_link (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, publisher INTEGER NOT NULL)`,
		`CREATE TABLE ratings (id INTEGER PRIMARY KEY AUTOINCREMENT, rating INTEGER)`,
		`CREATE TABLE books_ratings_link (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, rating INTEGER NOT NULL)`,
		`CREATE TABLE comments (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, text TEXT NOT NULL)`,
		`CREATE TABLE identifiers (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, type TEXT NOT NULL DEFAULT 'isbn', val TEXT NOT NULL)`,
		`CREATE TABLE data (id INTEGER PRIMARY KEY AUTOINCREMENT, book INTEGER NOT NULL, format TEXT NOT NULL, uncompressed_size INTEGER NOT NULL DEFAULT 0, name TEXT NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	authorIDs := map[string]int64{}
	seriesIDs := map[string]int64{}
	tagIDs := map[string]int64{}
	publisherIDs := map[string]int64{}

	for _, book := range books {
		dir := book.Dir
		if dir == "" {
			dir = strings.ReplaceAll(book.Title, " ", "_")
		}

		res, err := db.Exec(
			`INSERT INTO books (title, sort, series_index, path, pubdate, has_cover) VALUES (?, ?, ?, ?, ?, ?)`,
			book.Title, book.SortTitle, book.SeriesIndex, dir, book.PubDate, book.HasCover,
		)
		if err != nil {
			return err
		}
		bookID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, author := range book.Authors {
			id, err := upsertName(db, authorIDs, `INSERT INTO authors (name, sort) VALUES (?, ?)`, author, author)
			if err != nil {
				return err
			}
			if _, err := db.Exec(`INSERT INTO books_authors_link (book, author) VALUES (?, ?)`, bookID, id); err != nil {
				return err
			}
		}
		if book.Series != "" {
			id, err := upsertName(db, seriesIDs, `INSERT INTO series (name) VALUES (?)`, book.Series)
			if err != nil {
				return err
			}
			if _, err := db.Exec(`INSERT INTO books_series_link (book, series) VALUES (?, ?)`, bookID, id); err != nil {
				return err
			}
		}
		for _, tag := range book.Tags {
			id, err := upsertName(db, tagIDs, `INSERT INTO tags (name) VALUES (?)`, tag)
			if err != nil {
				return err
			}
			if _, err := db.Exec(`INSERT INTO books_tags_link (book, tag) VALUES (?, ?)`, bookID, id); err != nil {
				return err
			}
		}
		if book.Publisher != "" {
			id, err := upsertName(db, publisherIDs, `INSERT INTO publishers (name) VALUES (?)`, book.Publisher)
			if err != nil {
				return err
			}
			if _, err := db.Exec(`INSERT INTO books_publishers_link (book, publisher) VALUES (?, ?)`, bookID, id); err != nil {
				return err
			}
		}
		if book.Rating > 0 {
			res, err := db.Exec(`INSERT INTO ratings (rating) VALUES (?)`, book.Rating*2)
			if err != nil {
				return err
			}
			ratingID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			if _, err := db.Exec(`INSERT INTO books_ratings_link (book, rating) VALUES (?, ?)`, bookID, ratingID); err != nil {
				return err
			}
		}
		if book.Summary != "" {
			if _, err := db.Exec(`INSERT INTO comments (book, text) VALUES (?, ?)`, bookID, book.Summary); err != nil {
				return err
			}
		}
		if book.ISBN != "" {
			if _, err := db.Exec(`INSERT INTO identifiers (book, type, val) VALUES (?, 'isbn', ?)`, bookID, book.ISBN); err != nil {
				return err
			}
		}

		for _, format := range book.Formats {
			if _, err := db.Exec(
				`INSERT INTO data (book, format, uncompressed_size, name) VALUES (?, ?, ?, ?)`,
				bookID, format.Format, len(format.Contents), format.Name,
			); err != nil {
				return err
			}
			if rootDir != "" {
				filename := fmt.Sprintf("%s.%s", format.Name, strings.ToLower(format.Format))
				target := filepath.Join(rootDir, filepath.FromSlash(dir), filename)
				if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
					return err
				}
				if err := os.WriteFile(target, []byte(format.Contents), 0600); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func upsertName(db *sql.DB, cache map[string]int64, insert string, args ...interface{}) (int64, error) {
	key := args[0].(string)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	res, err := db.Exec(insert, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	cache[key] = id
	return id, nil
}
