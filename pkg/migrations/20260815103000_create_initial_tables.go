package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE libraries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				root_path TEXT NOT NULL,
				deleted_at TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE media_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) ON DELETE CASCADE NOT NULL,
				filepath TEXT NOT NULL,
				media_type TEXT NOT NULL DEFAULT 'book',
				content_hash TEXT NOT NULL,
				filesize_bytes INTEGER,
				last_scanned_at TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_media_items_filepath_library_id ON media_items (filepath, library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_media_items_library_id ON media_items (library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE metadata_common (
				item_id INTEGER PRIMARY KEY REFERENCES media_items (id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				sort_title TEXT,
				summary TEXT,
				publisher TEXT,
				publication_date TIMESTAMPTZ,
				rating REAL,
				tags TEXT,
				cover_path TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE metadata_book (
				item_id INTEGER PRIMARY KEY REFERENCES media_items (id) ON DELETE CASCADE,
				isbn TEXT,
				series_name TEXT,
				series_index REAL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE persons (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) ON DELETE CASCADE NOT NULL,
				name TEXT NOT NULL,
				sort_name TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// The sort name is the dedup key and is matched case-insensitively.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_persons_sort_name_library_id ON persons (sort_name COLLATE NOCASE, library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE media_person_roles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				item_id INTEGER REFERENCES media_items (id) ON DELETE CASCADE NOT NULL,
				person_id INTEGER REFERENCES persons (id) NOT NULL,
				role TEXT NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_media_person_roles_triple ON media_person_roles (item_id, person_id, role)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_media_person_roles_person_id ON media_person_roles (person_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				data TEXT NOT NULL,
				progress INTEGER NOT NULL,
				process_id TEXT,
				library_id INTEGER REFERENCES libraries (id)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE job_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				job_id INTEGER REFERENCES jobs (id) ON DELETE CASCADE NOT NULL,
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				data TEXT,
				stack_trace TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_job_logs_job_id ON job_logs (job_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{
			"job_logs",
			"jobs",
			"media_person_roles",
			"persons",
			"metadata_book",
			"metadata_common",
			"media_items",
			"libraries",
		} {
			_, err := db.Exec("DROP TABLE IF EXISTS " + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
