package importer

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshokanbooks/toshokan/internal/testgen"
	"github.com/toshokanbooks/toshokan/pkg/mediaitems"
	"github.com/toshokanbooks/toshokan/pkg/migrations"
	"github.com/toshokanbooks/toshokan/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestLibrary(t *testing.T, db *bun.DB, rootPath string) *models.Library {
	t.Helper()

	library := &models.Library{
		Name:     "Test Library",
		RootPath: rootPath,
	}
	_, err := db.NewInsert().Model(library).Exec(context.Background())
	require.NoError(t, err)
	return library
}

// writeTestCatalog materializes a catalog plus its format files and returns
// the metadata.db path and the catalog root.
func writeTestCatalog(t *testing.T, books []testgen.CatalogBook) (string, string) {
	t.Helper()

	root := t.TempDir()
	dbPath := filepath.Join(root, "metadata.db")
	require.NoError(t, testgen.WriteCatalog(dbPath, root, books))
	return dbPath, root
}

func defaultCatalog() []testgen.CatalogBook {
	return []testgen.CatalogBook{
		{
			Title:       "The Fellowship of the Ring",
			SortTitle:   "Fellowship of the Ring, The",
			Authors:     []string{"Tolkien, J. R. R."},
			Series:      "The Lord of the Rings",
			SeriesIndex: 1,
			Tags:        []string{"Fantasy"},
			Publisher:   "Allen & Unwin",
			ISBN:        "9780261102354",
			Rating:      5,
			Summary:     "The first part of the trilogy.",
			Dir:         "Tolkien/Fellowship (1)",
			HasCover:    true,
			Formats: []testgen.CatalogFormat{
				{Format: "EPUB", Name: "Fellowship", Contents: "fellowship contents"},
			},
		},
		{
			Title:   "A Wizard of Earthsea",
			Authors: []string{"Le Guin, Ursula K."},
			Dir:     "LeGuin/Earthsea (2)",
			Formats: []testgen.CatalogFormat{
				{Format: "EPUB", Name: "Earthsea", Contents: "earthsea contents"},
			},
		},
	}
}

func TestRunImportsCatalog(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dbPath, root := writeTestCatalog(t, defaultCatalog())
	library := createTestLibrary(t, db, root)

	events := []Progress{}
	result, err := New(db).Run(ctx, Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
		Progress: func(p Progress) {
			events = append(events, p)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.SkippedUnchanged)
	assert.Zero(t, result.SkippedFailed)
	assert.False(t, result.Cancelled)

	// One event per record, counts climbing to the total.
	require.Len(t, events, 2)
	for i, event := range events {
		assert.Equal(t, i+1, event.Processed)
		assert.Equal(t, 2, event.Total)
		assert.NotEmpty(t, event.Title)
	}

	itemService := mediaitems.NewService(db)
	rel := "Tolkien/Fellowship (1)/Fellowship.epub"
	item, err := itemService.RetrieveMediaItem(ctx, mediaitems.RetrieveMediaItemOptions{
		Filepath:  &rel,
		LibraryID: &library.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, item.Common)
	assert.Equal(t, "The Fellowship of the Ring", item.Common.Title)
	assert.Equal(t, "Fellowship of the Ring, The", item.Common.SortTitle)
	assert.Equal(t, "Allen & Unwin", item.Common.Publisher)
	assert.Equal(t, []string{"Fantasy"}, item.Common.Tags)
	assert.Equal(t, "Tolkien/Fellowship (1)/cover.jpg", item.Common.CoverPath)
	require.NotNil(t, item.Common.Rating)
	assert.Equal(t, 5.0, *item.Common.Rating)

	require.NotNil(t, item.Book)
	assert.Equal(t, "9780261102354", item.Book.ISBN)
	assert.Equal(t, "The Lord of the Rings", item.Book.SeriesName)
	require.NotNil(t, item.Book.SeriesIndex)
	assert.Equal(t, 1.0, *item.Book.SeriesIndex)

	assert.NotEmpty(t, item.ContentHash)
	assert.Equal(t, int64(len("fellowship contents")), item.FilesizeBytes)

	require.Len(t, item.People, 1)
	require.NotNil(t, item.People[0].Person)
	assert.Equal(t, "J. R. R. Tolkien", item.People[0].Person.Name)
	assert.Equal(t, "Tolkien, J. R. R.", item.People[0].Person.SortName)
	assert.Equal(t, models.RoleAuthor, item.People[0].Role)
}

func TestRunIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dbPath, root := writeTestCatalog(t, defaultCatalog())
	library := createTestLibrary(t, db, root)
	orchestrator := New(db)

	opts := Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
	}

	first, err := orchestrator.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := orchestrator.Run(ctx, opts)
	require.NoError(t, err)
	assert.Zero(t, second.Imported)
	assert.Zero(t, second.Updated)
	assert.Equal(t, 2, second.SkippedUnchanged)

	items, err := db.NewSelect().Model((*models.MediaItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, items)

	persons, err := db.NewSelect().Model((*models.Person)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, persons)
}

func TestRunUpdatesChangedContent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dbPath, root := writeTestCatalog(t, defaultCatalog())
	library := createTestLibrary(t, db, root)
	orchestrator := New(db)

	opts := Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
	}

	_, err := orchestrator.Run(ctx, opts)
	require.NoError(t, err)

	// Rewrite one format file so its hash changes.
	target := filepath.Join(root, "Tolkien", "Fellowship (1)", "Fellowship.epub")
	require.NoError(t, os.WriteFile(target, []byte("revised fellowship contents"), 0600))

	result, err := orchestrator.Run(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.SkippedUnchanged)
	assert.Zero(t, result.Imported)

	itemService := mediaitems.NewService(db)
	rel := "Tolkien/Fellowship (1)/Fellowship.epub"
	item, err := itemService.RetrieveMediaItem(ctx, mediaitems.RetrieveMediaItemOptions{
		Filepath:  &rel,
		LibraryID: &library.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len("revised fellowship contents")), item.FilesizeBytes)

	// Still two items; the update replaced rows instead of adding new ones.
	items, err := db.NewSelect().Model((*models.MediaItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, items)
}

func TestRunDeduplicatesPersonsBySortName(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// "Smith," normalizes to sort name "Smith", and so does the bare
	// "Smith". Both books end up credited to one person row.
	dbPath, root := writeTestCatalog(t, []testgen.CatalogBook{
		{
			Title:   "First Book",
			Authors: []string{"Smith,"},
			Dir:     "Smith/First",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "First", Contents: "first"}},
		},
		{
			Title:   "Second Book",
			Authors: []string{"Smith"},
			Dir:     "Smith/Second",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "Second", Contents: "second"}},
		},
	})
	library := createTestLibrary(t, db, root)

	result, err := New(db).Run(ctx, Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	persons, err := db.NewSelect().Model((*models.Person)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, persons)

	roles, err := db.NewSelect().Model((*models.MediaPersonRole)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, roles)
}

func TestRunPreservesAuthorOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	dbPath, root := writeTestCatalog(t, []testgen.CatalogBook{
		{
			Title:   "Good Omens",
			Authors: []string{"Pratchett, Terry", "Gaiman, Neil"},
			Dir:     "Pratchett/Good Omens",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "Good Omens", Contents: "omens"}},
		},
	})
	library := createTestLibrary(t, db, root)

	_, err := New(db).Run(ctx, Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
	})
	require.NoError(t, err)

	itemService := mediaitems.NewService(db)
	rel := "Pratchett/Good Omens/Good Omens.epub"
	item, err := itemService.RetrieveMediaItem(ctx, mediaitems.RetrieveMediaItemOptions{
		Filepath:  &rel,
		LibraryID: &library.ID,
	})
	require.NoError(t, err)

	require.Len(t, item.People, 2)
	assert.Equal(t, "Terry Pratchett", item.People[0].Person.Name)
	assert.Equal(t, 0, item.People[0].SortOrder)
	assert.Equal(t, "Neil Gaiman", item.People[1].Person.Name)
	assert.Equal(t, 1, item.People[1].SortOrder)
}

func TestRunSkipsRecordsWithoutUsableFiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	root := t.TempDir()
	dbPath := filepath.Join(root, "metadata.db")
	// One format row pointing at a file that was never written to disk, and
	// one book with no format rows at all.
	require.NoError(t, testgen.WriteCatalog(dbPath, "", []testgen.CatalogBook{
		{
			Title:   "Ghost File",
			Authors: []string{"Nobody"},
			Dir:     "Nobody/Ghost",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "Ghost", Contents: "ghost"}},
		},
		{
			Title:   "No Formats",
			Authors: []string{"Nobody"},
		},
	}))
	library := createTestLibrary(t, db, root)

	result, err := New(db).Run(ctx, Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Zero(t, result.Imported)
	assert.Equal(t, 2, result.SkippedFailed)
	require.Len(t, result.Failures, 2)

	items, err := db.NewSelect().Model((*models.MediaItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, items)

	// No stray person rows for records that never imported. Person creation
	// only happens once a usable file is in hand.
	persons, err := db.NewSelect().Model((*models.Person)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, persons)
}

func TestRunWithUnreadableCatalog(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	library := createTestLibrary(t, db, t.TempDir())

	result, err := New(db).Run(ctx, Options{
		ForeignDBPath:   "",
		LibraryRootPath: library.RootPath,
		LibraryID:       library.ID,
	})
	require.NoError(t, err)

	assert.Zero(t, result.Total)
	assert.Zero(t, result.Imported)
	assert.False(t, result.Cancelled)
}

func TestRunCancellationLeavesCompleteItems(t *testing.T) {
	db := setupTestDB(t)
	dbPath, root := writeTestCatalog(t, []testgen.CatalogBook{
		{
			Title:   "Book One",
			Authors: []string{"Author One"},
			Dir:     "one",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "One", Contents: "one"}},
		},
		{
			Title:   "Book Two",
			Authors: []string{"Author Two"},
			Dir:     "two",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "Two", Contents: "two"}},
		},
		{
			Title:   "Book Three",
			Authors: []string{"Author Three"},
			Dir:     "three",
			Formats: []testgen.CatalogFormat{{Format: "EPUB", Name: "Three", Contents: "three"}},
		},
	})
	library := createTestLibrary(t, db, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the second record has committed. Records one and two stay
	// complete; the third is never started.
	result, err := New(db).Run(ctx, Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
		Progress: func(p Progress) {
			if p.Processed == 2 {
				cancel()
			}
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 2, result.Imported)

	items := []*models.MediaItem{}
	require.NoError(t, db.NewSelect().Model(&items).Scan(context.Background()))
	require.Len(t, items, 2)

	// Every persisted item is complete: metadata and people made it in.
	for _, item := range items {
		common, err := db.NewSelect().Model((*models.MetadataCommon)(nil)).Where("item_id = ?", item.ID).Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, common)

		roles, err := db.NewSelect().Model((*models.MediaPersonRole)(nil)).Where("item_id = ?", item.ID).Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, roles)
	}
}

func TestRunUsesFirstUsableFormat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	root := t.TempDir()
	dbPath := filepath.Join(root, "metadata.db")
	require.NoError(t, testgen.WriteCatalog(dbPath, root, []testgen.CatalogBook{
		{
			Title:   "Multi Format",
			Authors: []string{"Author, Some"},
			Dir:     "multi",
			Formats: []testgen.CatalogFormat{
				{Format: "EPUB", Name: "Multi", Contents: "epub contents"},
				{Format: "MOBI", Name: "Multi", Contents: "mobi contents"},
			},
		},
	}))
	// Remove the first format so the importer falls through to the second.
	require.NoError(t, os.Remove(filepath.Join(root, "multi", "Multi.epub")))
	library := createTestLibrary(t, db, root)

	result, err := New(db).Run(ctx, Options{
		ForeignDBPath:   dbPath,
		LibraryRootPath: root,
		LibraryID:       library.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	itemService := mediaitems.NewService(db)
	rel := "multi/Multi.mobi"
	item, err := itemService.RetrieveMediaItem(ctx, mediaitems.RetrieveMediaItemOptions{
		Filepath:  &rel,
		LibraryID: &library.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Multi Format", item.Common.Title)
}
