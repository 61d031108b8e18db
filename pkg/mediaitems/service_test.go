package mediaitems

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func createTestLibrary(t *testing.T, db *bun.DB) *models.Library {
	t.Helper()

	library := &models.Library{
		Name:     "Test Library",
		RootPath: t.TempDir(),
	}
	_, err := db.NewInsert().Model(library).Exec(context.Background())
	require.NoError(t, err)
	return library
}

func createTestPerson(t *testing.T, db *bun.DB, libraryID int, name, sortName string) *models.Person {
	t.Helper()

	person := &models.Person{
		LibraryID: libraryID,
		Name:      name,
		SortName:  sortName,
	}
	_, err := db.NewInsert().Model(person).Exec(context.Background())
	require.NoError(t, err)
	return person
}

func TestCreateAndRetrieveMediaItem(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	library := createTestLibrary(t, db)
	person := createTestPerson(t, db, library.ID, "Frank Herbert", "Herbert, Frank")

	index := 1.0
	item := &models.MediaItem{
		LibraryID:     library.ID,
		Filepath:      "Herbert/Dune (1)/Dune - Frank Herbert.epub",
		MediaType:     models.MediaTypeBook,
		ContentHash:   "9e107d9d372bb6826bd81d3542a419d6",
		FilesizeBytes: 1234,
		Common: &models.MetadataCommon{
			Title:     "Dune",
			SortTitle: "Dune",
			Publisher: "Chilton Books",
			Tags:      []string{"Science Fiction"},
		},
		Book: &models.MetadataBook{
			ISBN:        "9780441013593",
			SeriesName:  "Dune",
			SeriesIndex: &index,
		},
		People: []*models.MediaPersonRole{
			{PersonID: person.ID, Role: models.RoleAuthor, SortOrder: 0},
		},
	}

	require.NoError(t, svc.CreateMediaItem(ctx, item))
	require.NotZero(t, item.ID)

	got, err := svc.RetrieveMediaItem(ctx, RetrieveMediaItemOptions{
		Filepath:  &item.Filepath,
		LibraryID: &library.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "9e107d9d372bb6826bd81d3542a419d6", got.ContentHash)
	require.NotNil(t, got.Common)
	assert.Equal(t, "Dune", got.Common.Title)
	assert.Equal(t, []string{"Science Fiction"}, got.Common.Tags)
	require.NotNil(t, got.Book)
	assert.Equal(t, "9780441013593", got.Book.ISBN)
	require.Len(t, got.People, 1)
	require.NotNil(t, got.People[0].Person)
	assert.Equal(t, "Frank Herbert", got.People[0].Person.Name)
	assert.Equal(t, models.RoleAuthor, got.People[0].Role)
	// The first credit's sort order is 0 and must round-trip as 0.
	assert.Equal(t, 0, got.People[0].SortOrder)
}

func TestRetrieveMediaItemNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	library := createTestLibrary(t, db)

	filepath := "missing/file.epub"
	_, err := svc.RetrieveMediaItem(context.Background(), RetrieveMediaItemOptions{
		Filepath:  &filepath,
		LibraryID: &library.ID,
	})
	assert.Error(t, err)
}

func TestUpdateMediaItemReplacesMetadataAndPeople(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	library := createTestLibrary(t, db)
	first := createTestPerson(t, db, library.ID, "Frank Herbert", "Herbert, Frank")
	second := createTestPerson(t, db, library.ID, "Brian Herbert", "Herbert, Brian")

	item := &models.MediaItem{
		LibraryID:   library.ID,
		Filepath:    "Herbert/Dune/Dune.epub",
		MediaType:   models.MediaTypeBook,
		ContentHash: "9e107d9d372bb6826bd81d3542a419d6",
		Common:      &models.MetadataCommon{Title: "Dune"},
		People: []*models.MediaPersonRole{
			{PersonID: first.ID, Role: models.RoleAuthor},
		},
	}
	require.NoError(t, svc.CreateMediaItem(ctx, item))

	item.ContentHash = "e4d909c290d0fb1ca068ffaddf22cbd0"
	item.Common = &models.MetadataCommon{Title: "Dune (revised)"}
	item.People = []*models.MediaPersonRole{
		{PersonID: first.ID, Role: models.RoleAuthor, SortOrder: 0},
		{PersonID: second.ID, Role: models.RoleAuthor, SortOrder: 1},
	}

	err := svc.UpdateMediaItem(ctx, item, UpdateMediaItemOptions{
		Columns:        []string{"content_hash"},
		UpdateMetadata: true,
		UpdatePeople:   true,
	})
	require.NoError(t, err)

	got, err := svc.RetrieveMediaItem(ctx, RetrieveMediaItemOptions{ID: &item.ID})
	require.NoError(t, err)

	assert.Equal(t, "e4d909c290d0fb1ca068ffaddf22cbd0", got.ContentHash)
	require.NotNil(t, got.Common)
	assert.Equal(t, "Dune (revised)", got.Common.Title)
	require.Len(t, got.People, 2)
	assert.Equal(t, first.ID, got.People[0].PersonID)
	assert.Equal(t, second.ID, got.People[1].PersonID)
}

func TestDeleteMediaItemRemovesChildRows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	library := createTestLibrary(t, db)
	person := createTestPerson(t, db, library.ID, "Frank Herbert", "Herbert, Frank")

	item := &models.MediaItem{
		LibraryID:   library.ID,
		Filepath:    "Herbert/Dune/Dune.epub",
		MediaType:   models.MediaTypeBook,
		ContentHash: "9e107d9d372bb6826bd81d3542a419d6",
		Common:      &models.MetadataCommon{Title: "Dune"},
		People: []*models.MediaPersonRole{
			{PersonID: person.ID, Role: models.RoleAuthor},
		},
	}
	require.NoError(t, svc.CreateMediaItem(ctx, item))
	require.NoError(t, svc.DeleteMediaItem(ctx, item.ID))

	common, err := db.NewSelect().Model((*models.MetadataCommon)(nil)).Where("item_id = ?", item.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, common)

	roles, err := db.NewSelect().Model((*models.MediaPersonRole)(nil)).Where("item_id = ?", item.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, roles)

	// The person row itself stays; cleanup is a separate concern.
	people, err := db.NewSelect().Model((*models.Person)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, people)
}
