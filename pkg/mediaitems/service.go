package mediaitems

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveMediaItemOptions struct {
	ID        *int
	Filepath  *string
	LibraryID *int
}

type ListMediaItemsOptions struct {
	Limit     *int
	Offset    *int
	LibraryID *int
	MediaType *string

	includeTotal bool
}

type UpdateMediaItemOptions struct {
	Columns        []string
	UpdateMetadata bool
	UpdatePeople   bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateMediaItem inserts the item along with its metadata and people rows in
// a single transaction. Either everything lands or nothing does.
func (svc *Service) CreateMediaItem(ctx context.Context, item *models.MediaItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(item).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if item.Common != nil {
			item.Common.ItemID = item.ID
			_, err := tx.
				NewInsert().
				Model(item.Common).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if item.Book != nil {
			item.Book.ItemID = item.ID
			_, err := tx.
				NewInsert().
				Model(item.Book).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		for i, role := range item.People {
			role.ItemID = item.ID
			if role.SortOrder == 0 {
				role.SortOrder = i
			}
		}

		if len(item.People) > 0 {
			_, err := tx.
				NewInsert().
				Model(&item.People).
				Returning("*").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveMediaItem(ctx context.Context, opts RetrieveMediaItemOptions) (*models.MediaItem, error) {
	item := &models.MediaItem{}

	q := svc.db.
		NewSelect().
		Model(item).
		Relation("Common").
		Relation("Book").
		Relation("People", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("sort_order ASC")
		}).
		Relation("People.Person")

	if opts.ID != nil {
		q = q.Where("mi.id = ?", *opts.ID)
	}
	if opts.Filepath != nil {
		q = q.Where("mi.filepath = ?", *opts.Filepath)
	}
	if opts.LibraryID != nil {
		q = q.Where("mi.library_id = ?", *opts.LibraryID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Media item")
		}
		return nil, errors.WithStack(err)
	}

	return item, nil
}

func (svc *Service) ListMediaItems(ctx context.Context, opts ListMediaItemsOptions) ([]*models.MediaItem, error) {
	items, _, err := svc.listMediaItemsWithTotal(ctx, opts)
	return items, errors.WithStack(err)
}

func (svc *Service) ListMediaItemsWithTotal(ctx context.Context, opts ListMediaItemsOptions) ([]*models.MediaItem, int, error) {
	opts.includeTotal = true
	return svc.listMediaItemsWithTotal(ctx, opts)
}

func (svc *Service) listMediaItemsWithTotal(ctx context.Context, opts ListMediaItemsOptions) ([]*models.MediaItem, int, error) {
	items := []*models.MediaItem{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&items).
		Relation("Common").
		Relation("Book").
		Relation("People", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("sort_order ASC")
		}).
		Relation("People.Person").
		Order("mi.id ASC")

	if opts.LibraryID != nil {
		q = q.Where("mi.library_id = ?", *opts.LibraryID)
	}
	if opts.MediaType != nil {
		q = q.Where("mi.media_type = ?", *opts.MediaType)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return items, total, nil
}

// UpdateMediaItem updates the item row and, when requested, replaces its
// metadata and people rows. Everything happens in one transaction.
func (svc *Service) UpdateMediaItem(ctx context.Context, item *models.MediaItem, opts UpdateMediaItemOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateMetadata && !opts.UpdatePeople {
		return nil
	}

	item.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(item).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if opts.UpdateMetadata {
			// Replace metadata rows wholesale. Partial metadata updates are
			// not worth the bookkeeping for an import pipeline.
			_, err := tx.
				NewDelete().
				Model((*models.MetadataCommon)(nil)).
				Where("item_id = ?", item.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			_, err = tx.
				NewDelete().
				Model((*models.MetadataBook)(nil)).
				Where("item_id = ?", item.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			if item.Common != nil {
				item.Common.ItemID = item.ID
				_, err := tx.
					NewInsert().
					Model(item.Common).
					Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}
			if item.Book != nil {
				item.Book.ItemID = item.ID
				_, err := tx.
					NewInsert().
					Model(item.Book).
					Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}

		if opts.UpdatePeople {
			_, err := tx.
				NewDelete().
				Model((*models.MediaPersonRole)(nil)).
				Where("item_id = ?", item.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			for i, role := range item.People {
				role.ItemID = item.ID
				if role.SortOrder == 0 {
					role.SortOrder = i
				}
			}

			if len(item.People) > 0 {
				_, err := tx.
					NewInsert().
					Model(&item.People).
					Returning("*").
					Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteMediaItem deletes the item along with its metadata and role rows.
func (svc *Service) DeleteMediaItem(ctx context.Context, itemID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.MediaPersonRole)(nil)).
			Where("item_id = ?", itemID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.MetadataBook)(nil)).
			Where("item_id = ?", itemID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.MetadataCommon)(nil)).
			Where("item_id = ?", itemID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.MediaItem)(nil)).
			Where("id = ?", itemID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
