package people

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/models"
	"github.com/toshokanbooks/toshokan/pkg/sortname"
	"github.com/uptrace/bun"
)

type RetrievePersonOptions struct {
	ID        *int
	SortName  *string
	LibraryID *int
}

type ListPeopleOptions struct {
	Limit     *int
	Offset    *int
	LibraryID *int
	Search    *string

	includeTotal bool
}

type UpdatePersonOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreatePerson(ctx context.Context, person *models.Person) error {
	now := time.Now()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = person.CreatedAt

	if person.SortName == "" {
		_, person.SortName = sortname.Normalize(person.Name)
	}

	_, err := svc.db.
		NewInsert().
		Model(person).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrievePerson(ctx context.Context, opts RetrievePersonOptions) (*models.Person, error) {
	person := &models.Person{}

	q := svc.db.
		NewSelect().
		Model(person)

	if opts.ID != nil {
		q = q.Where("p.id = ?", *opts.ID)
	}
	if opts.SortName != nil && opts.LibraryID != nil {
		// Case-insensitive match; this is the dedup key for imports.
		q = q.Where("LOWER(p.sort_name) = LOWER(?) AND p.library_id = ?", *opts.SortName, *opts.LibraryID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Person")
		}
		return nil, errors.WithStack(err)
	}

	return person, nil
}

// FindOrCreatePerson finds an existing person by sort name (case-insensitive)
// or creates a new one from the raw name.
func (svc *Service) FindOrCreatePerson(ctx context.Context, rawName string, libraryID int) (*models.Person, error) {
	name, sortName := sortname.Normalize(rawName)

	person, err := svc.RetrievePerson(ctx, RetrievePersonOptions{
		SortName:  &sortName,
		LibraryID: &libraryID,
	})
	if err == nil {
		return person, nil
	}
	if !errors.Is(err, errcodes.NotFound("Person")) {
		return nil, err
	}

	person = &models.Person{
		LibraryID: libraryID,
		Name:      name,
		SortName:  sortName,
	}
	err = svc.CreatePerson(ctx, person)
	if err != nil {
		return nil, err
	}
	return person, nil
}

func (svc *Service) ListPeople(ctx context.Context, opts ListPeopleOptions) ([]*models.Person, error) {
	p, _, err := svc.listPeopleWithTotal(ctx, opts)
	return p, errors.WithStack(err)
}

func (svc *Service) ListPeopleWithTotal(ctx context.Context, opts ListPeopleOptions) ([]*models.Person, int, error) {
	opts.includeTotal = true
	return svc.listPeopleWithTotal(ctx, opts)
}

func (svc *Service) listPeopleWithTotal(ctx context.Context, opts ListPeopleOptions) ([]*models.Person, int, error) {
	var people []*models.Person
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&people).
		Order("p.sort_name ASC")

	if opts.LibraryID != nil {
		q = q.Where("p.library_id = ?", *opts.LibraryID)
	}
	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + strings.TrimSpace(*opts.Search) + "%"
		q = q.Where("(p.name LIKE ? OR p.sort_name LIKE ?)", pattern, pattern)
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

	return people, total, nil
}

func (svc *Service) UpdatePerson(ctx context.Context, person *models.Person, opts UpdatePersonOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	person.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(person).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Person")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeletePerson deletes a person and all their role associations.
func (svc *Service) DeletePerson(ctx context.Context, personID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.MediaPersonRole)(nil)).
			Where("person_id = ?", personID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Person)(nil)).
			Where("id = ?", personID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// GetCreditedItems returns all media items this person is credited on.
func (svc *Service) GetCreditedItems(ctx context.Context, personID int) ([]*models.MediaItem, error) {
	var items []*models.MediaItem

	err := svc.db.NewSelect().
		Model(&items).
		Distinct().
		Relation("Common").
		Join("INNER JOIN media_person_roles mpr ON mpr.item_id = mi.id").
		Where("mpr.person_id = ?", personID).
		Order("mi.filepath ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return items, nil
}

// GetCreditedItemCount returns the count of media items this person is credited on.
func (svc *Service) GetCreditedItemCount(ctx context.Context, personID int) (int, error) {
	var count int
	err := svc.db.NewSelect().
		Model((*models.MediaPersonRole)(nil)).
		ColumnExpr("count(DISTINCT item_id)").
		Where("person_id = ?", personID).
		Scan(ctx, &count)
	return count, errors.WithStack(err)
}

// MergePeople merges sourcePerson into targetPerson (moves all role rows,
// deletes source). Role rows that would collide with an existing
// (item, person, role) triple on the target are dropped instead of moved.
func (svc *Service) MergePeople(ctx context.Context, targetID, sourceID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.MediaPersonRole)(nil)).
			Where("person_id = ?", sourceID).
			Where(`EXISTS (
				SELECT 1 FROM media_person_roles existing
				WHERE existing.person_id = ?
				AND existing.item_id = mpr.item_id
				AND existing.role = mpr.role
			)`, targetID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.MediaPersonRole)(nil)).
			Set("person_id = ?", targetID).
			Where("person_id = ?", sourceID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Person)(nil)).
			Where("id = ?", sourceID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// CleanupOrphanedPeople deletes people with no remaining role associations.
func (svc *Service) CleanupOrphanedPeople(ctx context.Context) (int, error) {
	result, err := svc.db.NewDelete().
		Model((*models.Person)(nil)).
		Where("id NOT IN (SELECT DISTINCT person_id FROM media_person_roles)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
