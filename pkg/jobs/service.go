package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveJobOptions struct {
	ID *int
}

type ListJobsOptions struct {
	Limit              *int
	Offset             *int
	Statuses           []string
	Type               *string
	LibraryID          *int
	ProcessIDToExclude *string

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt

	if job.Data == "" && job.DataParsed != nil {
		// Marshal the data into a JSON string to save into the database.
		data, err := json.Marshal(job.DataParsed)
		if err != nil {
			return errors.WithStack(err)
		}
		job.Data = string(data)
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	if job.Data != "" {
		// Unmarshal the data into a struct to be returned.
		err := job.UnmarshalData()
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	j, _, err := svc.listJobsWithTotal(ctx, opts)
	return j, errors.WithStack(err)
}

func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.listJobsWithTotal(ctx, opts)
}

func (svc *Service) listJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	jobs := []*models.Job{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order("j.created_at ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Statuses != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, s := range opts.Statuses {
				sq = sq.WhereOr("j.status = ?", s)
			}
			return sq
		})
	}
	if opts.Type != nil {
		q = q.Where("j.type = ?", *opts.Type)
	}
	if opts.LibraryID != nil {
		q = q.Where("j.library_id = ?", *opts.LibraryID)
	}
	if opts.ProcessIDToExclude != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("j.process_id IS NULL").
				WhereOr("j.process_id != ?", *opts.ProcessIDToExclude)
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range jobs {
		err := job.UnmarshalData()
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return jobs, total, nil
}

// HasActiveJob checks if a job of the given type is pending, running, or
// waiting on a cancellation, optionally scoped to one library.
func (svc *Service) HasActiveJob(ctx context.Context, jobType string, libraryID *int) (bool, error) {
	q := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("type = ?", jobType).
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("status = ?", models.JobStatusPending).
				WhereOr("status = ?", models.JobStatusInProgress).
				WhereOr("status = ?", models.JobStatusCancelRequested)
		})

	if libraryID != nil {
		q = q.Where("library_id = ?", *libraryID)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	now := time.Now()
	job.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Job")
		}
		return errors.WithStack(err)
	}

	return nil
}

// RequestCancel asks for the job to stop. A pending job is cancelled outright
// since no process has claimed it; a running job is flagged and the owning
// worker winds it down at the next safe point. Both updates are conditional on
// the current status, so a worker claiming the job concurrently wins or loses
// cleanly instead of racing.
func (svc *Service) RequestCancel(ctx context.Context, jobID int) (*models.Job, error) {
	res, err := svc.db.
		NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusCancelled).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", jobID).
		Where("status = ?", models.JobStatusPending).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		res, err = svc.db.
			NewUpdate().
			Model((*models.Job)(nil)).
			Set("status = ?", models.JobStatusCancelRequested).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", jobID).
			Where("status = ?", models.JobStatusInProgress).
			Exec(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			job, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &jobID})
			if err != nil {
				return nil, err
			}
			return nil, errcodes.Conflict("Job is already " + job.Status + ".")
		}
	}

	return svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &jobID})
}
