package jobs

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/models"
)

type handler struct {
	jobService *Service
}

func (h *handler) createImport(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateImportJobPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// One import at a time per library.
	hasActive, err := h.jobService.HasActiveJob(ctx, models.JobTypeImport, &params.LibraryID)
	if err != nil {
		return errors.WithStack(err)
	}
	if hasActive {
		return errcodes.Conflict("An import job is already running or pending for this library.")
	}

	job := &models.Job{
		Type:   models.JobTypeImport,
		Status: models.JobStatusPending,
		DataParsed: &models.JobImportData{
			ForeignDBPath:   params.ForeignDBPath,
			LibraryRootPath: params.LibraryRootPath,
		},
		LibraryID: &params.LibraryID,
	}

	err = h.jobService.CreateJob(ctx, job)
	if err != nil {
		return errors.WithStack(err)
	}

	job, err = h.jobService.RetrieveJob(ctx, RetrieveJobOptions{
		ID: &job.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	job, err := h.jobService.RetrieveJob(ctx, RetrieveJobOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListJobsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	jobs, total, err := h.jobService.ListJobsWithTotal(ctx, ListJobsOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		Statuses:  params.Status,
		Type:      params.Type,
		LibraryID: params.LibraryID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Jobs  []*models.Job `json:"jobs"`
		Total int           `json:"total"`
	}{jobs, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	if _, err := h.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	job, err := h.jobService.RequestCancel(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}
