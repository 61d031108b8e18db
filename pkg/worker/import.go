package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/toshokanbooks/toshokan/pkg/importer"
	"github.com/toshokanbooks/toshokan/pkg/joblogs"
	"github.com/toshokanbooks/toshokan/pkg/jobs"
	"github.com/toshokanbooks/toshokan/pkg/libraries"
	"github.com/toshokanbooks/toshokan/pkg/models"
)

// ProcessImportJob runs one import job to completion. It persists progress as
// the run advances, watches for a cancellation request flagged on the job
// row, and records the outcome in the job logs.
func (w *Worker) ProcessImportJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)
	jobLog := w.jobLogService.NewJobLogger(ctx, job.ID, log)

	if err := job.UnmarshalData(); err != nil {
		return err
	}
	data, ok := job.DataParsed.(*models.JobImportData)
	if !ok {
		return errors.New("import job has no import data")
	}
	if job.LibraryID == nil {
		return errors.New("import job has no library id")
	}

	// Make sure the library still exists before doing any work.
	library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{
		ID: job.LibraryID,
	})
	if err != nil {
		return err
	}

	// A cancel that raced the claim is honored before any work happens.
	if job.Status == models.JobStatusCancelRequested {
		return w.markCancelled(ctx, job, jobLog, nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Watch the job row for a cancellation request while the run is going.
	monitorDone := make(chan struct{})
	go w.watchForCancel(runCtx, job.ID, cancel, monitorDone)

	jobLog.Info("import started", logger.Data{
		"foreign_db_path":   data.ForeignDBPath,
		"library_root_path": data.LibraryRootPath,
		"library":           library.Name,
	})

	result, err := w.orchestrator.Run(runCtx, importer.Options{
		ForeignDBPath:   data.ForeignDBPath,
		LibraryRootPath: data.LibraryRootPath,
		LibraryID:       *job.LibraryID,
		JobLog:          jobLog,
		Progress: func(p importer.Progress) {
			w.persistProgress(ctx, job, p)
		},
	})

	cancel()
	<-monitorDone

	if err != nil {
		jobLog.Error("import failed", err, nil)
		return err
	}

	if result.Cancelled {
		return w.markCancelled(ctx, job, jobLog, result)
	}

	job.Progress = 100
	if err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"progress"}}); err != nil {
		return err
	}

	jobLog.Info("import finished", logger.Data{
		"total":             result.Total,
		"imported":          result.Imported,
		"updated":           result.Updated,
		"skipped_unchanged": result.SkippedUnchanged,
		"skipped_failed":    result.SkippedFailed,
	})

	return nil
}

// watchForCancel polls the job row and cancels the run when a cancellation
// has been requested. It exits when the run context ends.
func (w *Worker) watchForCancel(ctx context.Context, jobID int, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)

	interval := w.config.WorkerCancelPollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &jobID})
			if err != nil {
				continue
			}
			if job.Status == models.JobStatusCancelRequested {
				cancel()
				return
			}
		}
	}
}

func (w *Worker) persistProgress(ctx context.Context, job *models.Job, p importer.Progress) {
	if p.Total == 0 {
		return
	}
	pct := p.Processed * 100 / p.Total
	if pct == job.Progress {
		return
	}
	job.Progress = pct

	err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"progress"}})
	if err != nil {
		logger.FromContext(ctx).Err(err).Error("update job progress error")
	}
}

func (w *Worker) markCancelled(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger, result *importer.Result) error {
	job.Status = models.JobStatusCancelled
	if err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"status"}}); err != nil {
		return err
	}

	data := logger.Data{}
	if result != nil {
		data["imported"] = result.Imported
		data["updated"] = result.Updated
		data["total"] = result.Total
	}
	jobLog.Info("import cancelled", data)

	return nil
}
