package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending         = "pending"
	JobStatusInProgress      = "in_progress"
	JobStatusCancelRequested = "cancel_requested"
	JobStatusCancelled       = "cancelled"
	JobStatusCompleted       = "completed"
	JobStatusFailed          = "failed"
)

const (
	JobTypeImport = "import"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	ProcessID  *string     `json:"process_id,omitempty"`
	LibraryID  *int        `json:"library_id,omitempty"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeImport:
		job.DataParsed = &JobImportData{}
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// JobImportData is the payload for an import job: the catalog database to
// read and the root used to resolve its relative format paths, both validated
// by the host before the job was accepted.
type JobImportData struct {
	ForeignDBPath   string `json:"foreign_db_path"`
	LibraryRootPath string `json:"library_root_path"`
}
