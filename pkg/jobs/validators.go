package jobs

type CreateImportJobPayload struct {
	ForeignDBPath   string `json:"foreign_db_path" mod:"trim" validate:"required"`
	LibraryRootPath string `json:"library_root_path" mod:"trim" validate:"required"`
	LibraryID       int    `json:"library_id" validate:"required,min=1"`
}

type ListJobsQuery struct {
	Limit     int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status    []string `query:"status" json:"status,omitempty" validate:"dive,oneof=pending in_progress cancel_requested cancelled completed failed"`
	Type      *string  `query:"type" json:"type,omitempty" validate:"omitempty,oneof=import"`
	LibraryID *int     `query:"library_id" json:"library_id,omitempty" validate:"omitempty,min=1"`
}
