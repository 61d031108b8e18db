package mediaitems

type ListMediaItemsQuery struct {
	Limit     int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset    int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID *int    `query:"library_id" json:"library_id,omitempty" validate:"omitempty,min=1"`
	MediaType *string `query:"media_type" json:"media_type,omitempty" validate:"omitempty,oneof=book audiobook"`
}
