package mediaitems

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/models"
)

type handler struct {
	itemService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Media item")
	}

	item, err := h.itemService.RetrieveMediaItem(ctx, RetrieveMediaItemOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, item))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListMediaItemsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	items, total, err := h.itemService.ListMediaItemsWithTotal(ctx, ListMediaItemsOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		LibraryID: params.LibraryID,
		MediaType: params.MediaType,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Items []*models.MediaItem `json:"items"`
		Total int                 `json:"total"`
	}{items, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) deleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Media item")
	}

	if _, err := h.itemService.RetrieveMediaItem(ctx, RetrieveMediaItemOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	err = h.itemService.DeleteMediaItem(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
