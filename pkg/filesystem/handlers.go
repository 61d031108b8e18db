package filesystem

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
)

type handler struct {
	filesystemService *Service
}

func (h *handler) browse(c echo.Context) error {
	params := BrowseQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	resp, err := h.filesystemService.Browse(BrowseOptions(params))
	if err != nil {
		if os.IsNotExist(err) {
			return errcodes.NotFound("Directory")
		}
		if os.IsPermission(err) {
			return errcodes.Forbidden("Reading this directory")
		}
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
