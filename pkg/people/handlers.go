package people

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshokanbooks/toshokan/pkg/errcodes"
	"github.com/toshokanbooks/toshokan/pkg/models"
	"github.com/toshokanbooks/toshokan/pkg/sortname"
)

type handler struct {
	personService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Person")
	}

	person, err := h.personService.RetrievePerson(ctx, RetrievePersonOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	itemCount, err := h.personService.GetCreditedItemCount(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	response := struct {
		*models.Person
		ItemCount int `json:"item_count"`
	}{person, itemCount}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListPeopleQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	people, total, err := h.personService.ListPeopleWithTotal(ctx, ListPeopleOptions{
		Limit:     &params.Limit,
		Offset:    &params.Offset,
		LibraryID: params.LibraryID,
		Search:    params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		People []*models.Person `json:"people"`
		Total  int              `json:"total"`
	}{people, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Person")
	}

	params := UpdatePersonPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the person.
	person, err := h.personService.RetrievePerson(ctx, RetrievePersonOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdatePersonOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != person.Name {
		person.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.SortName != nil && *params.SortName != person.SortName {
		if *params.SortName == "" {
			// Empty string means regenerate from the name.
			_, person.SortName = sortname.Normalize(person.Name)
		} else {
			person.SortName = *params.SortName
		}
		opts.Columns = append(opts.Columns, "sort_name")
	}

	// Update the model.
	err = h.personService.UpdatePerson(ctx, person, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	person, err = h.personService.RetrievePerson(ctx, RetrievePersonOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, person))
}

func (h *handler) creditedItems(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Person")
	}

	if _, err := h.personService.RetrievePerson(ctx, RetrievePersonOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	items, err := h.personService.GetCreditedItems(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, items))
}

func (h *handler) merge(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Person")
	}

	params := MergePeoplePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.personService.RetrievePerson(ctx, RetrievePersonOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	// Merge source person into target (this) person.
	err = h.personService.MergePeople(ctx, id, params.SourceID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) deletePerson(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Person")
	}

	if _, err := h.personService.RetrievePerson(ctx, RetrievePersonOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	err = h.personService.DeletePerson(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
