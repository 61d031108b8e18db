package mediaitems

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	itemService := NewService(db)

	h := &handler{
		itemService: itemService,
	}

	e.GET("/items", h.list)
	e.GET("/items/:id", h.retrieve)
	e.DELETE("/items/:id", h.deleteItem)
}
