package joblogs

import (
	"github.com/labstack/echo/v4"
	"github.com/toshokanbooks/toshokan/pkg/jobs"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	jobLogService := NewService(db)
	jobService := jobs.NewService(db)

	h := &handler{
		jobLogService: jobLogService,
		jobService:    jobService,
	}

	e.GET("/jobs/:id/logs", h.listLogs)
}
