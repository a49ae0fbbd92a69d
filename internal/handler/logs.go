package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/model"
)

const auditPageSize = 100

// AuditReader is implemented by *repository.AuditRepo.
type AuditReader interface {
	Latest(ctx context.Context, limit int) ([]model.AuditLog, error)
}

type LogHandler struct {
	Logs AuditReader
}

func NewLogHandler(logs AuditReader) *LogHandler {
	return &LogHandler{Logs: logs}
}

// GET /api/admin/logs returns the newest audit entries first.
func (h *LogHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Logs.Latest(ctx, auditPageSize)
	if err != nil {
		return apperror.Internal("Failed to fetch logs", err)
	}
	return c.JSON(http.StatusOK, out)
}
