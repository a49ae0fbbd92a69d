package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/office-booking/internal/model"
)

type auditReaderFunc func(limit int) ([]model.AuditLog, error)

func (f auditReaderFunc) Latest(_ context.Context, limit int) ([]model.AuditLog, error) {
	return f(limit)
}

func TestListLogs(t *testing.T) {
	var gotLimit int
	h := NewLogHandler(auditReaderFunc(func(limit int) ([]model.AuditLog, error) {
		gotLimit = limit
		return []model.AuditLog{{
			AuditEntry: model.AuditEntry{ID: "1", ActorID: adminID, Action: model.ActionFloorCreate},
			ActorEmail: "root@example.com",
		}}, nil
	}))
	e := newTestEcho(true)
	e.GET("/api/admin/logs", h.List)

	rec := do(e, http.MethodGet, "/api/admin/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auditPageSize, gotLimit)
	assert.Contains(t, rec.Body.String(), `"actor_email":"root@example.com"`)

	h.Logs = auditReaderFunc(func(int) ([]model.AuditLog, error) { return nil, errors.New("boom") })
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodGet, "/api/admin/logs", "").Code)
}
