package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarhamed888/paths-dashboard/internal/application/task"
	"github.com/omarhamed888/paths-dashboard/internal/domain"
	jwtinfra "github.com/omarhamed888/paths-dashboard/internal/infrastructure/jwt"
	"github.com/omarhamed888/paths-dashboard/internal/transport/http/middleware"
)

type stubTaskService struct {
	task.Service
	detail *task.TaskDetail
}

func (s *stubTaskService) Detail(ctx context.Context, taskID string) (*task.TaskDetail, error) {
	return s.detail, nil
}

func detailFixture() *task.TaskDetail {
	return &task.TaskDetail{
		Task: domain.Task{TaskID: "t1", Title: "Weekly report"},
		Assignments: []task.AssignmentDetail{
			{Assignment: domain.Assignment{AssignmentID: "a1", TaskID: "t1", InternID: "i1"}, InternName: "Alice"},
			{Assignment: domain.Assignment{AssignmentID: "a2", TaskID: "t1", InternID: "i2"}, InternName: "Bob"},
		},
	}
}

func detailRequest(claims *jwtinfra.Claims) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/tasks/t1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "t1")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.ClaimsKey, claims)
	return req.WithContext(ctx)
}

func TestTaskDetail_InternSeesOnlyOwnRow(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{detail: detailFixture()})
	rec := httptest.NewRecorder()

	h.Detail(rec, detailRequest(&jwtinfra.Claims{UserID: "i1", Role: domain.RoleIntern}))

	require.Equal(t, http.StatusOK, rec.Code)
	var got task.TaskDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Assignments, 1)
	assert.Equal(t, "i1", got.Assignments[0].Assignment.InternID)
}

func TestTaskDetail_AdminSeesAllRows(t *testing.T) {
	h := NewTaskHandler(&stubTaskService{detail: detailFixture()})
	rec := httptest.NewRecorder()

	h.Detail(rec, detailRequest(&jwtinfra.Claims{UserID: "admin-1", Role: domain.RoleAdmin}))

	require.Equal(t, http.StatusOK, rec.Code)
	var got task.TaskDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Assignments, 2)
}
