package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

type createAssignmentRequest struct {
	ProjectID      int64           `json:"projectId" binding:"required"`
	TaskName       string          `json:"taskName"`
	Description    string          `json:"description"`
	StartDate      *time.Time      `json:"startDate"`
	DueDate        *time.Time      `json:"dueDate"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	Priority       int             `json:"priority"`
}

type progressRequest struct {
	ActualHours decimal.Decimal `json:"actualHours"`
}

func (s *Server) listAssignments(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	list, err := s.svc.Assignments.ListByProject(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, list)
}

func (s *Server) createAssignment(c *gin.Context) {
	var req createAssignmentRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.svc.Assignments.Create(c.Request.Context(), userID(c), service.AssignmentInput{
		ProjectID:      req.ProjectID,
		TaskName:       req.TaskName,
		Description:    req.Description,
		StartDate:      req.StartDate,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Priority:       req.Priority,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, a)
}

func (s *Server) getAssignment(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	a, err := s.svc.Assignments.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, a)
}

func (s *Server) deleteAssignment(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	if err := s.svc.Assignments.Delete(c.Request.Context(), userID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) assignmentTransition(fn func(ctx context.Context, userID, assignmentID int64) (*domain.Assignment, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		a, err := fn(c.Request.Context(), userID(c), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		ok(c, a)
	}
}

func (s *Server) extendAssignmentDeadline(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req deadlineRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.svc.Assignments.ExtendDeadline(c.Request.Context(), userID(c), id, req.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, a)
}

func (s *Server) updateAssignmentProgress(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req progressRequest
	if !bind(c, &req) {
		return
	}
	a, err := s.svc.Assignments.UpdateProgress(c.Request.Context(), userID(c), id, req.ActualHours)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, a)
}

func (s *Server) assignmentProgress(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	progress, err := s.svc.Assignments.GetProgress(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, progress)
}
