package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

type createProjectRequest struct {
	ClientID       int64           `json:"clientId" binding:"required"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	StartDate      *time.Time      `json:"startDate"`
	EndDate        *time.Time      `json:"endDate"`
	Budget         decimal.Decimal `json:"budget"`
	HourlyRate     decimal.Decimal `json:"hourlyRate"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	Priority       int             `json:"priority"`
}

type updateProjectRequest struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	HourlyRate     *decimal.Decimal `json:"hourlyRate"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours"`
	Priority       *int             `json:"priority"`
}

type deadlineRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) listProjects(c *gin.Context) {
	clientID, valid := queryID(c, "clientId")
	if !valid {
		return
	}
	q := service.ProjectQuery{ClientID: clientID}
	if raw := c.Query("status"); raw != "" {
		status := domain.ProjectStatus(raw)
		q.Status = &status
	}
	projects, err := s.svc.Projects.List(c.Request.Context(), userID(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, projects)
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if !bind(c, &req) {
		return
	}
	project, err := s.svc.Projects.Create(c.Request.Context(), userID(c), service.ProjectInput{
		ClientID:       req.ClientID,
		Name:           req.Name,
		Description:    req.Description,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Budget:         req.Budget,
		HourlyRate:     req.HourlyRate,
		EstimatedHours: req.EstimatedHours,
		Priority:       req.Priority,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, project)
}

func (s *Server) listOverdueProjects(c *gin.Context) {
	projects, err := s.svc.Projects.ListOverdue(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, projects)
}

func (s *Server) getProject(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	project, err := s.svc.Projects.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, project)
}

func (s *Server) updateProject(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req updateProjectRequest
	if !bind(c, &req) {
		return
	}
	project, err := s.svc.Projects.Update(c.Request.Context(), userID(c), id, service.ProjectDetails{
		Name:           req.Name,
		Description:    req.Description,
		HourlyRate:     req.HourlyRate,
		EstimatedHours: req.EstimatedHours,
		Priority:       req.Priority,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, project)
}

func (s *Server) deleteProject(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	if err := s.svc.Projects.Delete(c.Request.Context(), userID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) projectTransition(fn func(ctx context.Context, userID, projectID int64) (*domain.Project, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		project, err := fn(c.Request.Context(), userID(c), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		ok(c, project)
	}
}

func (s *Server) extendProjectDeadline(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req deadlineRequest
	if !bind(c, &req) {
		return
	}
	project, err := s.svc.Projects.ExtendDeadline(c.Request.Context(), userID(c), id, req.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, project)
}

func (s *Server) updateProjectBudget(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	project, err := s.svc.Projects.UpdateBudget(c.Request.Context(), userID(c), id, req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, project)
}

func (s *Server) updateProjectCosts(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	project, err := s.svc.Projects.UpdateCosts(c.Request.Context(), userID(c), id, req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, project)
}

func (s *Server) projectProgress(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	progress, err := s.svc.Projects.GetProgress(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, progress)
}

func (s *Server) projectProfitability(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	prof, err := s.svc.Projects.CalculateProfitability(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, prof)
}

func (s *Server) projectSummary(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	q, valid := entryQuery(c)
	if !valid {
		return
	}
	q.ProjectID = &id
	sum, err := s.svc.Tracking.GetSummary(c.Request.Context(), userID(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, sum)
}
