package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andy/billable/internal/service"
)

type startTimerRequest struct {
	ProjectID    int64  `json:"projectId" binding:"required"`
	AssignmentID *int64 `json:"assignmentId"`
}

type logEntryRequest struct {
	ProjectID    int64     `json:"projectId" binding:"required"`
	AssignmentID *int64    `json:"assignmentId"`
	Start        time.Time `json:"start" binding:"required"`
	End          time.Time `json:"end" binding:"required"`
	IsBillable   *bool     `json:"isBillable"`
	Description  string    `json:"description"`
	Notes        string    `json:"notes"`
}

type updateEntryRequest struct {
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
	IsBillable  *bool   `json:"isBillable"`
}

// entryQuery reads projectId, assignmentId, from, to, billable and unbilled
func entryQuery(c *gin.Context) (service.EntryQuery, bool) {
	var q service.EntryQuery
	var valid bool
	if q.ProjectID, valid = queryID(c, "projectId"); !valid {
		return q, false
	}
	if q.AssignmentID, valid = queryID(c, "assignmentId"); !valid {
		return q, false
	}
	if q.From, valid = queryTime(c, "from"); !valid {
		return q, false
	}
	if q.To, valid = queryTime(c, "to"); !valid {
		return q, false
	}
	q.BillableOnly = queryBool(c, "billable")
	q.UnbilledOnly = queryBool(c, "unbilled")
	return q, true
}

func (s *Server) startTimer(c *gin.Context) {
	var req startTimerRequest
	if !bind(c, &req) {
		return
	}
	entry, err := s.svc.Tracking.StartTimeTracking(c.Request.Context(), userID(c), req.ProjectID, req.AssignmentID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, entry)
}

func (s *Server) stopTimer(c *gin.Context) {
	entry, err := s.svc.Tracking.StopTimeTracking(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, entry)
}

func (s *Server) activeTimer(c *gin.Context) {
	entry, err := s.svc.Tracking.GetActiveTimeEntry(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, entry)
}

func (s *Server) discardTimer(c *gin.Context) {
	if err := s.svc.Tracking.DiscardActive(c.Request.Context(), userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) listEntries(c *gin.Context) {
	q, valid := entryQuery(c)
	if !valid {
		return
	}
	entries, err := s.svc.Tracking.ListEntries(c.Request.Context(), userID(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, entries)
}

func (s *Server) logEntry(c *gin.Context) {
	var req logEntryRequest
	if !bind(c, &req) {
		return
	}
	entry, err := s.svc.Tracking.LogTimeEntry(c.Request.Context(), userID(c), service.LogEntryInput{
		ProjectID:    req.ProjectID,
		AssignmentID: req.AssignmentID,
		Start:        req.Start,
		End:          req.End,
		IsBillable:   req.IsBillable,
		Description:  req.Description,
		Notes:        req.Notes,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, entry)
}

func (s *Server) updateEntry(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req updateEntryRequest
	if !bind(c, &req) {
		return
	}
	entry, err := s.svc.Tracking.UpdateTimeEntryDetails(c.Request.Context(), userID(c), id, service.EntryDetails{
		Description: req.Description,
		Notes:       req.Notes,
		IsBillable:  req.IsBillable,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, entry)
}

func (s *Server) deleteEntry(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	if err := s.svc.Tracking.DeleteTimeEntry(c.Request.Context(), userID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) timeSummary(c *gin.Context) {
	q, valid := entryQuery(c)
	if !valid {
		return
	}
	sum, err := s.svc.Tracking.GetSummary(c.Request.Context(), userID(c), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, sum)
}
