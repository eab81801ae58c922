package api

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/service"
)

type clientRequest struct {
	Name       *string          `json:"name"`
	Email      *string          `json:"email"`
	Phone      *string          `json:"phone"`
	Company    *string          `json:"company"`
	Address    *string          `json:"address"`
	TaxNumber  *string          `json:"taxNumber"`
	HourlyRate *decimal.Decimal `json:"hourlyRate"`
	Notes      *string          `json:"notes"`
}

func (r clientRequest) input() service.ClientInput {
	return service.ClientInput{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Company:    r.Company,
		Address:    r.Address,
		TaxNumber:  r.TaxNumber,
		HourlyRate: r.HourlyRate,
		Notes:      r.Notes,
	}
}

func (s *Server) listClients(c *gin.Context) {
	clients, err := s.svc.Clients.List(c.Request.Context(), userID(c), queryBool(c, "includeArchived"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, clients)
}

func (s *Server) createClient(c *gin.Context) {
	var req clientRequest
	if !bind(c, &req) {
		return
	}
	client, err := s.svc.Clients.Create(c.Request.Context(), userID(c), req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, client)
}

func (s *Server) getClient(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	client, err := s.svc.Clients.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, client)
}

func (s *Server) updateClient(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var req clientRequest
	if !bind(c, &req) {
		return
	}
	client, err := s.svc.Clients.Update(c.Request.Context(), userID(c), id, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, client)
}

func (s *Server) deleteClient(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	if err := s.svc.Clients.Delete(c.Request.Context(), userID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) archiveClient(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	client, err := s.svc.Clients.Archive(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, client)
}

func (s *Server) unarchiveClient(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	client, err := s.svc.Clients.Unarchive(c.Request.Context(), userID(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, client)
}
