package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andy/billable/internal/domain"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	user, err := s.svc.Users.Register(c.Request.Context(), req.Username, req.Email, req.FullName, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	created(c, user)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	user, err := s.svc.Users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	token, expires, err := s.issuer.Issue(user.ID, user.Username)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, tokenResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) me(c *gin.Context) {
	user, err := s.svc.Users.Get(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ok(c, user)
}
