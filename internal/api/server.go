// Package api exposes the services over JSON/HTTP with gin.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andy/billable/internal/auth"
	"github.com/andy/billable/internal/service"
)

// Services bundles everything the handlers call
type Services struct {
	Users       service.UserService
	Clients     service.ClientService
	Projects    service.ProjectService
	Assignments service.AssignmentService
	Tracking    service.TimeTrackingService
	Invoices    service.InvoiceService
	Reports     service.ReportService
}

// Server holds the handler dependencies
type Server struct {
	svc    Services
	issuer *auth.Issuer
	logger *slog.Logger
}

// NewServer creates a Server. logger may be nil.
func NewServer(svc Services, issuer *auth.Issuer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{svc: svc, issuer: issuer, logger: logger}
}

// Router builds the gin engine with every route mounted
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(s.logger), recovery(s.logger))
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found", nil)
	})

	r.GET("/healthz", func(c *gin.Context) { ok(c, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	authed := api.Group("")
	authed.Use(jwtAuth(s.issuer))
	authed.GET("/me", s.me)

	clients := authed.Group("/clients")
	clients.GET("", s.listClients)
	clients.POST("", s.createClient)
	clients.GET("/:id", s.getClient)
	clients.PUT("/:id", s.updateClient)
	clients.DELETE("/:id", s.deleteClient)
	clients.POST("/:id/archive", s.archiveClient)
	clients.POST("/:id/unarchive", s.unarchiveClient)

	projects := authed.Group("/projects")
	projects.GET("", s.listProjects)
	projects.POST("", s.createProject)
	projects.GET("/overdue", s.listOverdueProjects)
	projects.GET("/:id", s.getProject)
	projects.PUT("/:id", s.updateProject)
	projects.DELETE("/:id", s.deleteProject)
	projects.POST("/:id/start", s.projectTransition(s.svc.Projects.Start))
	projects.POST("/:id/pause", s.projectTransition(s.svc.Projects.Pause))
	projects.POST("/:id/complete", s.projectTransition(s.svc.Projects.Complete))
	projects.POST("/:id/cancel", s.projectTransition(s.svc.Projects.Cancel))
	projects.PUT("/:id/deadline", s.extendProjectDeadline)
	projects.PUT("/:id/budget", s.updateProjectBudget)
	projects.PUT("/:id/costs", s.updateProjectCosts)
	projects.GET("/:id/progress", s.projectProgress)
	projects.GET("/:id/profitability", s.projectProfitability)
	projects.GET("/:id/summary", s.projectSummary)
	projects.GET("/:id/assignments", s.listAssignments)

	assignments := authed.Group("/assignments")
	assignments.POST("", s.createAssignment)
	assignments.GET("/:id", s.getAssignment)
	assignments.DELETE("/:id", s.deleteAssignment)
	assignments.POST("/:id/start", s.assignmentTransition(s.svc.Assignments.Start))
	assignments.POST("/:id/pause", s.assignmentTransition(s.svc.Assignments.Pause))
	assignments.POST("/:id/complete", s.assignmentTransition(s.svc.Assignments.Complete))
	assignments.POST("/:id/cancel", s.assignmentTransition(s.svc.Assignments.Cancel))
	assignments.PUT("/:id/deadline", s.extendAssignmentDeadline)
	assignments.PUT("/:id/progress", s.updateAssignmentProgress)
	assignments.GET("/:id/progress", s.assignmentProgress)

	tracking := authed.Group("/time")
	tracking.POST("/start", s.startTimer)
	tracking.POST("/stop", s.stopTimer)
	tracking.GET("/active", s.activeTimer)
	tracking.DELETE("/active", s.discardTimer)
	tracking.GET("/entries", s.listEntries)
	tracking.POST("/entries", s.logEntry)
	tracking.PATCH("/entries/:id", s.updateEntry)
	tracking.DELETE("/entries/:id", s.deleteEntry)
	tracking.GET("/summary", s.timeSummary)

	invoices := authed.Group("/invoices")
	invoices.GET("", s.listInvoices)
	invoices.POST("", s.createInvoice)
	invoices.POST("/from-entries", s.createInvoiceFromEntries)
	invoices.POST("/numbers", s.generateInvoiceNumber)
	invoices.GET("/outstanding", s.outstandingAmount)
	invoices.GET("/paid", s.paidAmount)
	invoices.GET("/:id", s.getInvoice)
	invoices.DELETE("/:id", s.deleteInvoice)
	invoices.GET("/:id/total", s.invoiceTotal)
	invoices.POST("/:id/items", s.addInvoiceItem)
	invoices.PUT("/:id/items/:itemId", s.updateInvoiceItem)
	invoices.DELETE("/:id/items/:itemId", s.removeInvoiceItem)
	invoices.POST("/:id/discount", s.applyDiscount)
	invoices.POST("/:id/send", s.sendInvoice)
	invoices.POST("/:id/pay", s.payInvoice)
	invoices.POST("/:id/payments", s.recordPayment)
	invoices.POST("/:id/cancel", s.cancelInvoice)
	invoices.PUT("/:id/due-date", s.updateDueDate)

	authed.GET("/reports/dashboard", s.dashboard)

	return r
}

// HTTPServer wraps handler in an http.Server with the given timeouts
func HTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
