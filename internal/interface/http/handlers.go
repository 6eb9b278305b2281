package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placement-hub/placement-portal/internal/application/command"
	"github.com/placement-hub/placement-portal/internal/application/query"
	"github.com/placement-hub/placement-portal/internal/domain/application"
	"github.com/placement-hub/placement-portal/internal/domain/interview"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/student"
	"github.com/placement-hub/placement-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports dependency health. Only failed required checks
// turn the response into a 503.
func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.HealthChecker == nil {
		c.JSON(http.StatusOK, gin.H{
			"healthy": true,
			"uptime":  s.Uptime().Round(time.Second).String(),
		})
		return
	}

	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

type registerOfficeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleRegisterOffice handles POST /api/v1/offices
func (s *Server) handleRegisterOffice(c *gin.Context) {
	var req registerOfficeRequest
	if !bindJSON(c, &req) {
		return
	}

	office, err := s.deps.Catalog.RegisterOffice(c.Request.Context(), command.RegisterOfficeCommand{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, office)
}

type registerStudentRequest struct {
	RollNo     string      `json:"roll_no"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Department string      `json:"department"`
	Batch      int         `json:"batch"`
	CGPA       shared.CGPA `json:"cgpa"`
}

// handleRegisterStudent handles POST /api/v1/students
func (s *Server) handleRegisterStudent(c *gin.Context) {
	var req registerStudentRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := s.deps.Catalog.RegisterStudent(c.Request.Context(), command.RegisterStudentCommand{
		RollNo:     req.RollNo,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Batch:      student.Batch(req.Batch),
		CGPA:       req.CGPA,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, st)
}

type postOpportunityRequest struct {
	OfficeID    int64       `json:"office_id"`
	Title       string      `json:"title"`
	Company     string      `json:"company"`
	Description string      `json:"description"`
	Vacancy     int         `json:"vacancy"`
	MinCGPA     shared.CGPA `json:"min_cgpa"`

	// YYYY-MM-DD; omitted means no deadline.
	Deadline string `json:"application_deadline"`
}

// handlePostOpportunity handles POST /api/v1/opportunities
func (s *Server) handlePostOpportunity(c *gin.Context) {
	var req postOpportunityRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := command.PostOpportunityCommand{
		OfficeID:    req.OfficeID,
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Vacancy:     req.Vacancy,
		MinCGPA:     req.MinCGPA,
	}
	if req.Deadline != "" {
		d, err := timeutil.ParseDate(req.Deadline)
		if err != nil {
			writeError(c, http.StatusBadRequest, codeInvalidInput, "application_deadline must be YYYY-MM-DD")
			return
		}
		cmd.Deadline = &d
	}

	opp, err := s.deps.Catalog.PostOpportunity(c.Request.Context(), cmd)
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, opp)
}

// handleDelete serves the admin DELETE routes for every target.
func (s *Server) handleDelete(target command.DeleteTarget) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		result, err := s.deps.Delete.Handle(c.Request.Context(), command.DeleteCommand{Target: target, ID: id})
		if err != nil {
			s.respondError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, result)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

type createApplicationRequest struct {
	StudentID     int64 `json:"student_id"`
	OpportunityID int64 `json:"opportunity_id"`
}

// handleCreateApplication handles POST /api/v1/applications
func (s *Server) handleCreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.deps.CreateApplication.Handle(c.Request.Context(), command.CreateApplicationCommand{
		StudentID:     req.StudentID,
		OpportunityID: req.OpportunityID,
		CorrelationID: requestIDFrom(c),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, result)
}

type withdrawRequest struct {
	StudentID int64 `json:"student_id"`
}

// handleWithdrawApplication handles POST /api/v1/applications/:id/withdraw
func (s *Server) handleWithdrawApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req withdrawRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.deps.Withdraw.Handle(c.Request.Context(), command.WithdrawApplicationCommand{
		ApplicationID: id,
		StudentID:     req.StudentID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

// handleChangeStatus handles PATCH /api/v1/applications/:id/status
func (s *Server) handleChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.deps.ChangeStatus.Handle(c.Request.Context(), command.ChangeApplicationStatusCommand{
		ApplicationID: id,
		Status:        application.Status(req.Status),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

type scheduleInterviewRequest struct {
	ApplicationID int64     `json:"application_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Mode          string    `json:"mode"`
	Venue         string    `json:"venue"`
	Panel         string    `json:"panel"`
}

// handleScheduleInterview handles POST /api/v1/interviews
func (s *Server) handleScheduleInterview(c *gin.Context) {
	var req scheduleInterviewRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.deps.ScheduleInterview.Handle(c.Request.Context(), command.ScheduleInterviewCommand{
		ApplicationID: req.ApplicationID,
		ScheduledAt:   req.ScheduledAt,
		Mode:          interview.Mode(req.Mode),
		Venue:         req.Venue,
		Panel:         req.Panel,
		CorrelationID: requestIDFrom(c),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, result)
}

type recordResultRequest struct {
	Result string `json:"result"`
}

// handleRecordInterviewResult handles PATCH /api/v1/interviews/:id/result
func (s *Server) handleRecordInterviewResult(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req recordResultRequest
	if !bindJSON(c, &req) {
		return
	}

	iv, err := s.deps.RecordResult.Handle(c.Request.Context(), command.RecordInterviewResultCommand{
		InterviewID: id,
		Result:      interview.Result(req.Result),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, iv)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

// handleGetOpportunity handles GET /api/v1/opportunities/:id
// ?fresh=true bypasses the cache.
func (s *Server) handleGetOpportunity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	opp, err := s.deps.Opportunities.Get(c.Request.Context(), query.GetOpportunityQuery{
		OpportunityID: id,
		SkipCache:     queryBool(c, "fresh"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, opp)
}

// handleGetOpportunityStats handles GET /api/v1/opportunities/:id/stats
func (s *Server) handleGetOpportunityStats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := s.deps.Opportunities.Stats(c.Request.Context(), query.GetOpportunityQuery{OpportunityID: id})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, stats)
}

// handleGetAuditTrail handles GET /api/v1/applications/:id/audit
func (s *Server) handleGetAuditTrail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := s.deps.History.AuditTrail(c.Request.Context(), query.GetAuditTrailQuery{ApplicationID: id})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, entries)
}

// handleListStudentApplications handles GET /api/v1/students/:id/applications
// ?status= filters by application status.
func (s *Server) handleListStudentApplications(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	apps, err := s.deps.History.StudentApplications(c.Request.Context(), query.ListStudentApplicationsQuery{
		StudentID: id,
		Status:    application.Status(c.Query("status")),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, apps)
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
