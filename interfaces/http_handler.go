package interfaces

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kbir-dev/FWC-HRMS-sub001/ai"
	"github.com/kbir-dev/FWC-HRMS-sub001/domain"
	"github.com/kbir-dev/FWC-HRMS-sub001/infrastructure"
	"github.com/kbir-dev/FWC-HRMS-sub001/interview"
)

// ctxKeyInterview carries the permissive gate's decision through the
// request context.
const ctxKeyInterview = "interview_window"

var allowedResumeExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

// AccessGate is the slice of the interview gate the routes need.
type AccessGate interface {
	Check(ctx context.Context, applicationID uuid.UUID, now time.Time) (interview.Decision, error)
}

type HTTPHandler struct {
	store     *infrastructure.Store
	queue     *infrastructure.Queue
	gateway   *ai.Gateway
	gate      AccessGate
	uploadDir string
	logger    *zap.Logger
}

func NewHTTPHandler(router *gin.Engine, store *infrastructure.Store, queue *infrastructure.Queue, gateway *ai.Gateway, gate AccessGate, uploadDir string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTPHandler{
		store:     store,
		queue:     queue,
		gateway:   gateway,
		gate:      gate,
		uploadDir: uploadDir,
		logger:    logger,
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/jobs", h.CreateJobPosting)
	router.GET("/jobs", h.ListJobPostings)

	router.POST("/applications", h.SubmitApplication)
	router.GET("/applications/:id", PermissiveGate(h.gate, logger), h.GetApplication)
	router.GET("/applications/:id/screening", h.GetScreeningReport)
	router.POST("/applications/:id/rescreen", h.Rescreen)
	router.POST("/applications/:id/interviews", h.ScheduleInterview)
	router.POST("/applications/:id/chat", StrictGate(h.gate, logger), h.Chat)
}

// StrictGate rejects requests outside an active interview window.
func StrictGate(gate AccessGate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
			return
		}

		decision, err := gate.Check(c.Request.Context(), id, time.Now())
		if err != nil {
			logger.Error("interview gate check failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "interview check unavailable"})
			return
		}
		if !decision.Admitted {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": decision.Reason})
			return
		}

		c.Set(ctxKeyInterview, decision)
		c.Next()
	}
}

// PermissiveGate records whether an interview window is active and
// proceeds either way; handlers decide what to do with the flag.
func PermissiveGate(gate AccessGate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := uuid.Parse(c.Param("id")); err == nil {
			decision, err := gate.Check(c.Request.Context(), id, time.Now())
			if err != nil {
				logger.Warn("interview gate check failed", zap.Error(err))
			} else {
				c.Set(ctxKeyInterview, decision)
			}
		}
		c.Next()
	}
}

type createJobRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description" binding:"required"`
	Requirements    string   `json:"requirements"`
	RequiredSkills  []string `json:"required_skills"`
	ExperienceLevel string   `json:"experience_level"`
}

func (h *HTTPHandler) CreateJobPosting(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	level := domain.ExperienceLevel(req.ExperienceLevel)
	if level == "" {
		level = domain.LevelEntry
	}

	posting := domain.JobPosting{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		Requirements:    req.Requirements,
		RequiredSkills:  req.RequiredSkills,
		ExperienceLevel: level,
	}
	if err := h.store.CreateJobPosting(c.Request.Context(), &posting); err != nil {
		h.logger.Error("create posting failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save job posting"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": posting.ID})
}

func (h *HTTPHandler) ListJobPostings(c *gin.Context) {
	postings, err := h.store.ListJobPostings(c.Request.Context())
	if err != nil {
		h.logger.Error("list postings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list job postings"})
		return
	}
	c.JSON(http.StatusOK, postings)
}

// SubmitApplication stores the resume file, creates the application,
// and enqueues its screening job.
func (h *HTTPHandler) SubmitApplication(c *gin.Context) {
	jobID, err := uuid.Parse(c.PostForm("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required"})
		return
	}
	if _, err := h.store.GetJobPosting(c.Request.Context(), jobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job posting not found"})
		return
	}

	fileHeader, err := c.FormFile("resume")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume file is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedResumeExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported resume format: " + ext})
		return
	}

	appID := uuid.New()
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("create upload dir failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store resume"})
		return
	}
	path := filepath.Join(h.uploadDir, appID.String()+ext)
	if err := c.SaveUploadedFile(fileHeader, path); err != nil {
		h.logger.Error("save resume failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store resume"})
		return
	}

	app := domain.Application{
		ID:             appID,
		JobPostingID:   jobID,
		CandidateName:  c.PostForm("candidate_name"),
		CandidateEmail: c.PostForm("candidate_email"),
		ResumeFilePath: path,
		Status:         domain.StatusReceived,
	}
	if err := h.store.CreateApplication(c.Request.Context(), &app); err != nil {
		h.logger.Error("create application failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save application"})
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), app.ID); err != nil {
		h.logger.Error("enqueue screening failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue screening"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"application_id": app.ID,
		"status":         app.Status,
	})
}

// GetApplication is the applicant-facing view: status only, never
// internal error detail.
func (h *HTTPHandler) GetApplication(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	resp := gin.H{
		"application_id": app.ID,
		"status":         app.Status,
		"created_at":     app.CreatedAt,
		"updated_at":     app.UpdatedAt,
	}
	if v, exists := c.Get(ctxKeyInterview); exists {
		if decision, castOK := v.(interview.Decision); castOK {
			resp["interview_active"] = decision.Admitted
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetScreeningReport is the operator-facing view: the full breakdown,
// or the failure record verbatim when screening failed.
func (h *HTTPHandler) GetScreeningReport(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	resp := gin.H{
		"application_id": app.ID,
		"status":         app.Status,
	}
	if app.ScreeningScore != nil {
		resp["score"] = *app.ScreeningScore
	}
	if app.ScreeningDetails != nil {
		if app.ScreeningDetails.Breakdown != nil {
			resp["breakdown"] = app.ScreeningDetails.Breakdown
		}
		if app.ScreeningDetails.Error != nil {
			resp["error"] = app.ScreeningDetails.Error
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) Rescreen(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), app.ID); err != nil {
		h.logger.Error("enqueue rescreen failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue screening"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"application_id": app.ID, "status": "queued"})
}

type scheduleInterviewRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

func (h *HTTPHandler) ScheduleInterview(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	var req scheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	iv := domain.Interview{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		ScheduledAt:   req.ScheduledAt,
		Status:        domain.InterviewScheduled,
	}
	if err := h.store.CreateInterview(c.Request.Context(), &iv); err != nil {
		h.logger.Error("create interview failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule interview"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"interview_id": iv.ID, "scheduled_at": iv.ScheduledAt})
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat answers a candidate message during an active interview window.
func (h *HTTPHandler) Chat(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	posting, err := h.store.GetJobPosting(c.Request.Context(), app.JobPostingID)
	if err != nil {
		h.logger.Error("load posting for chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job posting"})
		return
	}

	messages := []ai.Message{
		{
			Role: "system",
			Content: "You are a screening interviewer for the position \"" + posting.Title + "\". " +
				"Ask focused questions about the candidate's experience and answer their questions " +
				"about the role factually. Keep responses short.",
		},
		{Role: "user", Content: req.Message},
	}

	reply, err := h.gateway.Complete(c.Request.Context(), messages, ai.CompleteOptions{Temperature: 0.3})
	if err != nil {
		if errors.Is(err, ai.ErrNoProvider) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ai screening is not configured"})
			return
		}
		h.logger.Error("chat completion failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ai screening is temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *HTTPHandler) loadApplication(c *gin.Context) (*domain.Application, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return nil, false
	}

	app, err := h.store.GetApplication(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, infrastructure.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		} else {
			h.logger.Error("load application failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load application"})
		}
		return nil, false
	}
	return app, true
}
