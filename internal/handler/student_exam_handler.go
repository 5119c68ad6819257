package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ujianku/ujianku-backend/internal/middleware"
	"github.com/ujianku/ujianku-backend/internal/model"
	"github.com/ujianku/ujianku-backend/internal/response"
	"github.com/ujianku/ujianku-backend/internal/scoring"
	"github.com/ujianku/ujianku-backend/internal/service"
	"github.com/ujianku/ujianku-backend/internal/validator"
)

// StudentExamHandler handles the student-facing exam endpoints.
type StudentExamHandler struct {
	catalogService    *service.ExamCatalogService
	examService       *service.ExamService
	submissionService *service.SubmissionService
}

// NewStudentExamHandler creates a new StudentExamHandler.
func NewStudentExamHandler(
	catalogService *service.ExamCatalogService,
	examService *service.ExamService,
	submissionService *service.SubmissionService,
) *StudentExamHandler {
	return &StudentExamHandler{
		catalogService:    catalogService,
		examService:       examService,
		submissionService: submissionService,
	}
}

// failAttemptError maps the attempt lifecycle errors to HTTP codes. Returns
// false if the error was not recognized so the caller can fall through to a
// generic 500.
func failAttemptError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, service.ErrExamNotEligible):
		// Ineligible and nonexistent exams are indistinguishable on purpose.
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotOpenYet):
		response.Fail(c, http.StatusConflict, response.ErrExamNotOpenYet)
	case errors.Is(err, service.ErrExamClosed):
		response.Fail(c, http.StatusConflict, response.ErrExamClosed)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrAttemptNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotStarted)
	case errors.Is(err, service.ErrNotSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrNotSubmitted)
	case errors.Is(err, service.ErrQuestionNotInExam):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTokenNotConfigured):
		response.Fail(c, http.StatusConflict, response.ErrExamTokenNotSet)
	case errors.Is(err, service.ErrTokenInactive):
		response.Fail(c, http.StatusConflict, response.ErrExamTokenInactive)
	case errors.Is(err, service.ErrTokenMismatch):
		response.Fail(c, http.StatusBadRequest, response.ErrExamTokenInvalid)
	case errors.Is(err, service.ErrTokenExpired):
		response.Fail(c, http.StatusConflict, response.ErrExamTokenExpired)
	case errors.Is(err, scoring.ErrEnvelopeTooDeep):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		return false
	}
	return true
}

// ListExams godoc
// GET /api/v1/student/exams
// Returns the student's exam catalog with per-exam status flags.
func (h *StudentExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	catalog, err := h.catalogService.ListForStudent(c.Request.Context(), claims.UserID, claims.SchoolID, claims.ClassName)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": catalog})
}

// StartExam godoc
// POST /api/v1/student/exams/:exam_id/start
// Validates the school exam token and opens (or resumes) the attempt.
func (h *StudentExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ValidateTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.submissionService.StartAttempt(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName, req.Token)
	if err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GetExamPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the key-stripped paper from the cache.
// SECURITY: requires an open attempt for this exam to prevent IDOR.
func (h *StudentExamHandler) GetExamPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.submissionService.VerifyOpenAttempt(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName)
	if err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), exam)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// SaveAnswer godoc
// PUT /api/v1/student/exams/:exam_id/answers
// Autosaves one answer onto the open attempt.
func (h *StudentExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.submissionService.SaveAnswer(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName, &req); err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// GetExamState godoc
// GET /api/v1/student/exams/:exam_id/state
// Returns countdown plus autosaved answers; covers the page-reload case.
func (h *StudentExamHandler) GetExamState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.submissionService.State(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName)
	if err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetTimeRemaining godoc
// GET /api/v1/student/exams/:exam_id/time
// Returns the seconds left in the exam's absolute window.
func (h *StudentExamHandler) GetTimeRemaining(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	tr, err := h.submissionService.TimeRemaining(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName)
	if err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, tr)
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Finalizes the attempt. At most one concurrent submit wins.
func (h *StudentExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.submissionService.Submit(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName, &req)
	if err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GetExamResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the full result detail of a submitted attempt.
func (h *StudentExamHandler) GetExamResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.submissionService.Result(c.Request.Context(), examID, claims.UserID, claims.SchoolID, claims.ClassName)
	if err != nil {
		if !failAttemptError(c, err) {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
