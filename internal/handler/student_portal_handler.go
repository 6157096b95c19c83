package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/session"
	"github.com/stemsi/proctor-backend/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (exam taking, lobby).
type StudentPortalHandler struct {
	sessionService *service.ExamSessionService
	examService    *service.ExamService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.ExamSessionService,
	examService *service.ExamService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService: sessionService,
		examService:    examService,
	}
}

// GetLobby godoc
// GET /api/v1/student/exams
// Returns exams the student is enrolled for, flagged when already completed.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, err)
		return
	}
	if exams == nil {
		exams = []model.StudentExam{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetResults godoc
// GET /api/v1/student/results
func (h *StudentPortalHandler) GetResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.examService.StudentResults(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, err)
		return
	}
	if results == nil {
		results = []model.StudentResult{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// EnterExam godoc
// POST /api/v1/student/exams/:exam_id/session
// Loads the exam for the student. Reloading resumes the same attempt with its
// deadline, answers and violation count intact. A rejected or already
// submitted attempt is returned as a view, not an HTTP error.
func (h *StudentPortalHandler) EnterExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	var req model.EnterExamRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	view, err := h.sessionService.Enter(c.Request.Context(), claims, examID, req.Fullscreen)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// GetExamState godoc
// GET /api/v1/student/exams/:exam_id/session
// Returns the live session's questions, answers, remaining time and violations.
func (h *StudentPortalHandler) GetExamState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	view, err := h.sessionService.View(claims.UserID, examID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// SaveAnswer godoc
// PUT /api/v1/student/exams/:exam_id/session/answers
// Replaces the student's answer for one question.
func (h *StudentPortalHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.sessionService.Answer(c.Request.Context(), claims.UserID, examID, req.QuestionID, req.Option)
	if err != nil {
		if status, _ := errorStatus(err); status == http.StatusInternalServerError {
			_ = c.Error(err)
			response.Fail(c, http.StatusServiceUnavailable, response.ErrAnswerNotSaved)
			return
		}
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": req.QuestionID,
		"option":      req.Option,
	})
}

// Navigate godoc
// PUT /api/v1/student/exams/:exam_id/session/position
func (h *StudentPortalHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Navigate(claims.UserID, examID, *req.Index); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"current_index": *req.Index})
}

// SetFullscreen godoc
// PUT /api/v1/student/exams/:exam_id/session/fullscreen
// Leaving full screen gates the questions until the student re-enters.
func (h *StudentPortalHandler) SetFullscreen(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	var req model.FullscreenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.SetFullscreen(claims.UserID, examID, *req.On)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// ReportVisibility godoc
// POST /api/v1/student/exams/:exam_id/session/visibility
// Counts a hidden tab toward the integrity limit. Reaching the limit submits
// the exam.
func (h *StudentPortalHandler) ReportVisibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	var req model.VisibilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if !req.Hidden {
		view, err := h.sessionService.View(claims.UserID, examID)
		if err != nil {
			failFromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"verdict": session.Verdict{Kind: session.VerdictIgnored, Count: view.Violations, Remaining: view.ViolationsLeft},
			"session": view,
		})
		return
	}

	verdict, view, err := h.sessionService.ReportHidden(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"verdict": verdict,
		"session": view,
	})
}

// FinishExam godoc
// POST /api/v1/student/exams/:exam_id/session/finish
// Scores and records the attempt. A failed write leaves the exam open so the
// student can retry.
func (h *StudentPortalHandler) FinishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := paramID(c, "exam_id")
	if !ok {
		return
	}

	view, err := h.sessionService.Finish(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}
