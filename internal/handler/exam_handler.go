package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/validator"
)

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// ListExams godoc
// GET /api/v1/admin/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Randomized exams draw per-tier counts from their courses' banks; the others
// use the curated question_ids list in order.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetExamQuestions godoc
// GET /api/v1/admin/exams/:id/questions
// Returns the curated list; empty for randomized exams.
func (h *ExamHandler) GetExamQuestions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.examService.Questions(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetExamResults godoc
// GET /api/v1/admin/exams/:id/results
func (h *ExamHandler) GetExamResults(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	results, err := h.examService.Results(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	if results == nil {
		results = []model.ExamResult{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// GetIntegrityEvents godoc
// GET /api/v1/admin/exams/:id/integrity
func (h *ExamHandler) GetIntegrityEvents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	events, err := h.examService.IntegrityEvents(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	if events == nil {
		events = []model.IntegrityEvent{}
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}
