package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/validator"
)

// CourseHandler handles courses, batches, enrollments and the student roster.
type CourseHandler struct {
	courseService *service.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// ListCourses godoc
// GET /api/v1/admin/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.List(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// CreateCourse godoc
// POST /api/v1/admin/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// ListBatches godoc
// GET /api/v1/admin/courses/:id/batches
func (h *CourseHandler) ListBatches(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	batches, err := h.courseService.ListBatches(c.Request.Context(), courseID)
	if err != nil {
		failFromError(c, err)
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}
	response.Success(c, http.StatusOK, gin.H{"batches": batches})
}

// CreateBatch godoc
// POST /api/v1/admin/batches
func (h *CourseHandler) CreateBatch(c *gin.Context) {
	var req model.CreateBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	batch, err := h.courseService.CreateBatch(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"batch": batch})
}

// ListEnrollments godoc
// GET /api/v1/admin/courses/:id/enrollments
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	enrollments, err := h.courseService.ListEnrollments(c.Request.Context(), courseID)
	if err != nil {
		failFromError(c, err)
		return
	}
	if enrollments == nil {
		enrollments = []model.Enrollment{}
	}
	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// Enroll godoc
// POST /api/v1/admin/enrollments
func (h *CourseHandler) Enroll(c *gin.Context) {
	var req model.CreateEnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	enrollment, err := h.courseService.Enroll(c.Request.Context(), &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"enrollment": enrollment})
}

// Unenroll godoc
// DELETE /api/v1/admin/enrollments/:id
func (h *CourseHandler) Unenroll(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.courseService.Unenroll(c.Request.Context(), id); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ListStudents godoc
// GET /api/v1/admin/students
func (h *CourseHandler) ListStudents(c *gin.Context) {
	students, err := h.courseService.Students(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	if students == nil {
		students = []model.Profile{}
	}
	response.Success(c, http.StatusOK, gin.H{"students": students})
}
