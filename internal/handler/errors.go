package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
	"github.com/stemsi/proctor-backend/internal/session"
)

// errorStatus maps a service or session error to an HTTP status and code.
// Unknown errors become 500s.
func errorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrNoLiveSession):
		return http.StatusNotFound, response.ErrSessionNotFound

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, response.ErrEmailTaken
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return http.StatusConflict, response.ErrConflict

	case errors.Is(err, service.ErrNoTierCounts), errors.Is(err, service.ErrTierCountExceeded):
		return http.StatusUnprocessableEntity, response.ErrTierCountInvalid
	case errors.Is(err, service.ErrNoCuratedQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	case errors.Is(err, service.ErrUnknownQuestions), errors.Is(err, service.ErrUnknownCourses):
		return http.StatusUnprocessableEntity, response.ErrNotFound
	case errors.Is(err, service.ErrInvalidWindow):
		return http.StatusUnprocessableEntity, response.ErrInvalidWindow
	case errors.Is(err, service.ErrIncompleteOptions):
		return http.StatusUnprocessableEntity, response.ErrInvalidPayload

	case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict, response.ErrSessionNotActive
	case errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, session.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, session.ErrIndexOutOfRange):
		return http.StatusBadRequest, response.ErrInvalidPayload
	case errors.Is(err, session.ErrSubmitFailed):
		return http.StatusServiceUnavailable, response.ErrSubmitFailed
	}
	return http.StatusInternalServerError, response.ErrInternal
}

func failFromError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

// paramID parses a UUID path parameter, writing a 400 on failure.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
