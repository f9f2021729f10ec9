package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/middleware"
	"github.com/prohmpiriya/event-attendance/pkg/response"
	"go.uber.org/zap"
)

// statusByCode maps stable error codes to HTTP statuses
var statusByCode = map[string]int{
	domain.CodeValidation:        http.StatusBadRequest,
	domain.CodeNotFound:          http.StatusNotFound,
	domain.CodeAlreadyRegistered: http.StatusConflict,
	domain.CodeAlreadyMarked:     http.StatusConflict,
	domain.CodeOutOfWindow:       http.StatusUnprocessableEntity,
	domain.CodeInvalidCode:       http.StatusBadRequest,
	domain.CodeNotRegistered:     http.StatusForbidden,
	domain.CodeAuth:              http.StatusUnauthorized,
}

// handleError writes the error envelope for err
func handleError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		logger.Get().Error("internal error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError("internal server error"))
		return
	}
	c.JSON(status, response.Error(code, errorMessage(err)))
}

// errorMessage strips the category prefix from validation errors
func errorMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrValidation) {
		msg = strings.TrimPrefix(msg, domain.ErrValidation.Error()+": ")
	}
	return msg
}

// bindError writes a validation envelope for a request that failed to bind
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(domain.CodeValidation, dto.ValidationMessage(err)))
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(domain.CodeAuth, domain.ErrUnauthorized.Error()))
		return "", false
	}
	return userID, true
}
