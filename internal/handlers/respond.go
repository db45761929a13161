package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors to a status code and a JSON error body.
func respondError(c *gin.Context, err error) {
	var verr lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrUnsupportedFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrDuplicate),
		errors.Is(err, services.ErrNotEnoughSeats),
		errors.Is(err, services.ErrReviewLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		utils.LogEvent(middleware.GetRequestID(c), "http", c.Request.Method+" "+c.FullPath(), err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// paramID reads a numeric path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
