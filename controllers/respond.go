package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/services"
)

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// respondError writes apierr errors with their own status. Anything else is
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	if e, ok := apierr.As(err); ok {
		if e.Status >= http.StatusInternalServerError {
			log.Error("request failed", "path", c.FullPath(), "code", e.Code, "error", e.Err)
		}
		c.JSON(e.Status, errorBody(e.Code, e.Message))
		return
	}
	log.Error("unexpected error", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, errorBody("internal_error", "Internal server error"))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(apierr.CodeValidationFailed, message))
}

func viewerFrom(c *gin.Context) (services.Viewer, bool) {
	id, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "Invalid user"))
		return services.Viewer{}, false
	}
	return services.Viewer{UserID: id, Role: models.UserRole(c.GetString(middleware.ContextRole))}, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}
