package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/logger"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", apierr.NotFound(apierr.CodeQuizNotFound, "Quiz not found"), http.StatusNotFound, `{"error":{"code":"quiz_not_found","message":"Quiz not found"}}`},
		{"wrapped policy", fmt.Errorf("submit: %w", apierr.Policy(apierr.CodeMaxAttemptsReached, "Maximum attempts reached (2 of 2 used)")), http.StatusBadRequest, `{"error":{"code":"max_attempts_reached","message":"Maximum attempts reached (2 of 2 used)"}}`},
		{"unavailable hides cause", apierr.Unavailable(errors.New("api key invalid")), http.StatusServiceUnavailable, `{"error":{"code":"service_unavailable","message":"` + apierr.UnavailableMessage + `"}}`},
		{"plain error", errors.New("pq: relation does not exist"), http.StatusInternalServerError, `{"error":{"code":"internal_error","message":"Internal server error"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, logger.Nop(), tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestViewerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := viewerFrom(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
