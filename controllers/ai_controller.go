package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/services"
)

type AIController struct {
	log     *logger.Logger
	chat    services.ChatService
	indexer services.IndexService
}

func NewAIController(baseLog *logger.Logger, chat services.ChatService, indexer services.IndexService) *AIController {
	return &AIController{log: baseLog.With("controller", "AIController"), chat: chat, indexer: indexer}
}

func (h *AIController) Chat(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	resp, err := h.chat.Chat(c.Request.Context(), viewer.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AIController) GetConversation(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	conv, err := h.chat.GetConversation(c.Request.Context(), viewer.UserID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// IndexLesson runs synchronously; progress is also pushed to websocket
// subscribers of the lesson.
func (h *AIController) IndexLesson(c *gin.Context) {
	id, ok := uuidParam(c, "lessonId")
	if !ok {
		return
	}
	res, err := h.indexer.IndexLesson(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
