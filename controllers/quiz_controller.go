package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/repository"
	"github.com/vnkhanh/e-learning-backend/services"
)

type QuizController struct {
	log     *logger.Logger
	quizzes services.QuizService
}

func NewQuizController(baseLog *logger.Logger, quizzes services.QuizService) *QuizController {
	return &QuizController{log: baseLog.With("controller", "QuizController"), quizzes: quizzes}
}

func (h *QuizController) Create(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	var in services.CreateQuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), viewer, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizController) List(c *gin.Context) {
	courseID, ok := optionalUUIDQuery(c, "course_id")
	if !ok {
		return
	}
	lessonID, ok := optionalUUIDQuery(c, "lesson_id")
	if !ok {
		return
	}
	quizzes, err := h.quizzes.List(c.Request.Context(), repository.QuizFilter{CourseID: courseID, LessonID: lessonID})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quizzes})
}

func (h *QuizController) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	quiz, err := h.quizzes.Get(c.Request.Context(), viewer, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in services.UpdateQuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quiz, err := h.quizzes.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.quizzes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuizController) AddQuestion(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in services.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	q, err := h.quizzes.AddQuestion(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *QuizController) DeleteQuestion(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(c, "questionId")
	if !ok {
		return
	}
	if err := h.quizzes.DeleteQuestion(c.Request.Context(), id, questionID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reorderRequest struct {
	QuestionOrders []services.QuestionOrder `json:"question_orders"`
}

func (h *QuizController) ReorderQuestions(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.quizzes.ReorderQuestions(c.Request.Context(), id, req.QuestionOrders); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *QuizController) GetAttempt(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	attempt, err := h.quizzes.GetAttempt(c.Request.Context(), viewer, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *QuizController) Submit(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in services.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	sub, err := h.quizzes.Submit(c.Request.Context(), viewer, id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *QuizController) ListSubmissions(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := optionalUUIDQuery(c, "student_id")
	if !ok {
		return
	}
	subs, err := h.quizzes.ListSubmissions(c.Request.Context(), viewer, id, studentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs})
}
