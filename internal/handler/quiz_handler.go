package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/handler/dto"
	"github.com/techjoejoe/Engagesuite-sub001/internal/middleware"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// CreateQuizRequest представляет запрос на создание викторины
type CreateQuizRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
	Questions   []struct {
		Text          string   `json:"text" binding:"required,min=1,max=500"`
		MediaURL      string   `json:"media_url" binding:"omitempty,max=500"`
		Options       []string `json:"options" binding:"required,min=2,max=4"`
		CorrectOption int      `json:"correct_option" binding:"min=0"`
		TimeLimitSec  int      `json:"time_limit_sec" binding:"required,min=5,max=120"`
		MaxPoints     int      `json:"max_points" binding:"required,min=1,max=10000"`
	} `json:"questions" binding:"required,min=1"`
}

// CreateQuiz обрабатывает запрос на создание викторины с вопросами
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID := c.GetString(middleware.ContextParticipantID)

	// Преобразуем данные в формат для сервиса
	questions := make([]entity.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid correct_option index %d for question '%s'", q.CorrectOption, q.Text)})
			return
		}
		questions = append(questions, entity.Question{
			Text:          q.Text,
			MediaURL:      q.MediaURL,
			Options:       entity.StringArray(q.Options),
			CorrectOption: q.CorrectOption,
			TimeLimitSec:  q.TimeLimitSec,
			MaxPoints:     q.MaxPoints,
		})
	}

	quiz, err := h.quizService.CreateQuiz(ownerID, req.Title, req.Description, questions)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, true))
}

// GetQuiz возвращает викторину вместе с вопросами
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint) // Получаем из контекста

	quiz, err := h.quizService.GetQuizWithQuestions(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true))
}

// ListQuizzes возвращает список викторин с пагинацией
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	quizzes, err := h.quizService.ListQuizzes(limit, offset)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// DeleteQuiz удаляет викторину владельца
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	requesterID := c.GetString(middleware.ContextParticipantID)

	if err := h.quizService.DeleteQuiz(quizID, requesterID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted"})
}

// handleQuizError преобразует ошибки сервиса в HTTP-статусы
func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Quiz not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
