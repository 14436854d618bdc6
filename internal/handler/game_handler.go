package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techjoejoe/Engagesuite-sub001/internal/handler/dto"
	"github.com/techjoejoe/Engagesuite-sub001/internal/middleware"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service"
)

// GameHandler обрабатывает запросы игровых сессий
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler создает новый обработчик игр
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// CreateGameRequest представляет запрос на создание игры
type CreateGameRequest struct {
	QuizID  uint   `json:"quiz_id" binding:"required"`
	ClassID string `json:"class_id" binding:"omitempty,max=64"`
}

// CreateGame создает игру в лобби по викторине
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hostID := c.GetString(middleware.ContextParticipantID)
	record, err := h.gameService.CreateGame(c.Request.Context(), req.QuizID, hostID, req.ClassID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewGameResponse(record))
}

// GetGame возвращает текущую запись игры
func (h *GameHandler) GetGame(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)

	record, err := h.gameService.GetGame(c.Request.Context(), gameID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewGameResponse(record))
}

// JoinGameRequest представляет запрос на вступление в игру
type JoinGameRequest struct {
	Nickname string `json:"nickname" binding:"omitempty,max=30"`
}

// JoinGame добавляет участника в игру. Ник берется из запроса,
// по умолчанию - из идентичности.
func (h *GameHandler) JoinGame(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)
	participantID := c.GetString(middleware.ContextParticipantID)

	// Тело запроса необязательно: без него ник берется из идентичности
	var req JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nickname := req.Nickname
	if nickname == "" {
		nickname = c.GetString(middleware.ContextNickname)
	}

	if err := h.gameService.JoinGame(c.Request.Context(), gameID, participantID, nickname); err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Joined game", "game_id": gameID})
}

// StartGame запускает игру по команде ведущего
func (h *GameHandler) StartGame(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)
	requesterID := c.GetString(middleware.ContextParticipantID)

	if err := h.gameService.StartGame(c.Request.Context(), gameID, requesterID); err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game started"})
}

// RevealAnswerRequest представляет запрос на досрочное раскрытие ответа
type RevealAnswerRequest struct {
	QuestionIndex int `json:"question_index" binding:"min=0"`
}

// RevealAnswer досрочно раскрывает ответ текущего вопроса
func (h *GameHandler) RevealAnswer(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)
	requesterID := c.GetString(middleware.ContextParticipantID)

	var req RevealAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.gameService.RevealAnswer(c.Request.Context(), gameID, requesterID, req.QuestionIndex); err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer revealed"})
}

// NextQuestion вручную переводит игру к следующему вопросу
func (h *GameHandler) NextQuestion(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)
	requesterID := c.GetString(middleware.ContextParticipantID)

	if err := h.gameService.NextQuestion(c.Request.Context(), gameID, requesterID); err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Advanced to next question"})
}

// EndGame досрочно завершает игру
func (h *GameHandler) EndGame(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)
	requesterID := c.GetString(middleware.ContextParticipantID)

	if err := h.gameService.EndGame(c.Request.Context(), gameID, requesterID); err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game ended"})
}

// SubmitAnswerRequest представляет запрос на отправку ответа
type SubmitAnswerRequest struct {
	QuestionIndex  int `json:"question_index" binding:"min=0"`
	SelectedOption int `json:"selected_option" binding:"min=0"`
}

// SubmitAnswer принимает ответ участника на вопрос
func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)
	participantID := c.GetString(middleware.ContextParticipantID)

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.gameService.SubmitAnswer(c.Request.Context(), gameID, participantID, req.QuestionIndex, req.SelectedOption)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAnswerResponse(answer))
}

// GetSessionState возвращает проекцию состояния игры на текущий момент.
// Клиент после потери соединения восстанавливается одним запросом.
func (h *GameHandler) GetSessionState(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)

	state, err := h.gameService.GetSessionState(c.Request.Context(), gameID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionStateEnvelope(state))
}

// GetLeaderboard возвращает таблицу лидеров игры
func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)

	leaderboard, err := h.gameService.GetLeaderboard(c.Request.Context(), gameID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "leaderboard": leaderboard})
}

// GetGameResults возвращает журнал ответов игры для разбора
func (h *GameHandler) GetGameResults(c *gin.Context) {
	gameID := c.MustGet("gameID").(string)

	answers, err := h.gameService.GameResults(c.Request.Context(), gameID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	results := make([]dto.AnswerResponse, 0, len(answers))
	participants := make([]string, 0, len(answers))
	for i := range answers {
		results = append(results, dto.NewAnswerResponse(&answers[i]))
		participants = append(participants, answers[i].ParticipantID)
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id":      gameID,
		"answers":      results,
		"participants": participants,
	})
}

// handleGameError преобразует ошибки игровых сервисов в HTTP-статусы
func (h *GameHandler) handleGameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicateAnswer):
		c.JSON(http.StatusConflict, gin.H{"error": "Answer already submitted", "error_type": "duplicate_answer"})
	case errors.Is(err, apperrors.ErrWindowClosed):
		c.JSON(http.StatusGone, gin.H{"error": "Answer window is closed", "error_type": "window_closed"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
