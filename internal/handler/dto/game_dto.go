package dto

import (
	"time"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service/gamesession"
)

// GameResponse - запись игры в ответе API
type GameResponse struct {
	ID                   string    `json:"id"`
	QuizID               uint      `json:"quiz_id"`
	ClassID              string    `json:"class_id,omitempty"`
	HostID               string    `json:"host_id"`
	Status               string    `json:"status"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	Phase                string    `json:"phase,omitempty"`
	PlayerCount          int       `json:"player_count"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewGameResponse создает ответ из записи игры
func NewGameResponse(record *entity.GameRecord) GameResponse {
	return GameResponse{
		ID:                   record.ID,
		QuizID:               record.QuizID,
		ClassID:              record.ClassID,
		HostID:               record.HostID,
		Status:               record.Status,
		CurrentQuestionIndex: record.CurrentQuestionIndex,
		Phase:                record.Phase,
		PlayerCount:          record.PlayerCount(),
		CreatedAt:            record.CreatedAt,
	}
}

// AnswerResponse - результат приема ответа
type AnswerResponse struct {
	QuestionIndex  int   `json:"question_index"`
	SelectedOption int   `json:"selected_option"`
	IsCorrect      bool  `json:"is_correct"`
	ResponseTimeMs int64 `json:"response_time_ms"`
	Score          int   `json:"score"`
}

// NewAnswerResponse создает ответ из записи журнала
func NewAnswerResponse(answer *entity.AnswerRecord) AnswerResponse {
	return AnswerResponse{
		QuestionIndex:  answer.QuestionIndex,
		SelectedOption: answer.SelectedOption,
		IsCorrect:      answer.IsCorrect,
		ResponseTimeMs: answer.ResponseTimeMs,
		Score:          answer.Score,
	}
}

// SessionStateEnvelope - проекция состояния с дискриминатором типа.
// Клиент ветвится по полю type и обязан знать все четыре варианта.
type SessionStateEnvelope struct {
	Type string                   `json:"type"`
	Data gamesession.SessionState `json:"data"`
}

// NewSessionStateEnvelope оборачивает проекцию в конверт с типом
func NewSessionStateEnvelope(state gamesession.SessionState) SessionStateEnvelope {
	var stateType string
	switch state.(type) {
	case gamesession.LobbyState:
		stateType = "lobby"
	case gamesession.CountdownState:
		stateType = "countdown"
	case gamesession.ActiveQuestionState:
		stateType = "question"
	case gamesession.FinishedState:
		stateType = "finished"
	default:
		stateType = "unknown"
	}
	return SessionStateEnvelope{Type: stateType, Data: state}
}
