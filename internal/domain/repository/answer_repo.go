package repository

import (
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
)

// AnswerRepository определяет методы для журнала ответов.
// Save обязан возвращать apperrors.ErrDuplicateAnswer при нарушении
// уникальности ключа (gameID, questionIndex, participantID) - это
// граница идемпотентности отправки ответа.
type AnswerRepository interface {
	Save(answer *entity.AnswerRecord) error
	GetByKey(gameID string, questionIndex int, participantID string) (*entity.AnswerRecord, error)
	ListForGame(gameID string) ([]entity.AnswerRecord, error)
	ListForQuestion(gameID string, questionIndex int) ([]entity.AnswerRecord, error)
}
