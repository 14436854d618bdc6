package entity

import (
	"fmt"
	"time"

	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// Quiz представляет викторину: упорядоченный набор вопросов.
// Для игрового ядра викторина доступна только на чтение.
type Quiz struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"size:100;not null" json:"title"`
	Description   string     `gorm:"size:500;not null;default:''" json:"description"`
	OwnerID       string     `gorm:"size:64;not null;index" json:"owner_id"`
	QuestionCount int        `gorm:"not null;default:0" json:"question_count"`
	Questions     []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// QuestionAt возвращает вопрос по индексу
func (q *Quiz) QuestionAt(index int) (*Question, error) {
	if index < 0 || index >= len(q.Questions) {
		return nil, fmt.Errorf("%w: question index %d out of range [0,%d)",
			apperrors.ErrNotFound, index, len(q.Questions))
	}
	return &q.Questions[index], nil
}

// Validate проверяет викторину вместе с вопросами
func (q *Quiz) Validate() error {
	if q.Title == "" {
		return fmt.Errorf("%w: quiz title is required", apperrors.ErrValidation)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz must have at least one question", apperrors.ErrValidation)
	}
	for i := range q.Questions {
		if err := q.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}
