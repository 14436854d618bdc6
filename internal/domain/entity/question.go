package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// Ограничения на количество вариантов ответа
const (
	MinOptions = 2
	MaxOptions = 4
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос викторины.
// После того как игра сослалась на викторину, вопрос не изменяется.
type Question struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	QuizID        uint        `gorm:"not null;index" json:"quiz_id"`
	Text          string      `gorm:"size:500;not null" json:"text"`
	MediaURL      string      `gorm:"size:500;not null;default:''" json:"media_url,omitempty"`
	Options       StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectOption int         `gorm:"not null" json:"-"` // Скрыто от клиента
	TimeLimitSec  int         `gorm:"not null;default:20" json:"time_limit_sec"`
	MaxPoints     int         `gorm:"not null;default:1000" json:"max_points"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(selectedOption int) bool {
	return selectedOption == q.CorrectOption
}

// IsValidOption проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(q.Options)
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.Options)
}

// TimeLimitMs возвращает лимит времени на вопрос в миллисекундах
func (q *Question) TimeLimitMs() int64 {
	return int64(q.TimeLimitSec) * 1000
}

// Validate проверяет инварианты вопроса перед сохранением
func (q *Question) Validate() error {
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return fmt.Errorf("%w: question must have %d-%d options, got %d",
			apperrors.ErrValidation, MinOptions, MaxOptions, len(q.Options))
	}
	if !q.IsValidOption(q.CorrectOption) {
		return fmt.Errorf("%w: correct option %d out of range", apperrors.ErrValidation, q.CorrectOption)
	}
	if q.TimeLimitSec <= 0 {
		return fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
	}
	if q.MaxPoints <= 0 {
		return fmt.Errorf("%w: max points must be positive", apperrors.ErrValidation)
	}
	return nil
}
