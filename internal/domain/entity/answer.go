package entity

import (
	"time"
)

// AnswerRecord представляет ответ участника на один вопрос игры.
// Ключ (GameID, QuestionIndex, ParticipantID) уникален: повторная отправка
// с тем же ключом отклоняется на уровне БД (unique constraint), а не
// клиентским флагом. Запись создается один раз и не изменяется.
type AnswerRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GameID         string    `gorm:"size:64;not null;uniqueIndex:idx_answer_key;index" json:"game_id"`
	QuestionIndex  int       `gorm:"not null;uniqueIndex:idx_answer_key" json:"question_index"`
	ParticipantID  string    `gorm:"size:64;not null;uniqueIndex:idx_answer_key" json:"participant_id"`
	SelectedOption int       `gorm:"not null;default:-1" json:"selected_option"`
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	ResponseTimeMs int64     `gorm:"not null" json:"response_time_ms"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AnswerRecord) TableName() string {
	return "answers"
}
