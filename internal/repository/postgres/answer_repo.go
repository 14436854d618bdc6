package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Save сохраняет запись ответа.
// Unique index idx_answer_key на (game_id, question_index, participant_id)
// гарантирует максимум один ответ на вопрос от участника:
// - 23505 (unique violation) → ErrDuplicateAnswer
// - Другая DB ошибка → возвращается как есть
func (r *AnswerRepo) Save(answer *entity.AnswerRecord) error {
	if err := r.db.Create(answer).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: game %s question %d participant %s",
				apperrors.ErrDuplicateAnswer, answer.GameID, answer.QuestionIndex, answer.ParticipantID)
		}
		return fmt.Errorf("save answer failed: %w", err)
	}
	return nil
}

// GetByKey возвращает ответ участника на конкретный вопрос игры
func (r *AnswerRepo) GetByKey(gameID string, questionIndex int, participantID string) (*entity.AnswerRecord, error) {
	var answer entity.AnswerRecord
	err := r.db.Where("game_id = ? AND question_index = ? AND participant_id = ?",
		gameID, questionIndex, participantID).First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// ListForGame возвращает все ответы игры в порядке поступления
func (r *AnswerRepo) ListForGame(gameID string) ([]entity.AnswerRecord, error) {
	var answers []entity.AnswerRecord
	err := r.db.Where("game_id = ?", gameID).
		Order("question_index, created_at").
		Find(&answers).Error
	return answers, err
}

// ListForQuestion возвращает все ответы на один вопрос игры
func (r *AnswerRepo) ListForQuestion(gameID string, questionIndex int) ([]entity.AnswerRecord, error) {
	var answers []entity.AnswerRecord
	err := r.db.Where("game_id = ? AND question_index = ?", gameID, questionIndex).
		Order("created_at").
		Find(&answers).Error
	return answers, err
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
