package gamesession

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// AnswerLedger принимает ответы участников: проверяет окно приема,
// считает очки и ведет журнал "один ответ на вопрос от участника".
// Идемпотентность обеспечивается уникальным ключом в БД; SetNX в кеше -
// только быстрый отсев повторов до похода в Postgres.
type AnswerLedger struct {
	deps *Dependencies
}

// NewAnswerLedger создает новый журнал ответов
func NewAnswerLedger(deps *Dependencies) *AnswerLedger {
	return &AnswerLedger{deps: deps}
}

// Submit регистрирует ответ участника на вопрос questionIndex.
//   - Вопрос не принимает ответы (не текущий, фаза reveal, игра не идет) → ErrWindowClosed
//   - Время ответа вышло за лимит вопроса → ErrWindowClosed
//   - Вариант вне диапазона вопроса → ErrValidation
//   - Повторная отправка → ErrDuplicateAnswer
//
// Ответ точно на границе окна (t == limitMs) принимается и оценивается.
func (l *AnswerLedger) Submit(ctx context.Context, gameID, participantID string, questionIndex, selectedOption int) (*entity.AnswerRecord, error) {
	record, err := l.deps.GameStore.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if _, joined := record.Players[participantID]; !joined {
		return nil, fmt.Errorf("%w: participant %s has not joined game %s", apperrors.ErrUnauthorized, participantID, gameID)
	}
	if !record.InQuestionPhase(questionIndex) {
		return nil, fmt.Errorf("%w: question %d is not accepting answers", apperrors.ErrWindowClosed, questionIndex)
	}

	quiz, err := l.deps.QuizRepo.GetWithQuestions(record.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz for game %s: %w", gameID, err)
	}
	question, err := quiz.QuestionAt(questionIndex)
	if err != nil {
		return nil, err
	}
	if !question.IsValidOption(selectedOption) {
		return nil, fmt.Errorf("%w: option %d is out of range", apperrors.ErrValidation, selectedOption)
	}

	// Время ответа считается от якорной метки записи, не от часов клиента
	responseTimeMs := record.ElapsedMs(l.deps.nowMs())
	limitMs := question.TimeLimitMs()
	if responseTimeMs > limitMs {
		return nil, fmt.Errorf("%w: response after %d ms with limit %d ms", apperrors.ErrWindowClosed, responseTimeMs, limitMs)
	}

	// Быстрый отсев дублей до похода в БД. Кеш может потерять ключ,
	// поэтому источником истины остается unique index в Postgres.
	dedupKey := fmt.Sprintf("answer:%s:%d:%s", gameID, questionIndex, participantID)
	if l.deps.CacheRepo != nil {
		ok, err := l.deps.CacheRepo.SetNX(dedupKey, 1, l.deps.Config.AnswerDedupTTL)
		if err != nil {
			log.Printf("[AnswerLedger] Ошибка SetNX для %s: %v, продолжаем через БД", dedupKey, err)
		} else if !ok {
			return nil, fmt.Errorf("%w: game %s question %d participant %s",
				apperrors.ErrDuplicateAnswer, gameID, questionIndex, participantID)
		}
	}

	isCorrect := question.IsCorrect(selectedOption)
	answer := &entity.AnswerRecord{
		GameID:         gameID,
		QuestionIndex:  questionIndex,
		ParticipantID:  participantID,
		SelectedOption: selectedOption,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		Score:          Score(question.MaxPoints, responseTimeMs, limitMs, isCorrect),
	}

	if err := l.deps.AnswerRepo.Save(answer); err != nil {
		// Запись в журнал не прошла, а дедуп-ключ уже стоит. Снимаем его,
		// иначе повторная отправка участника будет отбита как дубль при
		// пустом журнале. При настоящем дубле ключ оставляем.
		if l.deps.CacheRepo != nil && !errors.Is(err, apperrors.ErrDuplicateAnswer) {
			if delErr := l.deps.CacheRepo.Delete(dedupKey); delErr != nil {
				log.Printf("[AnswerLedger] Не удалось снять дедуп-ключ %s: %v", dedupKey, delErr)
			}
		}
		return nil, err
	}

	if answer.Score > 0 {
		if err := l.deps.GameStore.IncrementScore(ctx, gameID, participantID, answer.Score); err != nil {
			// Ответ уже в журнале, но счет в записи игры не обновился;
			// ошибка уходит клиенту
			log.Printf("[AnswerLedger] Ошибка начисления %d очков участнику %s в игре %s: %v",
				answer.Score, participantID, gameID, err)
			return nil, err
		}
	}

	log.Printf("[AnswerLedger] Игра %s: ответ участника %s на вопрос %d за %d мс, очки: %d",
		gameID, participantID, questionIndex, responseTimeMs, answer.Score)
	return answer, nil
}

// ResultFor возвращает ранее записанный ответ участника на вопрос
func (l *AnswerLedger) ResultFor(gameID string, questionIndex int, participantID string) (*entity.AnswerRecord, error) {
	return l.deps.AnswerRepo.GetByKey(gameID, questionIndex, participantID)
}
