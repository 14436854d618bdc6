package gamesession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// StateMachine выполняет переходы игровой сессии. Каждый переход - guarded
// обновление записи в GameRecordStore: предусловие проверяется хранилищем
// атомарно, поэтому два конкурирующих перехода не могут применитьcя оба.
// Статус и индекс вопроса двигаются только вперед.
type StateMachine struct {
	deps *Dependencies
}

// NewStateMachine создает новую машину состояний игровой сессии
func NewStateMachine(deps *Dependencies) *StateMachine {
	return &StateMachine{deps: deps}
}

// Start переводит игру lobby → playing и открывает предигровой отсчет.
// Индекс вопроса становится CountdownIndex, якорная метка - текущее время.
// Пустое лобби стартовать нельзя; присоединение разрешено до конца игры.
func (m *StateMachine) Start(ctx context.Context, gameID string) error {
	record, err := m.deps.GameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !record.IsLobby() {
		return fmt.Errorf("%w: cannot start game in status %q", apperrors.ErrInvalidTransition, record.Status)
	}
	if record.PlayerCount() == 0 {
		return fmt.Errorf("%w: cannot start game %s with no participants", apperrors.ErrInvalidTransition, gameID)
	}

	fields := map[string]interface{}{
		repository.GameFieldStatus:        entity.GameStatusPlaying,
		repository.GameFieldQuestionIndex: entity.CountdownIndex,
		repository.GameFieldPhase:         "",
		repository.GameFieldAnchorMs:      m.deps.nowMs(),
	}
	guard := &repository.FieldGuard{Field: repository.GameFieldStatus, Equals: entity.GameStatusLobby}
	if err := m.deps.GameStore.UpdateFields(ctx, gameID, fields, guard); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: game %s already started", apperrors.ErrInvalidTransition, gameID)
		}
		return err
	}

	log.Printf("[StateMachine] Игра %s запущена, обратный отсчет %d сек.", gameID, m.deps.Config.CountdownSeconds)
	return nil
}

// AdvanceFromCountdown завершает отсчет и открывает первый вопрос.
// Якорная метка перезаписывается: окно ответа отсчитывается от этого момента.
func (m *StateMachine) AdvanceFromCountdown(ctx context.Context, gameID string) error {
	record, err := m.deps.GameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !record.InCountdown() {
		return fmt.Errorf("%w: game %s is not in countdown", apperrors.ErrInvalidTransition, gameID)
	}

	fields := map[string]interface{}{
		repository.GameFieldQuestionIndex: 0,
		repository.GameFieldPhase:         entity.PhaseQuestion,
		repository.GameFieldAnchorMs:      m.deps.nowMs(),
	}
	guard := &repository.FieldGuard{
		Field:  repository.GameFieldQuestionIndex,
		Equals: strconv.Itoa(entity.CountdownIndex),
	}
	if err := m.deps.GameStore.UpdateFields(ctx, gameID, fields, guard); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: countdown for game %s already finished", apperrors.ErrInvalidTransition, gameID)
		}
		return err
	}

	log.Printf("[StateMachine] Игра %s: отсчет завершен, открыт вопрос 0", gameID)
	return nil
}

// Reveal закрывает окно ответов вопроса questionIndex и открывает фазу
// показа правильного ответа. Повторный вызов для уже раскрытого вопроса -
// идемпотентный no-op: ручное и автоматическое раскрытие могут гоняться.
func (m *StateMachine) Reveal(ctx context.Context, gameID string, questionIndex int) error {
	record, err := m.deps.GameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !record.IsPlaying() || record.CurrentQuestionIndex != questionIndex {
		return fmt.Errorf("%w: question %d is not current in game %s", apperrors.ErrInvalidTransition, questionIndex, gameID)
	}
	if record.Phase == entity.PhaseReveal {
		// Уже раскрыт
		return nil
	}

	fields := map[string]interface{}{
		repository.GameFieldPhase:    entity.PhaseReveal,
		repository.GameFieldAnchorMs: m.deps.nowMs(),
	}
	guard := &repository.FieldGuard{Field: repository.GameFieldPhase, Equals: entity.PhaseQuestion}
	if err := m.deps.GameStore.UpdateFields(ctx, gameID, fields, guard); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Кто-то раскрыл раньше нас. Проверяем, что это тот же вопрос.
			current, getErr := m.deps.GameStore.Get(ctx, gameID)
			if getErr == nil && current.CurrentQuestionIndex == questionIndex && current.Phase == entity.PhaseReveal {
				return nil
			}
			return fmt.Errorf("%w: question %d in game %s moved on", apperrors.ErrInvalidTransition, questionIndex, gameID)
		}
		return err
	}

	log.Printf("[StateMachine] Игра %s: вопрос %d раскрыт", gameID, questionIndex)
	return nil
}

// Next переходит от фазы показа ответа к следующему вопросу или, если
// вопросы кончились, завершает игру. Переход разрешен только из reveal.
func (m *StateMachine) Next(ctx context.Context, gameID string) error {
	record, err := m.deps.GameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if !record.IsPlaying() || record.Phase != entity.PhaseReveal {
		return fmt.Errorf("%w: game %s is not in reveal phase", apperrors.ErrInvalidTransition, gameID)
	}

	quiz, err := m.deps.QuizRepo.GetWithQuestions(record.QuizID)
	if err != nil {
		return fmt.Errorf("failed to load quiz for game %s: %w", gameID, err)
	}

	nextIndex := record.CurrentQuestionIndex + 1
	if nextIndex >= len(quiz.Questions) {
		return m.finish(ctx, gameID)
	}

	fields := map[string]interface{}{
		repository.GameFieldQuestionIndex: nextIndex,
		repository.GameFieldPhase:         entity.PhaseQuestion,
		repository.GameFieldAnchorMs:      m.deps.nowMs(),
	}
	guard := &repository.FieldGuard{
		Field:  repository.GameFieldQuestionIndex,
		Equals: strconv.Itoa(record.CurrentQuestionIndex),
	}
	if err := m.deps.GameStore.UpdateFields(ctx, gameID, fields, guard); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: game %s already advanced past question %d", apperrors.ErrInvalidTransition, gameID, record.CurrentQuestionIndex)
		}
		return err
	}

	log.Printf("[StateMachine] Игра %s: открыт вопрос %d из %d", gameID, nextIndex, len(quiz.Questions))
	return nil
}

// End досрочно завершает игру по команде ведущего
func (m *StateMachine) End(ctx context.Context, gameID string) error {
	record, err := m.deps.GameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if record.IsFinished() {
		return fmt.Errorf("%w: game %s is already finished", apperrors.ErrInvalidTransition, gameID)
	}
	return m.finish(ctx, gameID)
}

// finish переводит игру в терминальный статус finished
func (m *StateMachine) finish(ctx context.Context, gameID string) error {
	fields := map[string]interface{}{
		repository.GameFieldStatus: entity.GameStatusFinished,
		repository.GameFieldPhase:  "",
	}
	if err := m.deps.GameStore.UpdateFields(ctx, gameID, fields, nil); err != nil {
		return err
	}
	log.Printf("[StateMachine] Игра %s завершена", gameID)
	return nil
}
