package gamesession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
	"github.com/techjoejoe/Engagesuite-sub001/internal/repository/memory"
)

// ============================================================================
// Моки для AnswerLedger
// ============================================================================

// MockAnswerRepoForLedger реализует repository.AnswerRepository
type MockAnswerRepoForLedger struct {
	mock.Mock
}

func (m *MockAnswerRepoForLedger) Save(answer *entity.AnswerRecord) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAnswerRepoForLedger) GetByKey(gameID string, questionIndex int, participantID string) (*entity.AnswerRecord, error) {
	args := m.Called(gameID, questionIndex, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AnswerRecord), args.Error(1)
}

func (m *MockAnswerRepoForLedger) ListForGame(gameID string) ([]entity.AnswerRecord, error) {
	args := m.Called(gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AnswerRecord), args.Error(1)
}

func (m *MockAnswerRepoForLedger) ListForQuestion(gameID string, questionIndex int) ([]entity.AnswerRecord, error) {
	args := m.Called(gameID, questionIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AnswerRecord), args.Error(1)
}

// MockCacheRepoForLedger реализует repository.CacheRepository
type MockCacheRepoForLedger struct {
	mock.Mock
}

func (m *MockCacheRepoForLedger) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForLedger) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepoForLedger) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepoForLedger) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepoForLedger) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepoForLedger) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// ledgerFixture - собранный AnswerLedger с игрой в фазе приема ответов
type ledgerFixture struct {
	ledger     *AnswerLedger
	store      *memory.GameRecordStore
	answerRepo *MockAnswerRepoForLedger
	cacheRepo  *MockCacheRepoForLedger
	clock      *fakeClock
}

// newLedgerFixture создает игру с открытым вопросом 0 и участником player-1
func newLedgerFixture(t *testing.T, quiz *entity.Quiz) *ledgerFixture {
	t.Helper()

	store := memory.NewGameRecordStore()
	clock := &fakeClock{ms: 1_700_000_000_000}

	mockQuizRepo := new(MockQuizRepoForStateMachine)
	mockQuizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)

	answerRepo := new(MockAnswerRepoForLedger)
	cacheRepo := new(MockCacheRepoForLedger)

	deps := &Dependencies{
		GameStore:  store,
		QuizRepo:   mockQuizRepo,
		AnswerRepo: answerRepo,
		CacheRepo:  cacheRepo,
		Config:     DefaultConfig(),
		Now:        clock.Now,
	}

	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		HostID:               "host-1",
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: 0,
		Phase:                entity.PhaseQuestion,
		QuestionStartTimeMs:  clock.ms,
		Players: map[string]entity.PlayerState{
			"player-1": {Nickname: "Анна", Score: 0, JoinOrder: 0},
		},
	}
	require.NoError(t, store.Create(context.Background(), record))

	return &ledgerFixture{
		ledger:     NewAnswerLedger(deps),
		store:      store,
		answerRepo: answerRepo,
		cacheRepo:  cacheRepo,
		clock:      clock,
	}
}

// ============================================================================
// Тесты для AnswerLedger
// ============================================================================

func TestAnswerLedger_Submit_CorrectAnswerScored(t *testing.T) {
	// Arrange
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.answerRepo.On("Save", mock.Anything).Return(nil)
	f.clock.Advance(2 * time.Second)

	// Act: правильный вариант через 2 секунды из 10
	answer, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	// Assert
	require.NoError(t, err)
	assert.True(t, answer.IsCorrect)
	assert.Equal(t, int64(2000), answer.ResponseTimeMs)
	assert.Equal(t, 900, answer.Score)

	// Очки зачислены в запись игры
	record, err := f.store.Get(context.Background(), "game-1")
	require.NoError(t, err)
	assert.Equal(t, 900, record.Players["player-1"].Score)
	f.answerRepo.AssertCalled(t, "Save", mock.Anything)
}

func TestAnswerLedger_Submit_IncorrectAnswerZeroScore(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.answerRepo.On("Save", mock.Anything).Return(nil)
	f.clock.Advance(1 * time.Second)

	answer, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 2)

	require.NoError(t, err)
	assert.False(t, answer.IsCorrect)
	assert.Equal(t, 0, answer.Score)

	// Нулевые очки не трогают счет
	record, err := f.store.Get(context.Background(), "game-1")
	require.NoError(t, err)
	assert.Equal(t, 0, record.Players["player-1"].Score)
}

func TestAnswerLedger_Submit_AtWindowEdgeAccepted(t *testing.T) {
	// Ответ ровно на границе окна принимается и дает половину очков
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.answerRepo.On("Save", mock.Anything).Return(nil)
	f.clock.Advance(10 * time.Second)

	answer, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	require.NoError(t, err)
	assert.Equal(t, int64(10000), answer.ResponseTimeMs)
	assert.Equal(t, 500, answer.Score)
}

func TestAnswerLedger_Submit_AfterWindowRejected(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))
	f.clock.Advance(10*time.Second + time.Millisecond)

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrWindowClosed)
	f.answerRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestAnswerLedger_Submit_DuringRevealRejected(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))
	require.NoError(t, f.store.UpdateFields(context.Background(), "game-1",
		map[string]interface{}{"phase": entity.PhaseReveal}, nil))

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrWindowClosed)
}

func TestAnswerLedger_Submit_ForNonCurrentQuestionRejected(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 1, 1)

	assert.ErrorIs(t, err, apperrors.ErrWindowClosed)
}

func TestAnswerLedger_Submit_DuplicateCaughtByCache(t *testing.T) {
	// SetNX вернул false: ответ уже отправлялся, в БД не ходим
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", "answer:game-1:0:player-1", mock.Anything, mock.Anything).Return(false, nil)

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrDuplicateAnswer)
	f.answerRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestAnswerLedger_Submit_DuplicateCaughtByDatabase(t *testing.T) {
	// Кеш пропустил (например, после рестарта Redis), unique index - нет
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.answerRepo.On("Save", mock.Anything).Return(apperrors.ErrDuplicateAnswer)

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrDuplicateAnswer)

	// Счет не изменился
	record, err2 := f.store.Get(context.Background(), "game-1")
	require.NoError(t, err2)
	assert.Equal(t, 0, record.Players["player-1"].Score)
}

func TestAnswerLedger_Submit_RetryAfterDatabaseFailure(t *testing.T) {
	// Сбой БД при первой отправке не должен навсегда запирать участника:
	// дедуп-ключ снимается, и повтор внутри окна проходит
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", "answer:game-1:0:player-1", mock.Anything, mock.Anything).Return(true, nil)
	f.cacheRepo.On("Delete", "answer:game-1:0:player-1").Return(nil)
	f.answerRepo.On("Save", mock.Anything).Return(assert.AnError).Once()
	f.answerRepo.On("Save", mock.Anything).Return(nil).Once()
	f.clock.Advance(1 * time.Second)

	// Act: первая отправка падает на записи в журнал
	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)
	require.ErrorIs(t, err, assert.AnError)
	f.cacheRepo.AssertCalled(t, "Delete", "answer:game-1:0:player-1")

	// Повтор через секунду внутри окна принимается
	f.clock.Advance(1 * time.Second)
	answer, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	require.NoError(t, err)
	assert.True(t, answer.IsCorrect)
	assert.Equal(t, int64(2000), answer.ResponseTimeMs)
}

func TestAnswerLedger_Submit_DedupKeyKeptOnRealDuplicate(t *testing.T) {
	// Настоящий дубль по unique index не снимает дедуп-ключ
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.answerRepo.On("Save", mock.Anything).Return(apperrors.ErrDuplicateAnswer)

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrDuplicateAnswer)
	f.cacheRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestAnswerLedger_Submit_CacheErrorFallsThroughToDatabase(t *testing.T) {
	// Недоступный кеш не блокирует прием ответов
	f := newLedgerFixture(t, newTestQuiz(2))
	f.cacheRepo.On("SetNX", mock.Anything, mock.Anything, mock.Anything).Return(false, assert.AnError)
	f.answerRepo.On("Save", mock.Anything).Return(nil)

	answer, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 1)

	require.NoError(t, err)
	assert.True(t, answer.IsCorrect)
}

func TestAnswerLedger_Submit_InvalidOptionRejected(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))

	_, err := f.ledger.Submit(context.Background(), "game-1", "player-1", 0, 7)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.ledger.Submit(context.Background(), "game-1", "player-1", 0, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAnswerLedger_Submit_NotJoinedRejected(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))

	_, err := f.ledger.Submit(context.Background(), "game-1", "stranger", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAnswerLedger_Submit_UnknownGame(t *testing.T) {
	f := newLedgerFixture(t, newTestQuiz(2))

	_, err := f.ledger.Submit(context.Background(), "missing", "player-1", 0, 1)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
