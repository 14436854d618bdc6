package gamesession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/repository/memory"
)

// ============================================================================
// Тесты чистой проекции Project
// ============================================================================

func TestProject_Lobby(t *testing.T) {
	quiz := newTestQuiz(2)
	record := &entity.GameRecord{
		ID:     "game-1",
		QuizID: quiz.ID,
		Status: entity.GameStatusLobby,
		Players: map[string]entity.PlayerState{
			"p1": {Nickname: "Анна", JoinOrder: 0},
			"p2": {Nickname: "Борис", JoinOrder: 1},
		},
	}

	state := Project(record, quiz, DefaultConfig(), 1_700_000_000_000)

	lobby, ok := state.(LobbyState)
	require.True(t, ok)
	assert.Equal(t, "game-1", lobby.GameID)
	assert.Equal(t, quiz.Title, lobby.QuizTitle)
	assert.Equal(t, 2, lobby.PlayerCount)
}

func TestProject_CountdownRemaining(t *testing.T) {
	quiz := newTestQuiz(2)
	anchor := int64(1_700_000_000_000)
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: entity.CountdownIndex,
		QuestionStartTimeMs:  anchor,
		Players:              map[string]entity.PlayerState{},
	}

	// Через 2 секунды из 5 осталось 3
	state := Project(record, quiz, DefaultConfig(), anchor+2000)
	countdown, ok := state.(CountdownState)
	require.True(t, ok)
	assert.Equal(t, int64(3000), countdown.RemainingMs)

	// Оставшееся время не уходит в минус
	state = Project(record, quiz, DefaultConfig(), anchor+60000)
	countdown, ok = state.(CountdownState)
	require.True(t, ok)
	assert.Equal(t, int64(0), countdown.RemainingMs)
}

func TestProject_QuestionPhaseHidesCorrectOption(t *testing.T) {
	quiz := newTestQuiz(2)
	anchor := int64(1_700_000_000_000)
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: 0,
		Phase:                entity.PhaseQuestion,
		QuestionStartTimeMs:  anchor,
		Players:              map[string]entity.PlayerState{},
	}

	state := Project(record, quiz, DefaultConfig(), anchor+4000)

	question, ok := state.(ActiveQuestionState)
	require.True(t, ok)
	assert.Equal(t, 0, question.QuestionIndex)
	assert.Equal(t, 2, question.TotalQuestions)
	assert.Equal(t, entity.PhaseQuestion, question.Phase)
	assert.Equal(t, int64(6000), question.RemainingMs)
	// До раскрытия правильный ответ не покидает сервер
	assert.Nil(t, question.Question.CorrectOption)
	assert.Empty(t, question.Leaderboard)
}

func TestProject_RevealExposesCorrectOptionAndLeaderboard(t *testing.T) {
	quiz := newTestQuiz(2)
	anchor := int64(1_700_000_000_000)
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: 0,
		Phase:                entity.PhaseReveal,
		QuestionStartTimeMs:  anchor,
		Players: map[string]entity.PlayerState{
			"p1": {Nickname: "Анна", Score: 900, JoinOrder: 0},
		},
	}

	state := Project(record, quiz, DefaultConfig(), anchor+1000)

	question, ok := state.(ActiveQuestionState)
	require.True(t, ok)
	assert.Equal(t, entity.PhaseReveal, question.Phase)
	require.NotNil(t, question.Question.CorrectOption)
	assert.Equal(t, 1, *question.Question.CorrectOption)
	require.Len(t, question.Leaderboard, 1)
	assert.Equal(t, 900, question.Leaderboard[0].Score)
	// Осталось 4 секунды показа ответа из 5
	assert.Equal(t, int64(4000), question.RemainingMs)
}

func TestProject_Finished(t *testing.T) {
	quiz := newTestQuiz(2)
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		Status:               entity.GameStatusFinished,
		CurrentQuestionIndex: 1,
		Players: map[string]entity.PlayerState{
			"p1": {Nickname: "Анна", Score: 900, JoinOrder: 0},
			"p2": {Nickname: "Борис", Score: 1500, JoinOrder: 1},
		},
	}

	state := Project(record, quiz, DefaultConfig(), 1_700_000_000_000)

	finished, ok := state.(FinishedState)
	require.True(t, ok)
	require.Len(t, finished.Leaderboard, 2)
	assert.Equal(t, "p2", finished.Leaderboard[0].ParticipantID)
}

func TestProject_SameInputsSameProjection(t *testing.T) {
	// Два узла с одинаковой записью и часами обязаны показать одно и то же
	quiz := newTestQuiz(2)
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: 0,
		Phase:                entity.PhaseQuestion,
		QuestionStartTimeMs:  1_700_000_000_000,
		Players:              map[string]entity.PlayerState{},
	}

	first := Project(record, quiz, DefaultConfig(), 1_700_000_003_000)
	second := Project(record.Clone(), quiz, DefaultConfig(), 1_700_000_003_000)
	assert.Equal(t, first, second)
}

// ============================================================================
// Тесты живого проектора
// ============================================================================

func TestProjector_HostDrivesGameToCompletion(t *testing.T) {
	// Игра с нулевым отсчетом, одним вопросом на 1 секунду и нулевым
	// показом ответа: проектор ведущего должен сам довести ее до конца
	quiz := newTestQuiz(1)
	quiz.Questions[0].TimeLimitSec = 1

	store := memory.NewGameRecordStore()
	mockQuizRepo := new(MockQuizRepoForStateMachine)
	mockQuizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)

	cfg := &Config{
		CountdownSeconds: 0,
		RevealSeconds:    0,
		ProjectorTickMs:  10,
		AutoAdvance:      true,
		AnswerDedupTTL:   time.Hour,
	}
	deps := &Dependencies{
		GameStore: store,
		QuizRepo:  mockQuizRepo,
		Config:    cfg,
	}

	ctx := context.Background()
	record := &entity.GameRecord{
		ID:     "game-1",
		QuizID: quiz.ID,
		HostID: "host-1",
		Status: entity.GameStatusLobby,
		Players: map[string]entity.PlayerState{
			"player-1": {Nickname: "Анна", Score: 0, JoinOrder: 0},
		},
	}
	require.NoError(t, store.Create(ctx, record))

	machine := NewStateMachine(deps)
	projector := NewProjector(deps, machine, "game-1", true)
	require.NoError(t, projector.Start(ctx))
	defer projector.Stop()

	require.NoError(t, machine.Start(ctx, "game-1"))

	// Ждем, пока проектор проведет игру через отсчет, вопрос и показ ответа
	deadline := time.After(5 * time.Second)
	for {
		select {
		case state, ok := <-projector.States():
			if !ok {
				t.Fatal("канал проекций закрыт до завершения игры")
			}
			if _, done := state.(FinishedState); done {
				final, err := store.Get(ctx, "game-1")
				require.NoError(t, err)
				assert.True(t, final.IsFinished())
				return
			}
		case <-deadline:
			t.Fatal("проектор не довел игру до finished за отведенное время")
		}
	}
}

func TestProjector_RevealHeldWithoutAutoAdvance(t *testing.T) {
	// Без AutoAdvance проектор ведущего держит фазу показа ответа:
	// следующий вопрос открывает только команда ведущего
	quiz := newTestQuiz(2)
	store := memory.NewGameRecordStore()
	mockQuizRepo := new(MockQuizRepoForStateMachine)
	mockQuizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)

	cfg := &Config{
		CountdownSeconds: 0,
		RevealSeconds:    0,
		ProjectorTickMs:  10,
		AnswerDedupTTL:   time.Hour,
	}
	deps := &Dependencies{
		GameStore: store,
		QuizRepo:  mockQuizRepo,
		Config:    cfg,
	}

	ctx := context.Background()
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		HostID:               "host-1",
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: 0,
		Phase:                entity.PhaseReveal,
		QuestionStartTimeMs:  time.Now().UnixMilli() - 60_000,
		Players: map[string]entity.PlayerState{
			"player-1": {Nickname: "Анна", Score: 0, JoinOrder: 0},
		},
	}
	require.NoError(t, store.Create(ctx, record))

	machine := NewStateMachine(deps)
	projector := NewProjector(deps, machine, "game-1", true)
	require.NoError(t, projector.Start(ctx))
	defer projector.Stop()

	time.Sleep(200 * time.Millisecond)

	current, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 0, current.CurrentQuestionIndex)
	assert.Equal(t, entity.PhaseReveal, current.Phase)

	// Команда ведущего двигает игру дальше
	require.NoError(t, machine.Next(ctx, "game-1"))
	current, err = store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 1, current.CurrentQuestionIndex)
	assert.Equal(t, entity.PhaseQuestion, current.Phase)
}

func TestProjector_ObserverDoesNotDrive(t *testing.T) {
	// Проектор без роли ведущего только проецирует: игра стоит в отсчете
	quiz := newTestQuiz(1)
	store := memory.NewGameRecordStore()
	mockQuizRepo := new(MockQuizRepoForStateMachine)
	mockQuizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)

	cfg := &Config{
		CountdownSeconds: 0,
		RevealSeconds:    0,
		ProjectorTickMs:  10,
		AnswerDedupTTL:   time.Hour,
	}
	deps := &Dependencies{
		GameStore: store,
		QuizRepo:  mockQuizRepo,
		Config:    cfg,
	}

	ctx := context.Background()
	record := &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               quiz.ID,
		HostID:               "host-1",
		Status:               entity.GameStatusPlaying,
		CurrentQuestionIndex: entity.CountdownIndex,
		QuestionStartTimeMs:  time.Now().UnixMilli(),
		Players:              map[string]entity.PlayerState{},
	}
	require.NoError(t, store.Create(ctx, record))

	machine := NewStateMachine(deps)
	projector := NewProjector(deps, machine, "game-1", false)
	require.NoError(t, projector.Start(ctx))
	defer projector.Stop()

	time.Sleep(200 * time.Millisecond)

	current, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.True(t, current.InCountdown(), "наблюдатель не должен двигать игру")
}
