package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// newTestStore поднимает miniredis и хранилище поверх него
func newTestStore(t *testing.T) *GameRecordStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := NewGameRecordStore(client, time.Hour)
	require.NoError(t, err)
	return store
}

// newTestRecord создает запись игры в лобби с двумя участниками
func newTestRecord() *entity.GameRecord {
	return &entity.GameRecord{
		ID:                   "game-1",
		QuizID:               7,
		ClassID:              "class-1",
		HostID:               "host-1",
		Status:               entity.GameStatusLobby,
		CurrentQuestionIndex: entity.CountdownIndex,
		QuestionStartTimeMs:  1_700_000_000_000,
		Players: map[string]entity.PlayerState{
			"p1": {Nickname: "Анна", Score: 100, JoinOrder: 0},
			"p2": {Nickname: "Борис", Score: 250, JoinOrder: 1},
		},
		CreatedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGameRecordStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := newTestRecord()

	require.NoError(t, store.Create(ctx, record))

	loaded, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, record.QuizID, loaded.QuizID)
	assert.Equal(t, record.ClassID, loaded.ClassID)
	assert.Equal(t, record.HostID, loaded.HostID)
	assert.Equal(t, record.Status, loaded.Status)
	assert.Equal(t, record.CurrentQuestionIndex, loaded.CurrentQuestionIndex)
	assert.Equal(t, record.QuestionStartTimeMs, loaded.QuestionStartTimeMs)
	assert.Equal(t, record.Players, loaded.Players)
	assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
}

func TestGameRecordStore_CreateDuplicateRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestRecord()))

	err := store.Create(ctx, newTestRecord())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGameRecordStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGameRecordStore_UpdateFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))

	err := store.UpdateFields(ctx, "game-1", map[string]interface{}{
		repository.GameFieldStatus:        entity.GameStatusPlaying,
		repository.GameFieldQuestionIndex: 0,
		repository.GameFieldPhase:         entity.PhaseQuestion,
		repository.GameFieldAnchorMs:      int64(1_700_000_005_000),
	}, nil)

	require.NoError(t, err)
	loaded, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusPlaying, loaded.Status)
	assert.Equal(t, 0, loaded.CurrentQuestionIndex)
	assert.Equal(t, entity.PhaseQuestion, loaded.Phase)
	assert.Equal(t, int64(1_700_000_005_000), loaded.QuestionStartTimeMs)
}

func TestGameRecordStore_UpdateFields_GuardMatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))

	guard := &repository.FieldGuard{Field: repository.GameFieldStatus, Equals: entity.GameStatusLobby}
	err := store.UpdateFields(ctx, "game-1",
		map[string]interface{}{repository.GameFieldStatus: entity.GameStatusPlaying}, guard)

	require.NoError(t, err)
	loaded, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GameStatusPlaying, loaded.Status)
}

func TestGameRecordStore_UpdateFields_GuardMismatchRejected(t *testing.T) {
	// Guard защищает переходы от гонок: проигравший получает ErrConflict,
	// а запись остается нетронутой
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))

	guard := &repository.FieldGuard{Field: repository.GameFieldStatus, Equals: entity.GameStatusPlaying}
	err := store.UpdateFields(ctx, "game-1",
		map[string]interface{}{repository.GameFieldStatus: entity.GameStatusFinished}, guard)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	loaded, getErr := store.Get(ctx, "game-1")
	require.NoError(t, getErr)
	assert.Equal(t, entity.GameStatusLobby, loaded.Status)
}

func TestGameRecordStore_UpdateFields_MissingGame(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateFields(context.Background(), "missing",
		map[string]interface{}{repository.GameFieldStatus: entity.GameStatusPlaying}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGameRecordStore_AddPlayer_AssignsJoinOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := newTestRecord()
	record.Players = nil
	require.NoError(t, store.Create(ctx, record))

	require.NoError(t, store.AddPlayer(ctx, "game-1", "p1", "Анна"))
	require.NoError(t, store.AddPlayer(ctx, "game-1", "p2", "Борис"))
	require.NoError(t, store.AddPlayer(ctx, "game-1", "p3", "Вера"))

	loaded, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Players["p1"].JoinOrder)
	assert.Equal(t, 1, loaded.Players["p2"].JoinOrder)
	assert.Equal(t, 2, loaded.Players["p3"].JoinOrder)
}

func TestGameRecordStore_AddPlayer_RejoinKeepsScoreAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))
	require.NoError(t, store.IncrementScore(ctx, "game-1", "p1", 500))

	// Переподключение с новым ником
	require.NoError(t, store.AddPlayer(ctx, "game-1", "p1", "Анна Петровна"))

	loaded, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	player := loaded.Players["p1"]
	assert.Equal(t, "Анна Петровна", player.Nickname)
	assert.Equal(t, 600, player.Score)
	assert.Equal(t, 0, player.JoinOrder)
}

func TestGameRecordStore_IncrementScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))

	require.NoError(t, store.IncrementScore(ctx, "game-1", "p2", 750))

	loaded, err := store.Get(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, 1000, loaded.Players["p2"].Score)
}

func TestGameRecordStore_IncrementScore_UnknownPlayer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))

	err := store.IncrementScore(ctx, "game-1", "stranger", 100)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGameRecordStore_SubscribeDeliversFullSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestRecord()))

	updates := make(chan *entity.GameRecord, 16)
	unsubscribe, err := store.Subscribe(ctx, "game-1", func(record *entity.GameRecord) {
		updates <- record
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.IncrementScore(ctx, "game-1", "p1", 900))

	select {
	case record := <-updates:
		// Подписчик получает полный снимок, не дельту
		assert.Equal(t, "game-1", record.ID)
		assert.Equal(t, 1000, record.Players["p1"].Score)
		assert.Equal(t, 250, record.Players["p2"].Score)
		assert.Equal(t, entity.GameStatusLobby, record.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("обновление не доставлено подписчику")
	}
}
