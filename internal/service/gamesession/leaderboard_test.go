package gamesession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
)

func TestLeaderboard_OrdersByScoreDescending(t *testing.T) {
	record := &entity.GameRecord{
		ID: "game-1",
		Players: map[string]entity.PlayerState{
			"p1": {Nickname: "Анна", Score: 500, JoinOrder: 0},
			"p2": {Nickname: "Борис", Score: 1500, JoinOrder: 1},
			"p3": {Nickname: "Вера", Score: 900, JoinOrder: 2},
		},
	}

	entries := Leaderboard(record)

	require.Len(t, entries, 3)
	assert.Equal(t, "p2", entries[0].ParticipantID)
	assert.Equal(t, "p3", entries[1].ParticipantID)
	assert.Equal(t, "p1", entries[2].ParticipantID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboard_TiesBrokenByJoinOrder(t *testing.T) {
	// При равных очках раньше присоединившийся стоит выше
	record := &entity.GameRecord{
		ID: "game-1",
		Players: map[string]entity.PlayerState{
			"late":  {Nickname: "Поздний", Score: 700, JoinOrder: 5},
			"early": {Nickname: "Ранний", Score: 700, JoinOrder: 1},
			"mid":   {Nickname: "Средний", Score: 700, JoinOrder: 3},
		},
	}

	entries := Leaderboard(record)

	require.Len(t, entries, 3)
	assert.Equal(t, "early", entries[0].ParticipantID)
	assert.Equal(t, "mid", entries[1].ParticipantID)
	assert.Equal(t, "late", entries[2].ParticipantID)
}

func TestLeaderboard_DeterministicAcrossCalls(t *testing.T) {
	// Итерация по map недетерминирована, результат - обязан быть детерминирован
	record := &entity.GameRecord{
		ID: "game-1",
		Players: map[string]entity.PlayerState{
			"a": {Score: 100, JoinOrder: 0},
			"b": {Score: 100, JoinOrder: 1},
			"c": {Score: 100, JoinOrder: 2},
			"d": {Score: 200, JoinOrder: 3},
			"e": {Score: 100, JoinOrder: 4},
		},
	}

	first := Leaderboard(record)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Leaderboard(record))
	}
}

func TestLeaderboard_EmptyGame(t *testing.T) {
	record := &entity.GameRecord{ID: "game-1", Players: map[string]entity.PlayerState{}}
	assert.Empty(t, Leaderboard(record))
}
