package gamesession

import (
	"sort"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
)

// LeaderboardEntry - одна строка таблицы лидеров
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Score         int    `json:"score"`
}

// Leaderboard строит таблицу лидеров из записи игры: по убыванию очков,
// при равенстве очков раньше присоединившийся стоит выше. Порядок полностью
// детерминирован, поэтому все клиенты отрисуют одинаковую таблицу.
func Leaderboard(record *entity.GameRecord) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(record.Players))
	joinOrder := make(map[string]int, len(record.Players))
	for pid, player := range record.Players {
		entries = append(entries, LeaderboardEntry{
			ParticipantID: pid,
			Nickname:      player.Nickname,
			Score:         player.Score,
		})
		joinOrder[pid] = player.JoinOrder
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return joinOrder[entries[i].ParticipantID] < joinOrder[entries[j].ParticipantID]
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
