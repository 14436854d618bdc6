package entity

import (
	"time"
)

// Константы статусов игровой сессии. Статус двигается только вперед:
// lobby → playing → finished.
const (
	GameStatusLobby    = "lobby"
	GameStatusPlaying  = "playing"
	GameStatusFinished = "finished"
)

// Константы фазы активного вопроса. Фаза имеет смысл только при
// status=playing и CurrentQuestionIndex >= 0 и переходит только
// question → reveal, никогда обратно.
const (
	PhaseQuestion = "question"
	PhaseReveal   = "reveal"
)

// CountdownIndex - значение CurrentQuestionIndex во время предигрового
// обратного отсчета (до первого вопроса).
const CountdownIndex = -1

// PlayerState хранит состояние одного участника внутри GameRecord.
// JoinOrder используется как детерминированный tie-break в лидерборде.
type PlayerState struct {
	Nickname  string `json:"nickname"`
	Score     int    `json:"score"`
	JoinOrder int    `json:"join_order"`
}

// GameRecord - единственный источник истины об игровой сессии.
// Одна изменяемая запись на игру; все клиенты сходятся к её содержимому
// через подписку на изменения в GameRecordStore.
type GameRecord struct {
	ID      string `json:"id"`
	QuizID  uint   `json:"quiz_id"`
	ClassID string `json:"class_id"`
	HostID  string `json:"host_id"`

	Status string `json:"status"`

	// CurrentQuestionIndex начинается с CountdownIndex (-1) и монотонно
	// растет до questionCount-1. Никогда не уменьшается.
	CurrentQuestionIndex int `json:"current_question_index"`

	Phase string `json:"phase,omitempty"`

	// QuestionStartTimeMs - якорная метка времени (Unix ms), перезаписываемая
	// при каждом переходе: вход в отсчет, открытие вопроса, раскрытие ответа.
	// Весь расчет оставшегося времени на любом клиенте:
	// elapsed = now - QuestionStartTimeMs.
	QuestionStartTimeMs int64 `json:"question_start_time_ms"`

	Players map[string]PlayerState `json:"players"`

	CreatedAt time.Time `json:"created_at"`
}

// IsLobby проверяет, что игра еще в лобби
func (g *GameRecord) IsLobby() bool {
	return g.Status == GameStatusLobby
}

// IsPlaying проверяет, что игра идет
func (g *GameRecord) IsPlaying() bool {
	return g.Status == GameStatusPlaying
}

// IsFinished проверяет, что игра завершена
func (g *GameRecord) IsFinished() bool {
	return g.Status == GameStatusFinished
}

// InCountdown проверяет, что игра находится в предигровом отсчете
func (g *GameRecord) InCountdown() bool {
	return g.IsPlaying() && g.CurrentQuestionIndex == CountdownIndex
}

// InQuestionPhase проверяет, что вопрос index сейчас принимает ответы
func (g *GameRecord) InQuestionPhase(index int) bool {
	return g.IsPlaying() && g.CurrentQuestionIndex == index && g.Phase == PhaseQuestion
}

// PlayerCount возвращает количество присоединившихся участников
func (g *GameRecord) PlayerCount() int {
	return len(g.Players)
}

// ElapsedMs возвращает время в мс, прошедшее с якорной метки
func (g *GameRecord) ElapsedMs(nowMs int64) int64 {
	elapsed := nowMs - g.QuestionStartTimeMs
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Clone возвращает глубокую копию записи. Используется хранилищами,
// чтобы подписчики не делили изменяемую players-карту.
func (g *GameRecord) Clone() *GameRecord {
	cp := *g
	cp.Players = make(map[string]PlayerState, len(g.Players))
	for id, p := range g.Players {
		cp.Players[id] = p
	}
	return &cp
}
