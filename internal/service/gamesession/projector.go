package gamesession

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// SessionState - проекция записи игры в то, что клиент должен показывать
// прямо сейчас. Тип запечатан: полный набор вариантов - LobbyState,
// CountdownState, ActiveQuestionState, FinishedState. Клиент обязан
// обработать все четыре.
type SessionState interface {
	sessionState()
}

// LobbyState - игра еще не началась, участники собираются
type LobbyState struct {
	GameID      string             `json:"game_id"`
	QuizTitle   string             `json:"quiz_title"`
	PlayerCount int                `json:"player_count"`
	Players     []LeaderboardEntry `json:"players"`
}

// CountdownState - предигровой обратный отсчет
type CountdownState struct {
	GameID      string `json:"game_id"`
	RemainingMs int64  `json:"remaining_ms"`
}

// QuestionView - вопрос в том виде, в котором его можно отдать клиенту.
// CorrectOption заполняется только в фазе reveal: до раскрытия правильный
// ответ не покидает сервер.
type QuestionView struct {
	Text          string   `json:"text"`
	MediaURL      string   `json:"media_url,omitempty"`
	Options       []string `json:"options"`
	TimeLimitMs   int64    `json:"time_limit_ms"`
	MaxPoints     int      `json:"max_points"`
	CorrectOption *int     `json:"correct_option,omitempty"`
}

// ActiveQuestionState - текущий вопрос в фазе приема ответов или показа
// правильного ответа
type ActiveQuestionState struct {
	GameID         string             `json:"game_id"`
	QuestionIndex  int                `json:"question_index"`
	TotalQuestions int                `json:"total_questions"`
	Phase          string             `json:"phase"`
	RemainingMs    int64              `json:"remaining_ms"`
	Question       QuestionView       `json:"question"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// FinishedState - игра завершена, финальная таблица лидеров
type FinishedState struct {
	GameID      string             `json:"game_id"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

func (LobbyState) sessionState()          {}
func (CountdownState) sessionState()      {}
func (ActiveQuestionState) sessionState() {}
func (FinishedState) sessionState()       {}

// Project вычисляет проекцию состояния из записи игры и текущего времени.
// Функция чистая: оставшееся время выводится из якорной метки записи,
// поэтому любые два узла с одинаковой записью и часами получат одинаковую
// проекцию, без рассылки каждого тика по сети.
func Project(record *entity.GameRecord, quiz *entity.Quiz, cfg *Config, nowMs int64) SessionState {
	switch {
	case record.IsFinished():
		return FinishedState{
			GameID:      record.ID,
			Leaderboard: Leaderboard(record),
		}

	case record.IsLobby():
		return LobbyState{
			GameID:      record.ID,
			QuizTitle:   quiz.Title,
			PlayerCount: record.PlayerCount(),
			Players:     Leaderboard(record),
		}

	case record.InCountdown():
		limitMs := int64(cfg.CountdownSeconds) * 1000
		return CountdownState{
			GameID:      record.ID,
			RemainingMs: remaining(limitMs, record.ElapsedMs(nowMs)),
		}

	default:
		question, err := quiz.QuestionAt(record.CurrentQuestionIndex)
		if err != nil {
			// Индекс за пределами викторины не должен попадать в запись
			log.Printf("[Projector] Игра %s: индекс %d вне викторины #%d", record.ID, record.CurrentQuestionIndex, quiz.ID)
			return FinishedState{GameID: record.ID, Leaderboard: Leaderboard(record)}
		}

		view := QuestionView{
			Text:        question.Text,
			MediaURL:    question.MediaURL,
			Options:     question.Options,
			TimeLimitMs: question.TimeLimitMs(),
			MaxPoints:   question.MaxPoints,
		}

		state := ActiveQuestionState{
			GameID:         record.ID,
			QuestionIndex:  record.CurrentQuestionIndex,
			TotalQuestions: len(quiz.Questions),
			Phase:          record.Phase,
			Question:       view,
		}

		if record.Phase == entity.PhaseReveal {
			correct := question.CorrectOption
			state.Question.CorrectOption = &correct
			state.RemainingMs = remaining(int64(cfg.RevealSeconds)*1000, record.ElapsedMs(nowMs))
			state.Leaderboard = Leaderboard(record)
		} else {
			state.RemainingMs = remaining(question.TimeLimitMs(), record.ElapsedMs(nowMs))
		}
		return state
	}
}

// remaining возвращает оставшееся время окна, не опускаясь ниже нуля
func remaining(limitMs, elapsedMs int64) int64 {
	r := limitMs - elapsedMs
	if r < 0 {
		return 0
	}
	return r
}

// Projector периодически пересчитывает проекцию состояния игры и отдает
// ее подписчику. Экземпляр ведущего дополнительно двигает игру вперед,
// когда окно истекает: завершение отсчета, авто-раскрытие вопроса и,
// если включен Config.AutoAdvance, переход к следующему вопросу после
// показа ответа. Без живого экземпляра ведущего игра
// стоит на месте - это осознанная цена отсутствия серверных таймеров.
type Projector struct {
	deps    *Dependencies
	machine *StateMachine
	gameID  string
	host    bool

	mu     sync.RWMutex
	record *entity.GameRecord
	quiz   *entity.Quiz

	states chan SessionState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProjector создает проектор состояния для одной игры.
// host=true включает автоматические переходы.
func NewProjector(deps *Dependencies, machine *StateMachine, gameID string, host bool) *Projector {
	return &Projector{
		deps:    deps,
		machine: machine,
		gameID:  gameID,
		host:    host,
		states:  make(chan SessionState, 16),
	}
}

// States возвращает канал проекций. Канал закрывается при остановке.
func (p *Projector) States() <-chan SessionState {
	return p.states
}

// Start загружает запись игры, подписывается на ее изменения и запускает
// цикл пересчета проекции
func (p *Projector) Start(ctx context.Context) error {
	record, err := p.deps.GameStore.Get(ctx, p.gameID)
	if err != nil {
		return err
	}
	quiz, err := p.deps.QuizRepo.GetWithQuestions(record.QuizID)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Lock()
	p.record = record
	p.quiz = quiz
	p.mu.Unlock()

	unsubscribe, err := p.deps.GameStore.Subscribe(runCtx, p.gameID, func(updated *entity.GameRecord) {
		p.mu.Lock()
		p.record = updated
		p.mu.Unlock()
	})
	if err != nil {
		cancel()
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer unsubscribe()
		defer close(p.states)
		p.run(runCtx)
	}()

	log.Printf("[Projector] Запущен для игры %s (host=%v)", p.gameID, p.host)
	return nil
}

// Stop останавливает цикл пересчета и ждет его завершения
func (p *Projector) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// run - основной цикл: каждый тик пересчитывает проекцию, отдает ее
// подписчику и, в режиме ведущего, двигает игру вперед
func (p *Projector) run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(p.deps.Config.ProjectorTickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			record := p.record
			quiz := p.quiz
			p.mu.RUnlock()

			state := Project(record, quiz, p.deps.Config, p.deps.nowMs())
			p.emit(state)

			if p.host {
				p.drive(ctx, state)
			}

			if _, done := state.(FinishedState); done {
				log.Printf("[Projector] Игра %s завершена, остановка", p.gameID)
				return
			}
		}
	}
}

// emit отдает проекцию в канал без блокировки цикла.
// Если подписчик не успевает, устаревшая проекция вытесняется.
func (p *Projector) emit(state SessionState) {
	select {
	case p.states <- state:
	default:
		select {
		case <-p.states:
		default:
		}
		select {
		case p.states <- state:
		default:
		}
	}
}

// drive выполняет автоматические переходы, когда окно текущего состояния
// истекло. Гонки с ручными командами ведущего и другими экземплярами
// разрешаются guard-проверками в машине состояний: проигравший переход
// получает ErrInvalidTransition, и это штатно.
func (p *Projector) drive(ctx context.Context, state SessionState) {
	var err error
	switch s := state.(type) {
	case CountdownState:
		if s.RemainingMs == 0 {
			err = p.machine.AdvanceFromCountdown(ctx, p.gameID)
		}
	case ActiveQuestionState:
		if s.RemainingMs > 0 {
			return
		}
		if s.Phase == entity.PhaseQuestion {
			err = p.machine.Reveal(ctx, p.gameID, s.QuestionIndex)
		} else if p.deps.Config.AutoAdvance {
			err = p.machine.Next(ctx, p.gameID)
		}
	default:
		return
	}

	if err != nil && !errors.Is(err, apperrors.ErrInvalidTransition) && !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[Projector] Игра %s: ошибка автоперехода: %v", p.gameID, err)
	}
}
