package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service/gamesession"
)

// GameService - фасад игровых сессий: создание и вступление в игру,
// команды ведущего, прием ответов, лидерборд. Вся игровая логика живет
// в пакете gamesession; сервис добавляет проверки ролей и управление
// жизненным циклом проектора ведущего.
type GameService struct {
	gameStore  repository.GameRecordStore
	answerRepo repository.AnswerRepository
	deps       *gamesession.Dependencies
	machine    *gamesession.StateMachine
	ledger     *gamesession.AnswerLedger

	mu         sync.Mutex
	projectors map[string]*gamesession.Projector
}

// NewGameService создает новый сервис игровых сессий
func NewGameService(
	gameStore repository.GameRecordStore,
	quizRepo repository.QuizRepository,
	answerRepo repository.AnswerRepository,
	cacheRepo repository.CacheRepository,
	config *gamesession.Config,
) *GameService {
	deps := &gamesession.Dependencies{
		GameStore:  gameStore,
		QuizRepo:   quizRepo,
		AnswerRepo: answerRepo,
		CacheRepo:  cacheRepo,
		Config:     config,
	}
	return &GameService{
		gameStore:  gameStore,
		answerRepo: answerRepo,
		deps:       deps,
		machine:    gamesession.NewStateMachine(deps),
		ledger:     gamesession.NewAnswerLedger(deps),
		projectors: make(map[string]*gamesession.Projector),
	}
}

// CreateGame создает игру в лобби по существующей викторине
func (s *GameService) CreateGame(ctx context.Context, quizID uint, hostID, classID string) (*entity.GameRecord, error) {
	quiz, err := s.deps.QuizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz #%d has no questions", apperrors.ErrValidation, quizID)
	}

	record := &entity.GameRecord{
		ID:                   uuid.NewString(),
		QuizID:               quizID,
		ClassID:              classID,
		HostID:               hostID,
		Status:               entity.GameStatusLobby,
		CurrentQuestionIndex: entity.CountdownIndex,
		Players:              map[string]entity.PlayerState{},
		CreatedAt:            s.now(),
	}
	if err := s.gameStore.Create(ctx, record); err != nil {
		return nil, err
	}

	log.Printf("[GameService] Создана игра %s по викторине #%d (ведущий %s)", record.ID, quizID, hostID)
	return record, nil
}

// JoinGame добавляет участника в игру. Присоединяться можно и после
// старта; закрыта только завершенная игра. Повторный вход того же
// участника не сбрасывает его счет.
func (s *GameService) JoinGame(ctx context.Context, gameID, participantID, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("%w: nickname is required", apperrors.ErrValidation)
	}

	record, err := s.gameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if record.IsFinished() {
		return fmt.Errorf("%w: game %s is finished", apperrors.ErrInvalidTransition, gameID)
	}

	if err := s.gameStore.AddPlayer(ctx, gameID, participantID, nickname); err != nil {
		return err
	}
	log.Printf("[GameService] Участник %s (%s) вошел в игру %s", participantID, nickname, gameID)
	return nil
}

// StartGame запускает игру по команде ведущего и поднимает его проектор,
// который дальше сам двигает игру по таймингам
func (s *GameService) StartGame(ctx context.Context, gameID, requesterID string) error {
	if err := s.requireHost(ctx, gameID, requesterID); err != nil {
		return err
	}
	if err := s.machine.Start(ctx, gameID); err != nil {
		return err
	}
	return s.ensureHostProjector(gameID)
}

// RevealAnswer досрочно раскрывает правильный ответ текущего вопроса
func (s *GameService) RevealAnswer(ctx context.Context, gameID, requesterID string, questionIndex int) error {
	if err := s.requireHost(ctx, gameID, requesterID); err != nil {
		return err
	}
	if err := s.machine.Reveal(ctx, gameID, questionIndex); err != nil {
		return err
	}
	return s.ensureHostProjector(gameID)
}

// NextQuestion вручную переводит игру к следующему вопросу
func (s *GameService) NextQuestion(ctx context.Context, gameID, requesterID string) error {
	if err := s.requireHost(ctx, gameID, requesterID); err != nil {
		return err
	}
	if err := s.machine.Next(ctx, gameID); err != nil {
		return err
	}
	return s.ensureHostProjector(gameID)
}

// EndGame досрочно завершает игру
func (s *GameService) EndGame(ctx context.Context, gameID, requesterID string) error {
	if err := s.requireHost(ctx, gameID, requesterID); err != nil {
		return err
	}
	return s.machine.End(ctx, gameID)
}

// SubmitAnswer принимает ответ участника на вопрос
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, participantID string, questionIndex, selectedOption int) (*entity.AnswerRecord, error) {
	return s.ledger.Submit(ctx, gameID, participantID, questionIndex, selectedOption)
}

// GetGame возвращает текущую запись игры
func (s *GameService) GetGame(ctx context.Context, gameID string) (*entity.GameRecord, error) {
	return s.gameStore.Get(ctx, gameID)
}

// GetSessionState возвращает проекцию состояния игры на текущий момент.
// Клиент, вернувшийся после потери соединения, восстанавливается одним
// вызовом: проекция выводится из записи и часов, без истории событий.
func (s *GameService) GetSessionState(ctx context.Context, gameID string) (gamesession.SessionState, error) {
	record, err := s.gameStore.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.deps.QuizRepo.GetWithQuestions(record.QuizID)
	if err != nil {
		return nil, err
	}
	return gamesession.Project(record, quiz, s.deps.Config, s.now().UnixMilli()), nil
}

// GetLeaderboard возвращает таблицу лидеров игры
func (s *GameService) GetLeaderboard(ctx context.Context, gameID string) ([]gamesession.LeaderboardEntry, error) {
	record, err := s.gameStore.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return gamesession.Leaderboard(record), nil
}

// GameResults возвращает журнал ответов игры для разбора после завершения
func (s *GameService) GameResults(ctx context.Context, gameID string) ([]entity.AnswerRecord, error) {
	if _, err := s.gameStore.Get(ctx, gameID); err != nil {
		return nil, err
	}
	return s.answerRepo.ListForGame(gameID)
}

// WatchGame создает проектор-наблюдатель для одного клиента: поток
// проекций без права двигать игру. Вызывающий обязан остановить проектор.
func (s *GameService) WatchGame(ctx context.Context, gameID string) (*gamesession.Projector, error) {
	projector := gamesession.NewProjector(s.deps, s.machine, gameID, false)
	if err := projector.Start(ctx); err != nil {
		return nil, err
	}
	return projector, nil
}

// Shutdown останавливает все проекторы ведущего
func (s *GameService) Shutdown() {
	s.mu.Lock()
	projectors := make([]*gamesession.Projector, 0, len(s.projectors))
	for _, p := range s.projectors {
		projectors = append(projectors, p)
	}
	s.mu.Unlock()

	for _, p := range projectors {
		p.Stop()
	}
}

// requireHost проверяет, что команду отдает ведущий игры
func (s *GameService) requireHost(ctx context.Context, gameID, requesterID string) error {
	record, err := s.gameStore.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if record.HostID != requesterID {
		return fmt.Errorf("%w: only the host can control game %s", apperrors.ErrUnauthorized, gameID)
	}
	return nil
}

// ensureHostProjector поднимает проектор ведущего для игры, если его
// еще нет. Проектор живет до завершения игры и убирает себя из карты.
// Вызывается из каждой успешной команды ведущего: после рестарта
// процесса карта проекторов пуста, и первая же команда по идущей игре
// возобновляет автопереходы.
func (s *GameService) ensureHostProjector(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.projectors[gameID]; running {
		return nil
	}

	projector := gamesession.NewProjector(s.deps, s.machine, gameID, true)
	if err := projector.Start(context.Background()); err != nil {
		return err
	}
	s.projectors[gameID] = projector

	go func() {
		// Канал проекций закрывается, когда проектор останавливается
		for range projector.States() {
		}
		s.mu.Lock()
		delete(s.projectors, gameID)
		s.mu.Unlock()
	}()
	return nil
}

// now - время сервиса; подменяется через Dependencies.Now в тестах
func (s *GameService) now() time.Time {
	if s.deps.Now != nil {
		return s.deps.Now()
	}
	return time.Now()
}
