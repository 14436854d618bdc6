package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// GameRecordStore реализует repository.GameRecordStore в памяти процесса.
// Используется в тестах и при локальной разработке без Redis. Семантика
// повторяет redis-реализацию: guard-проверки, полные снимки подписчикам.
type GameRecordStore struct {
	mu      sync.RWMutex
	records map[string]*entity.GameRecord

	subMu   sync.RWMutex
	subs    map[string]map[int]repository.RecordCallback
	nextSub int
}

// NewGameRecordStore создает новое in-memory хранилище игровых записей
func NewGameRecordStore() *GameRecordStore {
	return &GameRecordStore{
		records: make(map[string]*entity.GameRecord),
		subs:    make(map[string]map[int]repository.RecordCallback),
	}
}

// Create сохраняет новую запись игры
func (s *GameRecordStore) Create(ctx context.Context, record *entity.GameRecord) error {
	s.mu.Lock()
	if _, ok := s.records[record.ID]; ok {
		s.mu.Unlock()
		return apperrors.ErrConflict
	}
	stored := record.Clone()
	if stored.Players == nil {
		stored.Players = make(map[string]entity.PlayerState)
	}
	s.records[record.ID] = stored
	snapshot := stored.Clone()
	s.mu.Unlock()

	s.notify(record.ID, snapshot)
	return nil
}

// Get возвращает копию текущего состояния записи
func (s *GameRecordStore) Get(ctx context.Context, id string) (*entity.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return record.Clone(), nil
}

// UpdateFields атомарно обновляет перечисленные поля записи
func (s *GameRecordStore) UpdateFields(ctx context.Context, id string, fields map[string]interface{}, guard *repository.FieldGuard) error {
	s.mu.Lock()
	record, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.ErrNotFound
	}

	if guard != nil {
		if current := fieldValue(record, guard.Field); current != guard.Equals {
			s.mu.Unlock()
			return apperrors.ErrConflict
		}
	}

	for field, value := range fields {
		if err := applyField(record, field, value); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	snapshot := record.Clone()
	s.mu.Unlock()

	s.notify(id, snapshot)
	return nil
}

// AddPlayer добавляет участника. Повторное присоединение обновляет только
// nickname, сохраняя счет и исходный join order.
func (s *GameRecordStore) AddPlayer(ctx context.Context, id string, participantID string, nickname string) error {
	s.mu.Lock()
	record, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.ErrNotFound
	}

	if existing, joined := record.Players[participantID]; joined {
		existing.Nickname = nickname
		record.Players[participantID] = existing
	} else {
		record.Players[participantID] = entity.PlayerState{
			Nickname:  nickname,
			Score:     0,
			JoinOrder: len(record.Players),
		}
	}
	snapshot := record.Clone()
	s.mu.Unlock()

	s.notify(id, snapshot)
	return nil
}

// IncrementScore атомарно увеличивает счет участника
func (s *GameRecordStore) IncrementScore(ctx context.Context, id string, participantID string, delta int) error {
	s.mu.Lock()
	record, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.ErrNotFound
	}
	player, joined := record.Players[participantID]
	if !joined {
		s.mu.Unlock()
		return apperrors.ErrNotFound
	}
	player.Score += delta
	record.Players[participantID] = player
	snapshot := record.Clone()
	s.mu.Unlock()

	s.notify(id, snapshot)
	return nil
}

// Subscribe подписывает callback на изменения записи игры
func (s *GameRecordStore) Subscribe(ctx context.Context, id string, callback repository.RecordCallback) (func(), error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subs[id] == nil {
		s.subs[id] = make(map[int]repository.RecordCallback)
	}
	subID := s.nextSub
	s.nextSub++
	s.subs[id][subID] = callback

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if callbacks, ok := s.subs[id]; ok {
			delete(callbacks, subID)
			if len(callbacks) == 0 {
				delete(s.subs, id)
			}
		}
	}
	return unsubscribe, nil
}

// notify рассылает снимок записи всем подписчикам игры.
// Каждый подписчик получает собственную копию.
func (s *GameRecordStore) notify(id string, snapshot *entity.GameRecord) {
	s.subMu.RLock()
	callbacks := make([]repository.RecordCallback, 0, len(s.subs[id]))
	for _, cb := range s.subs[id] {
		callbacks = append(callbacks, cb)
	}
	s.subMu.RUnlock()

	for _, cb := range callbacks {
		cb(snapshot.Clone())
	}
}

// fieldValue возвращает строковое представление guard-поля,
// совпадающее с тем, как поле хранится в Redis-хеше
func fieldValue(record *entity.GameRecord, field string) string {
	switch field {
	case repository.GameFieldStatus:
		return record.Status
	case repository.GameFieldPhase:
		return record.Phase
	case repository.GameFieldQuestionIndex:
		return strconv.Itoa(record.CurrentQuestionIndex)
	case repository.GameFieldAnchorMs:
		return strconv.FormatInt(record.QuestionStartTimeMs, 10)
	default:
		return ""
	}
}

// applyField применяет одно именованное обновление к записи
func applyField(record *entity.GameRecord, field string, value interface{}) error {
	switch field {
	case repository.GameFieldStatus:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: status must be a string", apperrors.ErrValidation)
		}
		record.Status = v
	case repository.GameFieldPhase:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: phase must be a string", apperrors.ErrValidation)
		}
		record.Phase = v
	case repository.GameFieldQuestionIndex:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("%w: question index must be an int", apperrors.ErrValidation)
		}
		record.CurrentQuestionIndex = v
	case repository.GameFieldAnchorMs:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("%w: anchor must be an int64", apperrors.ErrValidation)
		}
		record.QuestionStartTimeMs = v
	default:
		return fmt.Errorf("%w: unknown game field %q", apperrors.ErrValidation, field)
	}
	return nil
}
