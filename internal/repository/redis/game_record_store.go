package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// Префиксы полей участников внутри хеша игры. Счет хранится отдельным
// integer-полем, чтобы HINCRBY работал атомарно без чтения-модификации.
const (
	playerNickPrefix  = "nick:"
	playerScorePrefix = "score:"
	playerJoinPrefix  = "join:"
)

// Количество повторов оптимистичной транзакции при TxFailedErr.
// Несовпадение guard повтором не лечится и возвращается сразу.
const maxTxRetries = 5

// GameRecordStore реализует repository.GameRecordStore поверх Redis.
// Запись игры - один хеш game:{id}; каждое изменение публикует полный
// снимок записи в канал game:{id}:updates, на который подписываются
// все заинтересованные клиенты.
type GameRecordStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewGameRecordStore создает новое хранилище игровых записей
func NewGameRecordStore(client redis.UniversalClient, ttl time.Duration) (*GameRecordStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for GameRecordStore")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GameRecordStore{
		client: client,
		ttl:    ttl,
	}, nil
}

func gameKey(id string) string {
	return "game:" + id
}

func updatesChannel(id string) string {
	return "game:" + id + ":updates"
}

// Create сохраняет новую запись игры. Возвращает ErrConflict, если запись
// с таким ID уже существует.
func (s *GameRecordStore) Create(ctx context.Context, record *entity.GameRecord) error {
	key := gameKey(record.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check game existence: %w", err)
	}
	if exists > 0 {
		return apperrors.ErrConflict
	}

	fields := recordToFields(record)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create game record: %w", err)
	}

	log.Printf("[GameRecordStore] Создана запись игры %s (quiz_id=%d)", record.ID, record.QuizID)
	return s.publishRecord(ctx, record.ID)
}

// Get возвращает текущее состояние записи игры
func (s *GameRecordStore) Get(ctx context.Context, id string) (*entity.GameRecord, error) {
	raw, err := s.client.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read game record: %w", err)
	}
	if len(raw) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return fieldsToRecord(id, raw)
}

// UpdateFields атомарно обновляет перечисленные поля записи.
// При заданном guard обновление применяется только если текущее значение
// guard-поля совпадает с ожидаемым; иначе возвращается ErrConflict.
// Конкурентное изменение записи во время транзакции повторяется.
func (s *GameRecordStore) UpdateFields(ctx context.Context, id string, fields map[string]interface{}, guard *repository.FieldGuard) error {
	key := gameKey(id)

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return apperrors.ErrNotFound
		}

		if guard != nil {
			current, err := tx.HGet(ctx, key, guard.Field).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != guard.Equals {
				return apperrors.ErrConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return s.publishRecord(ctx, id)
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return apperrors.ErrConflict
}

// AddPlayer добавляет участника в запись игры. Порядок присоединения
// фиксируется один раз; повторный вызов для того же участника обновляет
// только nickname и не трогает счет и join order.
func (s *GameRecordStore) AddPlayer(ctx context.Context, id string, participantID string, nickname string) error {
	key := gameKey(id)
	joinField := playerJoinPrefix + participantID

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return apperrors.ErrNotFound
		}

		alreadyJoined, err := tx.HExists(ctx, key, joinField).Result()
		if err != nil {
			return err
		}

		joinOrder := 0
		if !alreadyJoined {
			all, err := tx.HKeys(ctx, key).Result()
			if err != nil {
				return err
			}
			for _, f := range all {
				if strings.HasPrefix(f, playerJoinPrefix) {
					joinOrder++
				}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, playerNickPrefix+participantID, nickname)
			if !alreadyJoined {
				pipe.HSet(ctx, key, joinField, joinOrder)
				pipe.HSetNX(ctx, key, playerScorePrefix+participantID, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return s.publishRecord(ctx, id)
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return apperrors.ErrConflict
}

// IncrementScore атомарно увеличивает счет участника
func (s *GameRecordStore) IncrementScore(ctx context.Context, id string, participantID string, delta int) error {
	key := gameKey(id)

	exists, err := s.client.HExists(ctx, key, playerJoinPrefix+participantID).Result()
	if err != nil {
		return fmt.Errorf("failed to check player existence: %w", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}

	if err := s.client.HIncrBy(ctx, key, playerScorePrefix+participantID, int64(delta)).Err(); err != nil {
		return fmt.Errorf("failed to increment score: %w", err)
	}
	return s.publishRecord(ctx, id)
}

// Subscribe подписывает callback на все изменения записи игры.
// Каждое сообщение канала - полный снимок записи, поэтому подписчик,
// пропустивший сообщение, сходится к актуальному состоянию на следующем.
func (s *GameRecordStore) Subscribe(ctx context.Context, id string, callback repository.RecordCallback) (func(), error) {
	pubsub := s.client.Subscribe(ctx, updatesChannel(id))

	// Ждем подтверждения подписки, иначе первые публикации могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to game updates: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var record entity.GameRecord
				if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
					log.Printf("[GameRecordStore] Ошибка десериализации обновления игры %s: %v", id, err)
					continue
				}
				callback(&record)
			}
		}
	}()

	return cancel, nil
}

// publishRecord публикует полный снимок записи в канал обновлений игры
func (s *GameRecordStore) publishRecord(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load record for publish: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.client.Publish(ctx, updatesChannel(id), data).Err(); err != nil {
		log.Printf("[GameRecordStore] Ошибка публикации обновления игры %s: %v", id, err)
		return err
	}
	return nil
}

// recordToFields раскладывает запись игры в поля Redis-хеша
func recordToFields(record *entity.GameRecord) map[string]interface{} {
	fields := map[string]interface{}{
		"quiz_id":                          record.QuizID,
		"class_id":                         record.ClassID,
		"host_id":                          record.HostID,
		repository.GameFieldStatus:         record.Status,
		repository.GameFieldQuestionIndex:  record.CurrentQuestionIndex,
		repository.GameFieldPhase:          record.Phase,
		repository.GameFieldAnchorMs:       record.QuestionStartTimeMs,
		"created_at":                       record.CreatedAt.Format(time.RFC3339Nano),
	}
	for pid, p := range record.Players {
		fields[playerNickPrefix+pid] = p.Nickname
		fields[playerScorePrefix+pid] = p.Score
		fields[playerJoinPrefix+pid] = p.JoinOrder
	}
	return fields
}

// fieldsToRecord собирает запись игры из полей Redis-хеша
func fieldsToRecord(id string, raw map[string]string) (*entity.GameRecord, error) {
	record := &entity.GameRecord{
		ID:      id,
		Players: make(map[string]entity.PlayerState),
	}

	for field, value := range raw {
		switch {
		case field == "quiz_id":
			v, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid quiz_id in game %s: %w", id, err)
			}
			record.QuizID = uint(v)
		case field == "class_id":
			record.ClassID = value
		case field == "host_id":
			record.HostID = value
		case field == repository.GameFieldStatus:
			record.Status = value
		case field == repository.GameFieldPhase:
			record.Phase = value
		case field == repository.GameFieldQuestionIndex:
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid question index in game %s: %w", id, err)
			}
			record.CurrentQuestionIndex = v
		case field == repository.GameFieldAnchorMs:
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid anchor in game %s: %w", id, err)
			}
			record.QuestionStartTimeMs = v
		case field == "created_at":
			t, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return nil, fmt.Errorf("invalid created_at in game %s: %w", id, err)
			}
			record.CreatedAt = t
		case strings.HasPrefix(field, playerNickPrefix):
			pid := strings.TrimPrefix(field, playerNickPrefix)
			p := record.Players[pid]
			p.Nickname = value
			record.Players[pid] = p
		case strings.HasPrefix(field, playerScorePrefix):
			pid := strings.TrimPrefix(field, playerScorePrefix)
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid score for player %s in game %s: %w", pid, id, err)
			}
			p := record.Players[pid]
			p.Score = v
			record.Players[pid] = p
		case strings.HasPrefix(field, playerJoinPrefix):
			pid := strings.TrimPrefix(field, playerJoinPrefix)
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid join order for player %s in game %s: %w", pid, id, err)
			}
			p := record.Players[pid]
			p.JoinOrder = v
			record.Players[pid] = p
		}
	}

	return record, nil
}
