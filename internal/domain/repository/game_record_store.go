package repository

import (
	"context"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
)

// Имена полей GameRecord для частичных обновлений. Оба хранилища
// (redis и memory) интерпретируют один и тот же набор имен.
const (
	GameFieldStatus        = "status"
	GameFieldPhase         = "phase"
	GameFieldQuestionIndex = "current_question_index"
	GameFieldAnchorMs      = "question_start_time_ms"
)

// FieldGuard - предусловие для UpdateFields: обновление применяется, только
// если поле Field сейчас равно Equals. При несовпадении хранилище возвращает
// ErrConflict. Это переносит идиому условного UPDATE ... WHERE на документное
// хранилище и делает гонки двух писателей отклоняемыми, а не разрушительными.
type FieldGuard struct {
	Field  string
	Equals string
}

// RecordCallback вызывается с полной копией записи после каждого изменения.
// Порядок доставки между разными подписчиками не гарантируется.
type RecordCallback func(record *entity.GameRecord)

// GameRecordStore определяет контракт разделяемого документа игровой сессии:
// атомарные пополевые обновления плюс push-подписка на изменения.
// Ядро не знает, чем это реализовано (Redis, память).
type GameRecordStore interface {
	// Create сохраняет новую запись игры
	Create(ctx context.Context, record *entity.GameRecord) error

	// Get возвращает текущее состояние записи
	Get(ctx context.Context, id string) (*entity.GameRecord, error)

	// UpdateFields атомарно обновляет перечисленные поля.
	// guard может быть nil (безусловное обновление).
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}, guard *FieldGuard) error

	// AddPlayer добавляет участника. Повторный вызов для того же участника
	// обновляет только nickname и не сбрасывает счет.
	AddPlayer(ctx context.Context, id string, participantID string, nickname string) error

	// IncrementScore атомарно увеличивает счет участника
	IncrementScore(ctx context.Context, id string, participantID string, delta int) error

	// Subscribe подписывает callback на все изменения записи.
	// Возвращает функцию отписки; её вызов обязателен при teardown клиента.
	Subscribe(ctx context.Context, id string, callback RecordCallback) (func(), error)
}
