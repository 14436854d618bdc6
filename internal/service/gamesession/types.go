package gamesession

import (
	"time"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
)

// Константы значений по умолчанию
const (
	DefaultCountdownSeconds = 5
	DefaultRevealSeconds    = 5
	DefaultProjectorTickMs  = 100
	DefaultAnswerDedupTTL   = 2 * time.Hour
)

// Config содержит настройки всех компонентов игровой сессии
type Config struct {
	// Таймауты и интервалы
	CountdownSeconds int // Продолжительность предигрового обратного отсчета
	RevealSeconds    int // Сколько секунд показывается правильный ответ до следующего вопроса
	ProjectorTickMs  int // Период пересчета проекции состояния

	// AutoAdvance включает автопереход к следующему вопросу по истечении
	// RevealSeconds. По умолчанию выключен: ведущий сам задает темп показа
	// ответа командой next. Авто-раскрытие вопроса и завершение отсчета
	// работают всегда.
	AutoAdvance bool

	// Настройки дедупликации ответов
	AnswerDedupTTL time.Duration // TTL ключа быстрой проверки повторной отправки
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CountdownSeconds: DefaultCountdownSeconds,
		RevealSeconds:    DefaultRevealSeconds,
		ProjectorTickMs:  DefaultProjectorTickMs,
		AnswerDedupTTL:   DefaultAnswerDedupTTL,
	}
}

// Dependencies содержит зависимости компонентов игровой сессии.
// Now подменяется в тестах для детерминированного времени.
type Dependencies struct {
	GameStore  repository.GameRecordStore
	QuizRepo   repository.QuizRepository
	AnswerRepo repository.AnswerRepository
	CacheRepo  repository.CacheRepository
	Config     *Config
	Now        func() time.Time
}

// now возвращает текущее время через инжектированную функцию
func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// nowMs возвращает текущее время в Unix-миллисекундах
func (d *Dependencies) nowMs() int64 {
	return d.now().UnixMilli()
}
