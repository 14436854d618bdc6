package repository

import (
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
)

// QuizRepository определяет методы для работы с викторинами.
// Игровое ядро использует только чтение (GetWithQuestions); создание и
// удаление принадлежат поверхности авторинга.
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id uint) (*entity.Quiz, error)
	GetWithQuestions(id uint) (*entity.Quiz, error)
	List(limit, offset int) ([]entity.Quiz, error)
	Delete(id uint) error
}
