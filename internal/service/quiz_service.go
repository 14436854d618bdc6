package service

import (
	"fmt"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/repository"
	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
)

// QuizService предоставляет методы для работы с викторинами
type QuizService struct {
	quizRepo repository.QuizRepository
}

// NewQuizService создает новый сервис викторин
func NewQuizService(quizRepo repository.QuizRepository) *QuizService {
	return &QuizService{quizRepo: quizRepo}
}

// CreateQuiz создает новую викторину вместе с вопросами
func (s *QuizService) CreateQuiz(ownerID, title, description string, questions []entity.Question) (*entity.Quiz, error) {
	quiz := &entity.Quiz{
		Title:         title,
		Description:   description,
		OwnerID:       ownerID,
		QuestionCount: len(questions),
		Questions:     questions,
	}

	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	return quiz, nil
}

// GetQuizByID возвращает викторину по ID без вопросов
func (s *QuizService) GetQuizByID(quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(quizID)
}

// GetQuizWithQuestions возвращает викторину вместе с вопросами
func (s *QuizService) GetQuizWithQuestions(quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(quizID)
}

// ListQuizzes возвращает список викторин с пагинацией
func (s *QuizService) ListQuizzes(limit, offset int) ([]entity.Quiz, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.quizRepo.List(limit, offset)
}

// DeleteQuiz удаляет викторину. Разрешено только владельцу.
func (s *QuizService) DeleteQuiz(quizID uint, requesterID string) error {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return err
	}
	if quiz.OwnerID != requesterID {
		return fmt.Errorf("%w: only the quiz owner can delete it", apperrors.ErrUnauthorized)
	}
	return s.quizRepo.Delete(quizID)
}
