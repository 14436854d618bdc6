package dto

import (
	"time"

	"github.com/techjoejoe/Engagesuite-sub001/internal/domain/entity"
	"github.com/techjoejoe/Engagesuite-sub001/internal/handler/helper"
)

// QuestionResponse - вопрос в ответе API. Правильный вариант не включается:
// он доступен клиентам только через проекцию фазы reveal.
type QuestionResponse struct {
	ID           uint                    `json:"id"`
	Text         string                  `json:"text"`
	MediaURL     string                  `json:"media_url,omitempty"`
	Options      []helper.QuestionOption `json:"options"`
	TimeLimitSec int                     `json:"time_limit_sec"`
	MaxPoints    int                     `json:"max_points"`
}

// QuizResponse - викторина в ответе API
type QuizResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	OwnerID       string             `json:"owner_id"`
	QuestionCount int                `json:"question_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NewQuizResponse создает ответ из сущности викторины.
// withQuestions управляет включением списка вопросов.
func NewQuizResponse(quiz *entity.Quiz, withQuestions bool) QuizResponse {
	resp := QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		OwnerID:       quiz.OwnerID,
		QuestionCount: quiz.QuestionCount,
		CreatedAt:     quiz.CreatedAt,
	}
	if withQuestions {
		resp.Questions = make([]QuestionResponse, 0, len(quiz.Questions))
		for i := range quiz.Questions {
			resp.Questions = append(resp.Questions, NewQuestionResponse(&quiz.Questions[i]))
		}
	}
	return resp
}

// NewQuestionResponse создает ответ из сущности вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	return QuestionResponse{
		ID:           q.ID,
		Text:         q.Text,
		MediaURL:     q.MediaURL,
		Options:      helper.ConvertOptionsToObjects(q.Options),
		TimeLimitSec: q.TimeLimitSec,
		MaxPoints:    q.MaxPoints,
	}
}

// NewListQuizResponse создает список ответов без вопросов
func NewListQuizResponse(quizzes []entity.Quiz) []QuizResponse {
	list := make([]QuizResponse, 0, len(quizzes))
	for i := range quizzes {
		list = append(list, NewQuizResponse(&quizzes[i], false))
	}
	return list
}
