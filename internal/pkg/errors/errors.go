package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition используется, когда команда недопустима в текущем
	// состоянии игры (например, Start() не из лобби).
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateAnswer используется при повторной отправке ответа
	// с тем же ключом (gameID, questionIndex, participantID).
	ErrDuplicateAnswer = errors.New("answer already submitted")

	// ErrWindowClosed используется, когда ответ пришел после истечения
	// времени на вопрос. Такой ответ не оценивается.
	ErrWindowClosed = errors.New("answer window closed")

	// ErrConflict используется для конфликтов состояния при конкурентной записи
	// (guard в GameRecordStore не совпал с текущим значением поля).
	ErrConflict = errors.New("resource state conflict")

	// ErrUnauthorized используется для ошибок проверки токена участника.
	ErrUnauthorized = errors.New("unauthorized")
)
