package services

import "errors"

// Общие ошибки сервисного слоя. Обработчики переводят их в HTTP-статусы:
// ValidationError → 400, ErrPermissionDenied → 403,
// Err*NotFound → 404, ErrLatestConflict → 409.
var (
	ErrProjectNotFound    = errors.New("проект не найден")
	ErrVersionNotFound    = errors.New("версия не найдена")
	ErrPermissionDenied   = errors.New("доступ запрещен")
	ErrLatestConflict     = errors.New("конфликт обновления последней версии")
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUsernameTaken      = errors.New("имя пользователя уже занято")
)

// ValidationError — ошибка валидации входных данных с детализацией по полям.
// Терминальная: не ретраится, сообщения отдаются клиенту как есть.
type ValidationError struct {
	FieldErrors map[string][]string
}

func (e *ValidationError) Error() string {
	return "ошибка валидации входных данных"
}

// newFieldError создает ValidationError с одной ошибкой одного поля.
func newFieldError(field, message string) *ValidationError {
	return &ValidationError{FieldErrors: map[string][]string{field: {message}}}
}
