package parser

import "errors"

// Ошибки валидации описания графа.
var (
	// ErrEmptyGraph — описание не содержит узлов.
	ErrEmptyGraph = errors.New("graph spec has no nodes")

	// ErrEmptyNodeName — узел без имени.
	ErrEmptyNodeName = errors.New("node has empty name")

	// ErrDuplicateNode — несколько узлов с одинаковым именем.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrReservedName — узел использует зарезервированное имя Base.
	ErrReservedName = errors.New("node name is reserved")

	// ErrEmptyStrategy — узел без имени стратегии.
	ErrEmptyStrategy = errors.New("node has empty strategy")

	// ErrEmptyParamKeys — узел не объявляет выходных параметров.
	ErrEmptyParamKeys = errors.New("node has no param keys")

	// ErrInvalidWindow — окно валидности не положительное.
	ErrInvalidWindow = errors.New("validity window must be positive")

	// ErrEmptyBase — базовый узел без параметров.
	ErrEmptyBase = errors.New("base node has no params")
)

// ValidationError — ошибка валидации с контекстом узла.
type ValidationError struct {
	Node    string // имя узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Node != "" {
		return "node " + e.Node + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(node, field, message string, err error) *ValidationError {
	return &ValidationError{
		Node:    node,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
