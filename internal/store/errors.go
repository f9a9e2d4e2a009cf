package store

import "errors"

// Общие ошибки хранилища.
var (
	// ErrNoRows — у узла ещё нет ни одной строки истории.
	ErrNoRows = errors.New("no calibration history")

	// ErrParamMissing — запрошенный параметр отсутствует в последней строке.
	ErrParamMissing = errors.New("parameter missing in history row")

	// ErrNotInitialized — tableKey не был зарегистрирован через Initialize.
	ErrNotInitialized = errors.New("table key not initialized")
)
