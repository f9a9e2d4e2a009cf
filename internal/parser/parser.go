package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shaiso/Autocal/internal/domain"
)

// Parse читает и валидирует JSON-описание графа калибровок.
func Parse(r io.Reader) (*domain.GraphSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read graph spec: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes разбирает JSON-описание графа из байтов.
func ParseBytes(data []byte) (*domain.GraphSpec, error) {
	var spec domain.GraphSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("unmarshal graph spec: %w", err)
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate выполняет полную валидацию описания графа.
//
// Проверяет:
//   - Наличие узлов и базовых параметров
//   - Уникальность имён, запрет имени Base для обычных узлов
//   - Наличие стратегии и выходных параметров
//   - Положительность окна валидности
//   - Синтаксис ссылок "Node:Param"
//
// Разрешимость ссылок и ацикличность здесь не проверяются —
// это работа GraphBuilder'а, у которого есть полная аджэценси.
func Validate(spec *domain.GraphSpec) error {
	if spec == nil || len(spec.Nodes) == 0 {
		return ErrEmptyGraph
	}

	if len(spec.Base.Params) == 0 {
		return NewValidationError(domain.BaseName, "params",
			"base node has no params", ErrEmptyBase)
	}

	seen := make(map[string]bool, len(spec.Nodes))
	for i := range spec.Nodes {
		if err := validateNode(&spec.Nodes[i], seen); err != nil {
			return err
		}
	}
	return nil
}

// validateNode валидирует одно описание узла.
// seen — уже встреченные имена (для проверки уникальности).
func validateNode(def *domain.NodeDef, seen map[string]bool) error {
	if def.Name == "" {
		return NewValidationError("", "name", "node has empty name", ErrEmptyNodeName)
	}

	if def.Name == domain.BaseName {
		return NewValidationError(def.Name, "name",
			fmt.Sprintf("%q is reserved for the base node", domain.BaseName), ErrReservedName)
	}

	if seen[def.Name] {
		return NewValidationError(def.Name, "name",
			fmt.Sprintf("duplicate node name: %s", def.Name), ErrDuplicateNode)
	}
	seen[def.Name] = true

	if def.Strategy == "" {
		return NewValidationError(def.Name, "strategy",
			"node has empty strategy", ErrEmptyStrategy)
	}

	if len(def.ParamKeys) == 0 {
		return NewValidationError(def.Name, "param_keys",
			"node has no param keys", ErrEmptyParamKeys)
	}

	if def.ValidityWindowSec <= 0 {
		return NewValidationError(def.Name, "validity_window_sec",
			fmt.Sprintf("validity window must be positive, got %d", def.ValidityWindowSec),
			ErrInvalidWindow)
	}

	for _, ref := range def.DependentParamKeys {
		if _, err := domain.ParseParamRef(ref); err != nil {
			return NewValidationError(def.Name, "dependent_param_keys", err.Error(), err)
		}
	}
	return nil
}
