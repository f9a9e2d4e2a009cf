package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRef — ссылка на параметр не соответствует синтаксису "Node:Param".
var ErrMalformedRef = errors.New("malformed parameter reference")

// ParamRef — разобранная ссылка на параметр вышестоящего узла.
type ParamRef struct {
	// Node — имя узла-поставщика.
	Node string

	// Param — имя параметра в ParamKeys этого узла.
	Param string
}

// String возвращает каноническую форму ссылки.
func (r ParamRef) String() string {
	return r.Node + ":" + r.Param
}

// ParseParamRef разбирает ссылку вида "Node:Param".
// Пробелы вокруг частей допускаются и обрезаются.
func ParseParamRef(s string) (ParamRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return ParamRef{}, fmt.Errorf("%w: %q (want exactly one \"Node:Param\" split)", ErrMalformedRef, s)
	}

	node := strings.TrimSpace(parts[0])
	param := strings.TrimSpace(parts[1])
	if node == "" || param == "" {
		return ParamRef{}, fmt.Errorf("%w: %q (empty node or param part)", ErrMalformedRef, s)
	}

	return ParamRef{Node: node, Param: param}, nil
}
