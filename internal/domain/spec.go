package domain

// BaseName — зарезервированное имя базового узла графа.
//
// Базовый узел хранит внешние константы установки (частоты генераторов,
// аттенюация линий и т.п.), записывается в ParameterStore один раз при
// построении графа и никогда не перемеряется.
const BaseName = "Base"

// GraphSpec — описание графа калибровок.
//
// GraphSpec — это "рецепт" для GraphBuilder: какие узлы существуют,
// от чьих параметров они зависят и какой стратегией измеряются.
// Производится внешним парсером конфигурации (internal/parser);
// движок сам файлы не читает.
type GraphSpec struct {
	// Name — имя графа (например, "fridge-a", "chip-42").
	// Попадает в логи, метрики и события.
	Name string `json:"name"`

	// Base — базовый узел с внешними константами.
	Base BaseDef `json:"base"`

	// Nodes — описания калибровочных узлов.
	Nodes []NodeDef `json:"nodes"`
}

// BaseDef — описание базового узла.
type BaseDef struct {
	// Params — внешние константы: имя параметра → значение.
	Params map[string]float64 `json:"params"`
}

// NodeDef — описание одного калибровочного узла.
type NodeDef struct {
	// Name — уникальное имя узла в рамках графа.
	Name string `json:"name"`

	// Strategy — имя стратегии измерения в реестре (internal/strategy).
	Strategy string `json:"strategy"`

	// ParamKeys — упорядоченный список выходных параметров узла.
	ParamKeys []string `json:"param_keys"`

	// DependentParamKeys — ссылки вида "Node:Param" на параметры
	// вышестоящих узлов, которые стратегия читает перед измерением.
	DependentParamKeys []string `json:"dependent_param_keys,omitempty"`

	// ValidityWindowSec — окно валидности в секундах. После его
	// истечения последнее измерение считается устаревшим.
	ValidityWindowSec int `json:"validity_window_sec"`

	// Tolerance — безразмерный допуск t: проверка in-spec принимает
	// значения в пределах target * [1-t, 1+t].
	Tolerance float64 `json:"tolerance,omitempty"`

	// Options — произвольные опции стратегии (диапазоны свипов,
	// пороги плохих данных и т.п.).
	Options map[string]any `json:"options,omitempty"`
}

// NodeNames возвращает имена всех узлов описания, включая базовый.
func (s *GraphSpec) NodeNames() []string {
	names := make([]string, 0, len(s.Nodes)+1)
	names = append(names, BaseName)
	for i := range s.Nodes {
		names = append(names, s.Nodes[i].Name)
	}
	return names
}
