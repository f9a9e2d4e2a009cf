package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Autocal/internal/strategy"
)

// NewValidateCmd создаёт команду валидации описания графа.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a graph description file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := loadSpec(args[0])
			if err != nil {
				return err
			}

			// Полная проверка: ссылки, циклы, стратегии. Build поверх
			// памяти ничего не стоит и ловит то, что парсер не видит.
			_, _, closeStore, err := buildEngine(cmd.Context(), args[0], "memory")
			if err != nil {
				return err
			}
			defer closeStore()

			out.Success(fmt.Sprintf("Graph %q is valid: %d nodes", spec.Name, len(spec.Nodes)))
			return nil
		},
	}
}

// NewGraphCmd создаёт команду просмотра структуры графа.
func NewGraphCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "graph FILE",
		Short: "Show graph structure and topological order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			eng, _, closeStore, err := buildEngine(cmd.Context(), args[0], "memory")
			if err != nil {
				return err
			}
			defer closeStore()

			g := eng.Graph()
			order := g.Order()

			headers := []string{"#", "NODE", "PARAMS", "DEPENDS ON", "WINDOW"}
			rows := make([][]string, 0, len(order))
			for i, name := range order {
				n := g.Node(name)
				rows = append(rows, []string{
					strconv.Itoa(i),
					name,
					strings.Join(n.ParamKeys(), ","),
					strings.Join(n.Dependents(), ","),
					n.ValidityWindow().String(),
				})
			}

			out.Print(headers, rows, map[string]any{
				"name":  g.Name,
				"order": order,
				"roots": g.Roots(),
			})
			out.Success("Roots: " + strings.Join(g.Roots(), ", "))
			return nil
		},
	}
}

// NewStrategiesCmd создаёт команду списка доступных стратегий.
func NewStrategiesCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered calibration strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			names := strategy.DefaultRegistry().Names()
			rows := make([][]string, len(names))
			for i, name := range names {
				rows[i] = []string{name}
			}

			out.Print([]string{"STRATEGY"}, rows, names)
			return nil
		},
	}
}
