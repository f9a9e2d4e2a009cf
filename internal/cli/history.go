package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewHistoryCmd создаёт команду просмотра истории калибровок узла.
//
// История адресуется ключом "{node}_{run_id}", где run_id — это
// идентификатор инстанцирования графа (виден в логах демона и в
// статусном API).
func NewHistoryCmd(outputFn func() *Output) *cobra.Command {
	var (
		runID string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history NODE",
		Short: "Show calibration history of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			// История живёт только в Postgres: memory-хранилище не
			// переживает процесс.
			_, history, closeStore, err := openStore(ctx, "postgres")
			if err != nil {
				return err
			}
			defer closeStore()

			tableKey := fmt.Sprintf("%s_%s", args[0], runID)
			rows, err := history.History(ctx, tableKey, limit)
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "VALUES", "LOG"}
			table := make([][]string, len(rows))
			for i, row := range rows {
				table[i] = []string{
					row.Timestamp.Format(time.RFC3339),
					fmt.Sprintf("%v", row.Values),
					row.Log,
				}
			}

			out.Print(headers, table, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Graph run ID (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of rows")
	cmd.MarkFlagRequired("run")

	return cmd
}
