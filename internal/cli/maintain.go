package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Autocal/internal/mq"
	"github.com/shaiso/Autocal/internal/telemetry"
)

// NewMaintainCmd создаёт команду запуска обслуживания.
func NewMaintainCmd(storeFn func() string, outputFn func() *Output) *cobra.Command {
	var roots []string

	cmd := &cobra.Command{
		Use:   "maintain FILE",
		Short: "Run a maintenance pass over the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			eng, _, closeStore, err := buildEngine(ctx, args[0], storeFn())
			if err != nil {
				return err
			}
			defer closeStore()

			report, runErr := eng.Maintain(ctx, roots...)

			if report != nil {
				headers := []string{"ROOTS", "RECALIBRATED", "DURATION"}
				rows := [][]string{{
					fmt.Sprintf("%v", report.Roots),
					strconv.Itoa(len(report.Recalibrated)),
					report.Duration.String(),
				}}
				out.Print(headers, rows, report)
			}

			if runErr != nil {
				return runErr
			}
			out.Success(fmt.Sprintf("Maintenance succeeded, %d node(s) recalibrated", len(report.Recalibrated)))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&roots, "roots", nil, "Roots to maintain (default: all sinks)")

	return cmd
}

// NewRequestCmd создаёт команду постановки заявки на внеплановое
// обслуживание в очередь демона. Сама команда графа не трогает:
// обслуживание выполнит демон, владеющий приборами.
func NewRequestCmd(outputFn func() *Output) *cobra.Command {
	var roots []string

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Queue a maintenance request for the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFn()
			logger := telemetry.SetupLogger()

			conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
			if err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			defer conn.Close()

			if err := mq.SetupTopology(conn); err != nil {
				return fmt.Errorf("setup topology: %w", err)
			}

			pub := mq.NewPublisher(conn, logger)
			payload := mq.MaintainRequestPayload{Roots: roots}
			if err := pub.PublishMaintainRequest(cmd.Context(), payload); err != nil {
				return err
			}

			out.Success("Maintenance request queued")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&roots, "roots", nil, "Roots to maintain (default: all sinks)")

	return cmd
}

// NewCalibrateCmd создаёт команду принудительной калибровки узла.
func NewCalibrateCmd(storeFn func() string, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate FILE NODE",
		Short: "Force a full calibration of one node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			eng, _, closeStore, err := buildEngine(ctx, args[0], storeFn())
			if err != nil {
				return err
			}
			defer closeStore()

			values, err := eng.Calibrate(ctx, args[1])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(values))
			for key, v := range values {
				rows = append(rows, []string{key, strconv.FormatFloat(v, 'g', -1, 64)})
			}
			out.Print([]string{"PARAM", "VALUE"}, rows, values)
			out.Success("Node calibrated: " + args[1])
			return nil
		},
	}
}
