// Autocal CLI — инструмент командной строки для работы с графом
// калибровок: валидация описания, просмотр структуры, запуск
// обслуживания и принудительная калибровка.
//
// Использование:
//
//	autocal [--store memory|postgres] [--json] <command> [flags]
//
// Команды:
//
//	validate    Проверка описания графа
//	graph       Структура и топологический порядок
//	strategies  Список зарегистрированных стратегий
//	maintain    Запуск обслуживания
//	request     Заявка на обслуживание через очередь демона
//	calibrate   Принудительная калибровка узла
//	history     История калибровок узла
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Autocal/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var storeKind string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "autocal",
		Short:         "Autocal CLI — calibration graph maintenance tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "memory", "Parameter store: memory or postgres")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	storeFn := func() string { return storeKind }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewValidateCmd(outputFn),
		cli.NewGraphCmd(outputFn),
		cli.NewStrategiesCmd(outputFn),
		cli.NewMaintainCmd(storeFn, outputFn),
		cli.NewRequestCmd(outputFn),
		cli.NewCalibrateCmd(storeFn, outputFn),
		cli.NewHistoryCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
