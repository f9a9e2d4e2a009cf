// Package scheduler реализует периодический запуск обслуживания.
//
// Расписания задаются cron-выражением или фиксированным интервалом
// и живут в памяти демона. Каждый тик Scheduler находит расписания
// с истекшим next_due_at и запускает обслуживание их корней.
//
// Структура:
//   - scheduler.go — Schedule, Scheduler (Add, Tick, Run)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(maintainer, logger)
//	sched.Add(&scheduler.Schedule{
//	    Name:        "hourly",
//	    IntervalSec: 3600,
//	    Enabled:     true,
//	})
//	go sched.Run(ctx, time.Second)
package scheduler
