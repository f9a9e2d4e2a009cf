package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Maintainer — то, что планировщик запускает по расписанию.
// Реализуется обёрткой над MaintenanceEngine в демоне.
type Maintainer interface {
	Maintain(ctx context.Context, roots ...string) error
}

// Schedule — расписание периодического обслуживания.
//
// Задаётся либо cron-выражением, либо фиксированным интервалом.
// Пустой Roots означает все стоки графа.
type Schedule struct {
	// Name — имя расписания для логов.
	Name string `json:"name"`

	// Roots — корни обслуживания.
	Roots []string `json:"roots,omitempty"`

	// CronExpr — cron-выражение (5 полей).
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — таймзона для cron-выражений (default: UTC).
	Timezone string `json:"timezone,omitempty"`

	// Enabled — выключенные расписания пропускаются.
	Enabled bool `json:"enabled"`

	// NextDueAt — следующее время выполнения.
	NextDueAt time.Time `json:"next_due_at"`

	// LastRunAt — время последнего выполнения.
	LastRunAt time.Time `json:"last_run_at,omitempty"`
}

// IsCron возвращает true для cron-расписания.
func (s *Schedule) IsCron() bool { return s.CronExpr != "" }

// IsInterval возвращает true для интервального расписания.
func (s *Schedule) IsInterval() bool { return s.IntervalSec > 0 }

// Scheduler — планировщик периодического обслуживания.
//
// Расписания живут в памяти демона: обслуживание привязано к одному
// стенду и одному процессу, внешнее хранилище расписаний не нужно.
type Scheduler struct {
	maintainer Maintainer
	logger     *slog.Logger

	mu        sync.Mutex
	schedules []*Schedule
}

// New создаёт планировщик.
func New(m Maintainer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		maintainer: m,
		logger:     logger,
	}
}

// Add регистрирует расписание. Невалидное cron-выражение — ошибка.
// Нулевой NextDueAt вычисляется от текущего времени.
func (s *Scheduler) Add(sched *Schedule) error {
	if !sched.IsCron() && !sched.IsInterval() {
		return fmt.Errorf("schedule %q has neither cron_expr nor interval_sec", sched.Name)
	}
	if sched.IsCron() {
		if err := ValidateCronExpr(sched.CronExpr); err != nil {
			return fmt.Errorf("schedule %q: %w", sched.Name, err)
		}
	}

	if sched.NextDueAt.IsZero() {
		next, err := CalculateNextDue(sched, time.Now())
		if err != nil {
			return fmt.Errorf("schedule %q: %w", sched.Name, err)
		}
		sched.NextDueAt = next
	}

	s.mu.Lock()
	s.schedules = append(s.schedules, sched)
	s.mu.Unlock()

	s.logger.Info("schedule registered",
		"schedule", sched.Name,
		"roots", sched.Roots,
		"next_due_at", sched.NextDueAt,
	)
	return nil
}

// Schedules возвращает снимок зарегистрированных расписаний.
func (s *Scheduler) Schedules() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, *sched)
	}
	return out
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due расписания (enabled, next_due_at <= now)
// 2. Для каждого запускает обслуживание
// 3. Обновляет next_due_at
//
// Ошибка одного расписания не блокирует остальные: отказ обслуживания
// штатный исход, узел помечен calibrationFailed и ждёт оператора.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()
	due := s.takeDue(now)
	if len(due) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(due))

	var failed int
	for _, sched := range due {
		if err := s.maintainer.Maintain(ctx, sched.Roots...); err != nil {
			failed++
			s.logger.Error("scheduled maintain failed",
				"schedule", sched.Name,
				"error", err,
			)
		}

		next, err := CalculateNextDue(sched, now)
		if err != nil {
			// Невалидное расписание выключается, иначе оно будет due
			// каждый тик.
			s.logger.Error("failed to calculate next due, disabling schedule",
				"schedule", sched.Name,
				"error", err,
			)
			s.setDisabled(sched)
			continue
		}
		s.recordRun(sched, now, next)
	}

	s.logger.Info("scheduler tick completed",
		"due", len(due),
		"failed", failed,
	)
	return nil
}

// Run крутит тики с заданным периодом до отмены контекста.
func (s *Scheduler) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) takeDue(now time.Time) []*Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Schedule
	for _, sched := range s.schedules {
		if sched.Enabled && !sched.NextDueAt.After(now) {
			due = append(due, sched)
		}
	}
	return due
}

func (s *Scheduler) recordRun(sched *Schedule, ranAt, next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched.LastRunAt = ranAt
	sched.NextDueAt = next
}

func (s *Scheduler) setDisabled(sched *Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched.Enabled = false
}
