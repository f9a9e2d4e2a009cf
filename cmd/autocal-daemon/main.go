// Autocal daemon — процесс обслуживания графа калибровок.
//
// При старте строит граф из файла описания (GRAPH_FILE), подключает
// хранилище параметров и крутит планировщик периодического
// обслуживания. Наружу отдаёт статусный HTTP API, /healthz и /metrics,
// опционально публикует события в RabbitMQ и принимает заявки на
// внеплановое обслуживание из очереди requests.maintain.
//
// Конфигурация через переменные окружения:
//
//	GRAPH_FILE            путь к описанию графа (обязательно)
//	STORE                 postgres (default) или memory
//	DB_URL                DSN Postgres
//	MQ_URL                URL RabbitMQ (пусто — без брокера)
//	MAINTAIN_INTERVAL_SEC период обслуживания в секундах (default: 3600)
//	MAINTAIN_CRON         cron-выражение вместо интервала
//	API_PORT              порт HTTP сервера (default: 8080)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Autocal/internal/api"
	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/engine"
	"github.com/shaiso/Autocal/internal/mq"
	"github.com/shaiso/Autocal/internal/parser"
	"github.com/shaiso/Autocal/internal/scheduler"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
	"github.com/shaiso/Autocal/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting autocal-daemon")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	graphFile := os.Getenv("GRAPH_FILE")
	if graphFile == "" {
		return fmt.Errorf("GRAPH_FILE is required")
	}

	f, err := os.Open(graphFile)
	if err != nil {
		return fmt.Errorf("open graph file: %w", err)
	}
	spec, err := parser.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse graph file: %w", err)
	}

	// Хранилище параметров.
	st, history, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	// Граф и движок.
	g, err := engine.Build(ctx, spec, strategy.DefaultRegistry(), st, logger)
	if err != nil {
		return err
	}
	eng := engine.New(g, logger)

	runner := &maintainRunner{engine: eng, logger: logger}

	// Брокер опционален: без MQ_URL демон работает автономно.
	if os.Getenv("MQ_URL") != "" {
		conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer conn.Close()

		if err := mq.SetupTopology(conn); err != nil {
			return fmt.Errorf("setup topology: %w", err)
		}
		runner.publisher = mq.NewPublisher(conn, logger)

		consumer := mq.NewRequestConsumer(conn, logger, func(ctx context.Context, req mq.MaintainRequest) error {
			return runner.Maintain(ctx, req.Roots...)
		})
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("request consumer stopped", "error", err)
			}
		}()
	}

	// Планировщик периодического обслуживания.
	sched := scheduler.New(runner, logger)
	if err := registerSchedule(sched); err != nil {
		return err
	}
	go func() {
		if err := sched.Run(ctx, time.Second); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	// HTTP: статусный API, health и metrics.
	handler := api.NewHandler(api.Config{
		Graph:     g,
		History:   history,
		Scheduler: sched,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// openStore открывает хранилище по переменной STORE.
func openStore(ctx context.Context) (store.ParameterStore, store.HistoryReader, func(), error) {
	kind := os.Getenv("STORE")
	if kind == "" {
		kind = "postgres"
	}

	switch kind {
	case "memory":
		st := store.NewMemoryStore()
		return st, st, func() {}, nil

	case "postgres":
		pool, err := store.NewPool(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		st := store.NewPostgresStore(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return st, st, pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE %q (expected memory or postgres)", kind)
	}
}

// registerSchedule регистрирует расписание обслуживания из окружения.
func registerSchedule(sched *scheduler.Scheduler) error {
	if expr := os.Getenv("MAINTAIN_CRON"); expr != "" {
		return sched.Add(&scheduler.Schedule{
			Name:     "maintain",
			CronExpr: expr,
			Enabled:  true,
		})
	}

	interval := 3600
	if v := os.Getenv("MAINTAIN_INTERVAL_SEC"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid MAINTAIN_INTERVAL_SEC %q", v)
		}
		interval = parsed
	}
	return sched.Add(&scheduler.Schedule{
		Name:        "maintain",
		IntervalSec: interval,
		Enabled:     true,
	})
}

// maintainRunner сериализует запуски обслуживания и публикует события.
//
// Движок однопоточный: планировщик и потребитель заявок никогда не
// гоняют обслуживание параллельно.
type maintainRunner struct {
	engine    *engine.MaintenanceEngine
	publisher *mq.Publisher // nil, если брокер не настроен
	logger    *slog.Logger

	mu sync.Mutex
}

// Maintain реализует scheduler.Maintainer.
func (r *maintainRunner) Maintain(ctx context.Context, roots ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.engine.Maintain(ctx, roots...)
	r.publishEvents(ctx, report, err)
	return err
}

// publishEvents публикует итоги запуска. Отказ публикации не фатален:
// обслуживание уже завершено и записано в хранилище.
func (r *maintainRunner) publishEvents(ctx context.Context, report *engine.Report, runErr error) {
	if r.publisher == nil || report == nil {
		return
	}

	g := r.engine.Graph()

	for _, node := range report.Recalibrated {
		err := r.publisher.PublishNodeRecalibrated(ctx, mq.NodeRecalibratedPayload{
			Graph: g.Name,
			RunID: g.RunID,
			Node:  node,
		})
		if err != nil {
			r.logger.Warn("failed to publish node.recalibrated", "node", node, "error", err)
		}
	}

	status := string(domain.MaintainStatusSucceeded)
	var errMsg string
	if runErr != nil {
		status = string(domain.MaintainStatusFailed)
		errMsg = runErr.Error()

		var mf *engine.MaintainFailure
		if errors.As(runErr, &mf) {
			err := r.publisher.PublishNodeFailed(ctx, mq.NodeFailedPayload{
				Graph:  g.Name,
				RunID:  g.RunID,
				Node:   mf.Node,
				Reason: mf.Error(),
			})
			if err != nil {
				r.logger.Warn("failed to publish node.failed", "node", mf.Node, "error", err)
			}
		}
	}

	err := r.publisher.PublishRunCompleted(ctx, mq.RunCompletedPayload{
		Graph:        g.Name,
		RunID:        g.RunID,
		Roots:        report.Roots,
		Recalibrated: report.Recalibrated,
		DurationMS:   report.Duration.Milliseconds(),
		Status:       status,
		Error:        errMsg,
	})
	if err != nil {
		r.logger.Warn("failed to publish run.completed", "error", err)
	}
}
