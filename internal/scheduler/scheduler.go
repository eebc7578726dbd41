package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ошибки планировщика.
var (
	// ErrNilRunFunc — планировщику не передана функция запуска.
	ErrNilRunFunc = errors.New("scheduler run function is nil")
)

// defaultTickInterval — интервал проверки расписания.
const defaultTickInterval = 30 * time.Second

// RunFunc — запуск пакетной обработки по расписанию.
type RunFunc func(ctx context.Context) error

// Scheduler периодически запускает пакетную обработку по
// cron-выражению и отдаёт /healthz и /metrics, пока работает.
//
// Пересекающиеся запуски не допускаются: если предыдущая обработка
// ещё идёт, наступивший срок пропускается и переносится на следующий.
type Scheduler struct {
	cronExpr string
	run      RunFunc
	interval time.Duration
	httpAddr string
	logger   *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	// CronExpr — расписание запусков (5 полей).
	CronExpr string

	// Run — функция пакетного запуска.
	Run RunFunc

	// TickInterval — интервал проверки (default: 30s).
	TickInterval time.Duration

	// HTTPAddr — адрес для /healthz и /metrics ("" — без HTTP).
	HTTPAddr string

	// Logger — логгер (default: slog.Default).
	Logger *slog.Logger
}

// New создаёт Scheduler, валидируя cron-выражение.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Run == nil {
		return nil, ErrNilRunFunc
	}
	if err := ValidateCronExpr(cfg.CronExpr); err != nil {
		return nil, err
	}

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cronExpr: cfg.CronExpr,
		run:      cfg.Run,
		interval: interval,
		httpAddr: cfg.HTTPAddr,
		logger:   logger,
	}, nil
}

// Start крутит цикл планировщика до отмены контекста.
func (s *Scheduler) Start(ctx context.Context) error {
	next, err := CalculateNext(s.cronExpr, time.Now())
	if err != nil {
		return err
	}

	if s.httpAddr != "" {
		go s.serveHTTP(ctx)
	}

	s.logger.Info("scheduler started", "cron", s.cronExpr, "next_run", next)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	running := false
	done := make(chan error, 1)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()

		case err := <-done:
			running = false
			if err != nil {
				s.logger.Error("scheduled run failed", "error", err)
			} else {
				s.logger.Info("scheduled run finished")
			}

		case now := <-ticker.C:
			if now.Before(next) {
				continue
			}

			if running {
				// Предыдущий запуск ещё идёт, срок переносится.
				s.logger.Warn("previous run still in progress, skipping", "due", next)
			} else {
				running = true
				s.logger.Info("scheduled run started", "due", next)
				go func() { done <- s.run(ctx) }()
			}

			if next, err = CalculateNext(s.cronExpr, now); err != nil {
				return err
			}
		}
	}
}

// serveHTTP отдаёт /healthz и /metrics, пока жив контекст.
func (s *Scheduler) serveHTTP(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: s.httpAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("scheduler http listening", "addr", s.httpAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("scheduler http error", "error", err)
	}
}
