package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/service"
)

// Scanner runs a single escalation pass.
type Scanner interface {
	ScanOnce(ctx context.Context) (service.ScanReport, error)
}

// ScanWorker drives the scanner on a fixed interval.
type ScanWorker struct {
	scanner  Scanner
	interval time.Duration
	logger   *zap.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScanWorker creates a worker. Overlapping runs are skipped rather than
// queued.
func NewScanWorker(scanner Scanner, interval time.Duration, logger *zap.Logger) *ScanWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := newCronLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())
	return &ScanWorker{
		scanner:  scanner,
		interval: interval,
		logger:   logger,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start schedules the scan. It is safe to call once.
func (w *ScanWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if w.interval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", w.interval)
	}
	if _, err := w.cron.AddFunc("@every "+w.interval.String(), w.run); err != nil {
		return fmt.Errorf("schedule scan: %w", err)
	}
	w.cron.Start()
	w.started = true
	w.logger.Info("escalation scan scheduled", zap.Duration("interval", w.interval))
	return nil
}

// Stop cancels the timer and waits for an in-flight scan to finish or for
// ctx to expire. The running scan stops picking up new tickets but the
// ticket it is on completes.
func (w *ScanWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	started := w.started
	w.started = false
	w.mu.Unlock()

	w.cancel()
	if !started {
		return nil
	}
	done := w.cron.Stop()
	select {
	case <-done.Done():
		w.logger.Info("escalation scan stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *ScanWorker) run() {
	if w.ctx.Err() != nil {
		return
	}
	report, err := w.scanner.ScanOnce(w.ctx)
	if err != nil {
		w.logger.Error("escalation scan failed", zap.Error(err))
		return
	}
	w.logger.Debug("escalation scan finished",
		zap.Int("tickets", report.Tickets),
		zap.Int("failed", report.Failed))
}

// cronLogger routes cron's logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) cron.Logger {
	return cronLogger{sugar: logger.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
