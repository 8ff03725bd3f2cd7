// Package sweeper deletes expired transfer codes on a fixed schedule.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultInterval is the sweep period. Codes live five minutes, so a minute of lag is harmless.
const DefaultInterval = time.Minute

const runTimeout = 30 * time.Second

// Cleaner deletes expired codes and reports how many were removed.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Sweeper runs Cleaner on a cron schedule. A run still in progress when the next tick
// fires causes that tick to be skipped.
type Sweeper struct {
	cron    *cron.Cron
	cleaner Cleaner
	logger  *zap.Logger
}

// New schedules cleaner every interval. Call Start to begin.
func New(cleaner Cleaner, interval time.Duration, logger *zap.Logger) (*Sweeper, error) {
	if cleaner == nil {
		return nil, errors.New("sweeper: cleaner is required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Sweeper{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		cleaner: cleaner,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc("@every "+interval.String(), func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("expiry sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	n, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired transfer codes deleted", zap.Int64("count", n))
		return
	}
	s.logger.Debug("expiry sweep found nothing")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
