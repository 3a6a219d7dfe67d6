// Package run executes a command under SIGINT/SIGTERM and maps its outcome
// to a process exit code.
package run

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130

	defaultGrace = 5 * time.Second
)

type Runner struct {
	Logger *zap.Logger
	// Grace is how long a cancelled command may take to return.
	Grace time.Duration
}

func New(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Logger: log, Grace: defaultGrace}
}

// WithSignals runs start with a context cancelled on SIGINT or SIGTERM.
func (r *Runner) WithSignals(start func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.Run(ctx, start)
}

// Run runs start under ctx. Once ctx is done start gets Grace to return.
func (r *Runner) Run(ctx context.Context, start func(ctx context.Context) error) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	select {
	case err := <-errCh:
		return r.code(err)
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			r.Logger.Warn("command stopped with error", zap.Error(err))
		}
	case <-time.After(r.Grace):
		r.Logger.Warn("command did not stop in time", zap.Duration("grace", r.Grace))
	}
	return ExitInterrupted
}

func (r *Runner) code(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	r.Logger.Error("command exited with error", zap.Error(err))
	return ExitFailure
}

func Exit(code int) {
	os.Exit(code)
}
