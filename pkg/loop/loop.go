package loop

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/processing"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/publish"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
)

// Loop drives the single-threaded polling cycle: one tick = read frame,
// advance the pipeline, publish the snapshot. Ticks run at a fixed
// wall-clock period; drift is acceptable. A tick never takes the process
// down: panics are recovered, publish failures dropped.
type Loop struct {
	source         telemetry.Source
	processor      *processing.Processor
	fanout         *publish.Fanout
	interval       time.Duration
	publishTimeout time.Duration
	l              *log.Logger
}

type Option func(*Loop)

func WithInterval(interval time.Duration) Option {
	return func(l *Loop) {
		l.interval = interval
	}
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(l *Loop) {
		l.publishTimeout = timeout
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Loop) {
		l.l = logger
	}
}

//nolint:whitespace // can't make the linters happy
func New(
	source telemetry.Source,
	processor *processing.Processor,
	fanout *publish.Fanout,
	opts ...Option,
) *Loop {
	ret := &Loop{
		source:         source,
		processor:      processor,
		fanout:         fanout,
		interval:       500 * time.Millisecond,
		publishTimeout: time.Second,
		l:              log.Default().Named("loop"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run ticks until the context is cancelled or the source is exhausted
// (replay recordings return io.EOF). Always returns nil on cancellation;
// the durable snapshot is already up to date as of the last pit transition.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.l.Info("polling loop started", log.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.l.Info("polling loop stopped")
			return nil
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					l.l.Info("source exhausted")
					return nil
				}
				// source-unavailable: skip and retry next tick
				l.l.Debug("tick skipped", log.ErrorField(err))
			}
		}
	}
}

func (l *Loop) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.l.Error("tick panicked", log.Any("reason", r))
			err = nil
		}
	}()

	frame, err := l.source.Fetch(ctx)
	if err != nil {
		return err
	}
	snap := l.processor.Process(frame)
	if snap == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, l.publishTimeout)
	defer cancel()
	l.fanout.Send(pubCtx, snap)
	return nil
}
