package publish

import (
	"context"

	"github.com/ohler55/ojg/oj"

	"github.com/pitwall-live/telemetry-bridge-go/log"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
)

// Publisher pushes one serialized snapshot. Implementations must be
// fire-and-forget: a failed publish is reported to the caller but carries no
// retry or backoff semantics, the next tick's data supersedes it.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close()
}

// Fanout serializes a snapshot once and pushes it to every publisher.
// Failures are logged at debug level and dropped; a broken sink must never
// stall the polling loop.
type Fanout struct {
	sinks []Publisher
	l     *log.Logger
}

type FanoutOption func(*Fanout)

func WithFanoutLogger(l *log.Logger) FanoutOption {
	return func(f *Fanout) {
		f.l = l
	}
}

func NewFanout(sinks []Publisher, opts ...FanoutOption) *Fanout {
	ret := &Fanout{sinks: sinks, l: log.Default().Named("publish")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (f *Fanout) Send(ctx context.Context, snap *model.Snapshot) {
	payload, err := oj.Marshal(snap)
	if err != nil {
		f.l.Warn("could not serialize snapshot", log.ErrorField(err))
		return
	}
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, payload); err != nil {
			f.l.Debug("snapshot publish failed", log.ErrorField(err))
		}
	}
}

func (f *Fanout) Close() {
	for _, sink := range f.sinks {
		sink.Close()
	}
}
