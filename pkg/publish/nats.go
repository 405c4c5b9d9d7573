package publish

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/pitwall-live/telemetry-bridge-go/log"
)

// NatsPublisher pushes each snapshot to a subject so that other pitwall
// services can consume the live feed without touching the ingest endpoint.
type NatsPublisher struct {
	conn    *nats.Conn
	subject string
	l       *log.Logger
}

type NatsOption func(*NatsPublisher)

func WithNatsLogger(l *log.Logger) NatsOption {
	return func(p *NatsPublisher) {
		p.l = l
	}
}

func NewNatsPublisher(url, subject string, opts ...NatsOption) (*NatsPublisher, error) {
	ret := &NatsPublisher{
		subject: subject,
		l:       log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	ret.conn = conn
	ret.l.Info("connected to NATS", log.String("url", url),
		log.String("subject", subject))
	return ret, nil
}

func (p *NatsPublisher) Publish(_ context.Context, payload []byte) error {
	return p.conn.Publish(p.subject, payload)
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
