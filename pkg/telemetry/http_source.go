package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ohler55/ojg/oj"

	"github.com/pitwall-live/telemetry-bridge-go/log"
)

// HTTPSource polls a local shared-memory export endpoint for the current
// frame. Connection edges are tracked so the loop can skip processing while
// the simulator is down, and reconnects are logged once instead of per tick.
type HTTPSource struct {
	url       string
	client    *http.Client
	connected bool
	l         *log.Logger
}

type HTTPSourceOption func(*HTTPSource)

func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

func WithSourceLogger(l *log.Logger) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.l = l
	}
}

func NewHTTPSource(url string, opts ...HTTPSourceOption) *HTTPSource {
	ret := &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: 2 * time.Second},
		l:      log.Default().Named("source"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *HTTPSource) Connected() bool { return s.connected }

func (s *HTTPSource) Fetch(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, s.fail(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, s.fail(fmt.Errorf("frame endpoint returned %s", resp.Status))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.fail(err)
	}
	parsed, err := oj.Parse(body)
	if err != nil {
		return nil, s.fail(err)
	}
	data, ok := parsed.(map[string]any)
	if !ok {
		return nil, s.fail(fmt.Errorf("frame is not an object"))
	}
	if !s.connected {
		s.connected = true
		s.l.Info("connected to simulator", log.String("url", s.url))
	}
	return Frame(data), nil
}

func (s *HTTPSource) fail(err error) error {
	if s.connected {
		s.connected = false
		s.l.Info("simulator disconnected", log.ErrorField(err))
	}
	return fmt.Errorf("%w: %v", ErrNotConnected, err)
}
