package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPPublisher POSTs snapshots to the ingestion endpoint with a short
// timeout. No retries: the endpoint either takes the snapshot or the tick's
// data is gone.
type HTTPPublisher struct {
	url    string
	client *http.Client
}

type HTTPOption func(*HTTPPublisher)

func WithTimeout(timeout time.Duration) HTTPOption {
	return func(p *HTTPPublisher) {
		p.client.Timeout = timeout
	}
}

func WithClient(client *http.Client) HTTPOption {
	return func(p *HTTPPublisher) {
		p.client = client
	}
}

func NewHTTPPublisher(url string, opts ...HTTPOption) *HTTPPublisher {
	ret := &HTTPPublisher{
		url:    url,
		client: &http.Client{Timeout: time.Second},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (p *HTTPPublisher) Publish(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("ingest endpoint returned %s", resp.Status)
	}
	return nil
}

func (p *HTTPPublisher) Close() {}
