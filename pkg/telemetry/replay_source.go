package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ohler55/ojg/oj"
)

// ReplaySource feeds frames from a JSONL recording (one frame object per
// line). Fetch returns io.EOF once the recording is exhausted. Blank lines
// and malformed lines are skipped.
type ReplaySource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
	done    bool
}

func NewReplaySource(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	return &ReplaySource{closer: f, scanner: scanner}, nil
}

// NewReplaySourceFromReader is used by tests.
func NewReplaySourceFromReader(r io.Reader) *ReplaySource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	return &ReplaySource{scanner: scanner}
}

func (s *ReplaySource) Connected() bool { return !s.done }

func (s *ReplaySource) Fetch(ctx context.Context) (Frame, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.line++
		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		parsed, err := oj.Parse(raw)
		if err != nil {
			continue
		}
		if data, ok := parsed.(map[string]any); ok {
			return Frame(data), nil
		}
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}
	return nil, io.EOF
}

func (s *ReplaySource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
