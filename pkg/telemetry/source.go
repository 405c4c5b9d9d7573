package telemetry

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by a Source while the simulator is not
// delivering frames. The loop skips the tick and retries.
var ErrNotConnected = errors.New("simulator not connected")

// Source delivers one raw frame per tick.
type Source interface {
	// Fetch returns the current frame. On any failure the returned error
	// describes the condition; the frame is nil in that case.
	Fetch(ctx context.Context) (Frame, error)
	// Connected reports the connection state as of the last Fetch.
	Connected() bool
}
