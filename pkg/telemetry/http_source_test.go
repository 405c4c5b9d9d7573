package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"FuelLevel": 33.5}`)) //nolint:errcheck // test server
		}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	assert.False(t, src.Connected())

	frame, err := src.Fetch(context.Background())
	assert.NoError(t, err)
	assert.InDelta(t, 33.5, frame.Float("FuelLevel", 0), 1e-9)
	assert.True(t, src.Connected())
}

func TestHTTPSource_FetchErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "server error", body: "boom", code: http.StatusInternalServerError},
		{name: "malformed body", body: "not json", code: http.StatusOK},
		{name: "non-object body", body: "[1,2]", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.code)
					w.Write([]byte(tt.body)) //nolint:errcheck // test server
				}))
			defer srv.Close()

			src := NewHTTPSource(srv.URL)
			_, err := src.Fetch(context.Background())
			assert.ErrorIs(t, err, ErrNotConnected)
			assert.False(t, src.Connected())
		})
	}
}

func TestHTTPSource_DisconnectEdge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`)) //nolint:errcheck // test server
		}))

	src := NewHTTPSource(srv.URL)
	_, err := src.Fetch(context.Background())
	assert.NoError(t, err)
	assert.True(t, src.Connected())

	srv.Close()
	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, src.Connected())
}
