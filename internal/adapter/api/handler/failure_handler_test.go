package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/V4T54L/hookwatch/internal/domain"
)

type mockLookup struct {
	texts map[string]string
	err   error
}

func (m *mockLookup) FullText(_ context.Context, messageID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	text, ok := m.texts[messageID]
	if !ok {
		return "", domain.ErrFailureNotFound
	}
	return text, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestFailureHandler_GetFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		messageID      string
		lookupErr      error
		expectedStatus int
		expectedBody   string
	}{
		{name: "Found", messageID: "m1", expectedStatus: http.StatusOK, expectedBody: "boom\nstack"},
		{name: "Not Found", messageID: "m2", expectedStatus: http.StatusNotFound, expectedBody: "failure not found\n"},
		{name: "Store Error", messageID: "m1", lookupErr: errors.New("db down"), expectedStatus: http.StatusInternalServerError, expectedBody: "Internal server error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFailureHandler(&mockLookup{texts: map[string]string{"m1": "boom\nstack"}, err: tt.lookupErr}, nil, logger)
			mux := http.NewServeMux()
			mux.HandleFunc("GET /admin/failures/{messageID}", h.GetFailure)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/failures/"+tt.messageID, nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if body := rr.Body.String(); body != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %q want %q", body, tt.expectedBody)
			}
		})
	}
}

func TestFailureHandler_HealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		pinger         Pinger
		expectedStatus int
		expectedBody   string
	}{
		{name: "No Pinger", expectedStatus: http.StatusOK, expectedBody: `{"status":"ok"}`},
		{name: "Store Up", pinger: pingFunc(func(context.Context) error { return nil }), expectedStatus: http.StatusOK, expectedBody: `{"status":"ok"}`},
		{name: "Store Down", pinger: pingFunc(func(context.Context) error { return errors.New("refused") }), expectedStatus: http.StatusServiceUnavailable, expectedBody: `{"status":"unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFailureHandler(&mockLookup{}, tt.pinger, logger)
			rr := httptest.NewRecorder()
			h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if body := rr.Body.String(); body != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %q want %q", body, tt.expectedBody)
			}
		})
	}
}
