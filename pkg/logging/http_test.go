package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestAccessLog(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  string
		wantLevel string
	}{
		{
			name: "implicit ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			},
			wantCode:  `"status_code":200`,
			wantLevel: `"level":"info"`,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantCode:  `"status_code":404`,
			wantLevel: `"level":"info"`,
		},
		{
			name: "bad gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			},
			wantCode:  `"status_code":502`,
			wantLevel: `"level":"warn"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := zerolog.New(buf)

			rec := httptest.NewRecorder()
			AccessLog(logger, tt.handler).ServeHTTP(rec, httptest.NewRequest("GET", "/about", nil))

			output := buf.String()
			if !strings.Contains(output, tt.wantCode) {
				t.Errorf("Expected output to contain %s, got %q", tt.wantCode, output)
			}
			if !strings.Contains(output, tt.wantLevel) {
				t.Errorf("Expected output to contain %s, got %q", tt.wantLevel, output)
			}
			if !strings.Contains(output, `"path":"/about"`) {
				t.Errorf("Expected output to contain path, got %q", output)
			}
		})
	}
}
