package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/manuscript/pkg/api"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = encoder.Write(data)
	require.NoError(t, err)
	require.NoError(t, encoder.Close())
	return buf.Bytes()
}

func TestDecompressMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	payload := []byte(`{"entity":{"id":3,"content":"` + strings.Repeat("long scene text ", 200) + `"}}`)

	tests := []struct {
		name           string
		encoding       string
		expectedBody   string
		body           []byte
		expectedStatus int
	}{
		{
			name:           "plain body passes through",
			body:           payload,
			expectedStatus: http.StatusOK,
			expectedBody:   string(payload),
		},
		{
			name:           "zstd body is decoded",
			encoding:       "zstd",
			body:           compress(t, payload),
			expectedStatus: http.StatusOK,
			expectedBody:   string(payload),
		},
		{
			name:           "corrupted zstd body",
			encoding:       "zstd",
			body:           []byte("definitely not zstd"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsupported encoding",
			encoding:       "br",
			body:           payload,
			expectedStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			handler := DecompressMiddleware(logger, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var err error
				got, err = io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Empty(t, r.Header.Get("Content-Encoding"))
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPut, "/api/v1/projects/novel/entities/scene/3", bytes.NewReader(tt.body))
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedBody, string(got))
			}
		})
	}
}

func TestDecompressMiddleware_Limit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := DecompressMiddleware(logger, 64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPut, "/test", bytes.NewReader(compress(t, bytes.Repeat([]byte("a"), 1024))))
	req.Header.Set("Content-Encoding", api.EncodingZstd)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
