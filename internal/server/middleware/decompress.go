package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/iudanet/manuscript/pkg/api"
)

// DefaultMaxDecodedBody ограничение размера распакованного тела запроса
const DefaultMaxDecodedBody = 32 << 20

// DecompressMiddleware распаковывает тела запросов с Content-Encoding: zstd.
// Клиент сжимает крупные сущности (длинные сцены), мелкие идут как есть.
func DecompressMiddleware(logger *slog.Logger, maxDecoded int64) func(http.Handler) http.Handler {
	if maxDecoded <= 0 {
		maxDecoded = DefaultMaxDecodedBody
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := strings.TrimSpace(strings.ToLower(r.Header.Get("Content-Encoding")))
			switch encoding {
			case "", "identity":
				next.ServeHTTP(w, r)
				return
			case api.EncodingZstd:
			default:
				writeError(w, api.ErrCodeBadRequest, "unsupported content encoding", http.StatusUnsupportedMediaType)
				return
			}

			body, err := decodeZstd(r.Body, maxDecoded)
			_ = r.Body.Close()
			if err != nil {
				logger.Warn("Failed to decompress request body", "path", r.URL.Path, "error", err)
				writeError(w, api.ErrCodeBadRequest, "invalid compressed body", http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Set("Content-Length", strconv.Itoa(len(body)))
			r.Header.Del("Content-Encoding")

			next.ServeHTTP(w, r)
		})
	}
}

// decodeZstd распаковывает поток целиком, не более limit байт
func decodeZstd(r io.Reader, limit int64) ([]byte, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(io.LimitReader(decoder, limit+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("decompressed body exceeds %d bytes", limit)
	}
	return data, nil
}
