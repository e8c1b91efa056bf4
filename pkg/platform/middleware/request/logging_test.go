package request

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"processguard/pkg/platform/middleware/metadata"
)

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(metadata.ClientMetadata(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))))

	req := httptest.NewRequest(http.MethodPost, "/processes", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	req.RemoteAddr = "192.0.2.4:9000"
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "/processes", line["path"])
	assert.Equal(t, float64(http.StatusBadGateway), line["status"])
	assert.Equal(t, "req-7", line["request_id"])
	assert.Equal(t, "192.0.2.4", line["client_ip"])
	assert.Equal(t, true, line["bot"])
}
