package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
)

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body statusResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthIsAlwaysOK(t *testing.T) {
	s := NewServer("127.0.0.1", 0)
	rec, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyFollowsFlagAndChecks(t *testing.T) {
	s := NewServer("127.0.0.1", 0)

	rec, body := get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body.Status)

	s.SetReady(true)
	discordUp := true
	s.RegisterCheck("discord", func() (bool, string) { return discordUp, "" })
	s.RegisterCheck("sessions", func() (bool, string) { return true, "3 active" })

	rec, body = get(t, s, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"discord": "ok", "sessions": "3 active"}, body.Checks)

	discordUp = false
	rec, body = get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "failing", body.Checks["discord"])
}

func TestMetricsEndpointServesCollectors(t *testing.T) {
	metrics.TurnsTotal.WithLabelValues("follow_up").Inc()

	s := NewServer("127.0.0.1", 0)
	rec, _ := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "turns_total")
}
