package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOutcome(t *testing.T) {
	m := New(nil)

	m.ObserveOutcome("delivered", "video", 2*time.Second)
	m.ObserveOutcome("delivered", "video", time.Second)
	m.ObserveOutcome("invalid_name", "", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renamesTotal.WithLabelValues("delivered", "video")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renamesTotal.WithLabelValues("invalid_name", "none")))
}

func TestCounters(t *testing.T) {
	m := New(nil)

	m.AddBytes("download", 1024)
	m.AddBytes("download", 0)
	m.AddBytes("upload", -5)
	m.SessionCreated()
	m.SessionCreated()
	m.SessionExpired()
	m.UpdateHandled("document")
	m.JanitorRemoved(3)

	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues("download")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsExpired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updatesTotal.WithLabelValues("document")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.janitorRemoved))
}

func TestHandler(t *testing.T) {
	m := New(func() int { return 4 })
	m.SessionCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.True(t, strings.Contains(text, "renamer_active_sessions 4"))
	assert.True(t, strings.Contains(text, "renamer_sessions_created_total 1"))
}
