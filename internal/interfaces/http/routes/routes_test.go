package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easayliu/tg-file-renamer/internal/application/container"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/internal/infrastructure/config"
)

func newTestRouter(t *testing.T, webhook gin.HandlerFunc) (*gin.Engine, *container.ServiceContainer) {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))

	dir := t.TempDir()
	cfg.Server.Mode = gin.TestMode
	cfg.Telegram.Enabled = false
	cfg.Janitor.Enabled = false
	cfg.Rename.WorkDir = filepath.Join(dir, "work")
	cfg.Storage.DataDir = filepath.Join(dir, "data")

	c := container.NewServiceContainer(&cfg)
	require.NoError(t, c.Init())
	t.Cleanup(c.Shutdown)
	return SetupRoutes(c, webhook), c
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "ok", decode(t, w)["status"])
	}
}

func TestSessions(t *testing.T) {
	router, c := newTestRouter(t, nil)
	store := c.GetSessionStore()

	store.Create(7, rename.ArtifactRef{FileID: "f1", FileName: "a.pdf", Size: 10}, rename.MessageRef{ChatID: 7, MessageID: 3})
	store.Create(8, rename.ArtifactRef{FileID: "f2", FileName: "b.mkv"}, rename.MessageRef{})
	_, err := store.TryBeginProcessing(8)
	require.NoError(t, err)

	w := do(router, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])
	states := make(map[float64]map[string]interface{})
	for _, raw := range data["sessions"].([]interface{}) {
		s := raw.(map[string]interface{})
		states[s["user_id"].(float64)] = s
	}
	require.Len(t, states, 2)
	assert.Equal(t, "awaiting_filename", states[7]["state"])
	assert.Greater(t, states[7]["remaining_seconds"].(float64), float64(0))
	assert.Equal(t, "processing", states[8]["state"])
	assert.Equal(t, float64(0), states[8]["remaining_seconds"])

	w = do(router, http.MethodDelete, "/api/v1/sessions/8", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_BUSY", decode(t, w)["code"])
	busy, ok := store.Get(8)
	require.True(t, ok, "processing session stays with its run")
	assert.Equal(t, "processing", string(busy.State))

	w = do(router, http.MethodDelete, "/api/v1/sessions/7", "")
	assert.Equal(t, http.StatusOK, w.Code)
	_, ok = store.Get(7)
	assert.False(t, ok)

	w = do(router, http.MethodDelete, "/api/v1/sessions/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode(t, w)["code"])

	w = do(router, http.MethodDelete, "/api/v1/sessions/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestPreferences(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := do(router, http.MethodGet, "/api/v1/users/5/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "auto", data["send_as"])

	w = do(router, http.MethodPut, "/api/v1/users/5/preferences", `{"send_as":"media","caption_template":" {filename} "}`)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "video", data["send_as"])
	assert.Equal(t, "{filename}", data["caption_template"])

	w = do(router, http.MethodPut, "/api/v1/users/5/preferences", `{"send_as":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/v1/users/5/preferences", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsAndWebhook(t *testing.T) {
	called := false
	router, _ := newTestRouter(t, func(c *gin.Context) {
		called = true
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "renamer_active_sessions")

	w = do(router, http.MethodPost, "/telegram/webhook", `{"update_id":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestWebhookNotRegistered(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	w := do(router, http.MethodPost, "/telegram/webhook", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	w := do(router, http.MethodOptions, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
