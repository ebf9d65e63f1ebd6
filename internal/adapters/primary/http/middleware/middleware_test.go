package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/core/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": c.GetString(ContextRequestID),
			"actor":      domain.ActorFromContext(c.Request.Context()),
		})
	})
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())

	w := get(r, "/ping", nil)
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Contains(t, w.Body.String(), generated)

	w = get(r, "/ping", map[string]string{HeaderRequestID: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
}

func TestActor(t *testing.T) {
	r := newRouter(Actor())

	w := get(r, "/ping", map[string]string{HeaderActor: "  alice "})
	assert.Contains(t, w.Body.String(), `"actor":"alice"`)

	w = get(r, "/ping", nil)
	assert.Contains(t, w.Body.String(), `"actor":"`+domain.AnonymousActor+`"`)
}

func TestLogging_LevelByStatus(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	r := newRouter(RequestID(), Actor(), Logging())

	get(r, "/ping", map[string]string{HeaderActor: "bob", HeaderRequestID: "r1"})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, "/ping", entry.Data["route"])
	assert.Equal(t, "r1", entry.Data["request_id"])
	assert.Equal(t, "bob", entry.Data["actor"])

	get(r, "/missing", nil)
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)

	get(r, "/boom", nil)
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
}

func TestMetrics_CountsByRoute(t *testing.T) {
	r := newRouter(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	get(r, "/ping", nil)
	get(r, "/nowhere", nil)

	body := get(r, "/metrics", nil).Body.String()
	assert.Contains(t, body, `aibom_http_requests_total{method="GET",route="/ping",status="200"}`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
}
