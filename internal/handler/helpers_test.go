package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/service"
	"github.com/linkbio/internal/storage"
	"github.com/linkbio/web"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ginOnce sync.Once

type stubAnalytics struct {
	summary *service.Summary
	err     error
	calls   int
	userID  string
	query   service.RangeQuery
}

func (s *stubAnalytics) FetchSummary(_ context.Context, userID string, query service.RangeQuery) (*service.Summary, error) {
	s.calls++
	s.userID = userID
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

type handlerTestEnv struct {
	api       *API
	db        *gorm.DB
	root      string
	analytics *stubAnalytics
}

func setupHandlerTest(t *testing.T) *handlerTestEnv {
	t.Helper()

	ginOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		sqlDB.Close()
	})

	root := t.TempDir()
	analytics := &stubAnalytics{summary: &service.Summary{HasConfig: true}}
	api := NewAPI(gdb, storage.NewLocalBackend(root), analytics, Options{
		TrackingScriptURL: "https://umami.example.com/script.js",
		TrackingWebsiteID: "site-1",
	})

	return &handlerTestEnv{api: api, db: gdb, root: root, analytics: analytics}
}

func (e *handlerTestEnv) seedAdmin(t *testing.T) *db.User {
	t.Helper()

	user, err := e.api.users.CreateAdmin("Jane Doe", "jane@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	return user
}

// perform 直接调用单个 handler，userID 非空时模拟已登录
func perform(handler gin.HandlerFunc, userID, method, target string, body interface{}, params ...gin.Param) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	if userID != "" {
		c.Set(sessionUserKey, userID)
	}

	handler(c)
	return w
}

// newSessionEngine 挂载会话中间件与认证相关路由，用于需要真实 cookie 的用例
func newSessionEngine(api *API) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("linkbio_test", cookie.NewStore([]byte("test-secret"))))
	r.GET("/api/setup", api.SetupStatus)
	r.POST("/api/setup", api.Setup)
	r.POST("/api/auth/login", api.Login)
	r.POST("/api/auth/logout", api.Logout)

	dashboard := r.Group("/api/dashboard", AuthRequired())
	dashboard.GET("", api.Dashboard)
	dashboard.DELETE("/account", api.DeleteAccount)
	return r
}

func newPublicEngine(api *API) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(web.Templates, "template/*.html")))
	r.GET("/", api.ShowProfile)
	r.GET("/api/public/profile", api.PublicProfile)
	return r
}

func sendJSON(r http.Handler, method, target string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return payload
}
