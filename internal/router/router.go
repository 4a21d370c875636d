package router

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linkbio/internal/handler"
	"github.com/linkbio/internal/storage"
	"github.com/linkbio/web"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionName   = "linkbio_session"
	sessionMaxAge = 30 * 24 * 60 * 60
	requestIDKey  = "request_id"
)

var (
	errMissingDatabase = errors.New("database dependency required")
	errMissingStorage  = errors.New("storage dependency required")
	errMissingSecret   = errors.New("session secret required")
)

// Dependencies 汇总构建路由所需的依赖
type Dependencies struct {
	DB             *gorm.DB
	Storage        storage.Backend
	Analytics      handler.AnalyticsProvider
	Logger         *zap.Logger
	SessionSecret  string
	SecureCookie   bool
	AllowedOrigins []string
	// LocalMediaRoot 为本地存储根目录，非空时以 /media 提供头像文件
	LocalMediaRoot    string
	TrackingScriptURL string
	TrackingWebsiteID string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, errMissingDatabase
	}
	if deps.Storage == nil {
		return nil, errMissingStorage
	}
	if deps.SessionSecret == "" {
		return nil, errMissingSecret
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(deps.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   deps.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	tmpl, err := template.New("").ParseFS(web.Templates, "template/*.html")
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	if deps.LocalMediaRoot != "" {
		r.Static("/media", filepath.Join(deps.LocalMediaRoot, "media"))
	}

	api := handler.NewAPI(deps.DB, deps.Storage, deps.Analytics, handler.Options{
		Logger:            logger,
		TrackingScriptURL: deps.TrackingScriptURL,
		TrackingWebsiteID: deps.TrackingWebsiteID,
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 公开页
	r.GET("/", api.ShowProfile)
	r.GET("/api/public/profile", api.PublicProfile)

	r.GET("/api/setup", api.SetupStatus)
	r.POST("/api/setup", api.Setup)
	r.POST("/api/auth/login", api.Login)
	r.POST("/api/auth/logout", api.Logout)

	// 后台接口，需要登录
	dashboard := r.Group("/api/dashboard")
	dashboard.Use(handler.AuthRequired())
	{
		dashboard.GET("", api.Dashboard)
		dashboard.PUT("/profile", api.UpdateProfile)
		dashboard.DELETE("/account", api.DeleteAccount)

		dashboard.GET("/links", api.ListLinks)
		dashboard.POST("/links", api.CreateLink)
		dashboard.POST("/links/reorder", api.ReorderLinks)
		dashboard.PUT("/links/:id", api.UpdateLink)
		dashboard.DELETE("/links/:id", api.DeleteLink)
		dashboard.POST("/links/:id/toggle", api.ToggleLink)

		dashboard.GET("/socials", api.ListSocials)
		dashboard.PUT("/socials", api.SaveSocials)
		dashboard.POST("/socials/reorder", api.ReorderSocials)

		dashboard.GET("/design", api.GetDesign)
		dashboard.PATCH("/design", api.PatchDesign)

		dashboard.GET("/avatars", api.ListAvatars)
		dashboard.POST("/avatars/authorize", api.AuthorizeAvatarUpload)
		dashboard.POST("/avatars/finalize", api.FinalizeAvatarUpload)
		dashboard.POST("/avatars/upload", api.UploadAvatar)
		dashboard.POST("/avatars/clear", api.ClearAvatar)
		dashboard.POST("/avatars/:id/activate", api.ActivateAvatar)
		dashboard.DELETE("/avatars/:id", api.DeleteAvatar)

		dashboard.GET("/analytics", api.Analytics)
	}

	return r, nil
}

// requestLogger 为每个请求分配 request id 并记录耗时
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
