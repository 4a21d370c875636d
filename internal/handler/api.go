package handler

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/service"
	"github.com/linkbio/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionUserKey = "user_id"

// Options 为 handler 的可选依赖
type Options struct {
	Logger *zap.Logger
	// TrackingScriptURL/TrackingWebsiteID 非空时公开页注入 Umami 统计脚本
	TrackingScriptURL string
	TrackingWebsiteID string
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	users     *service.UserService
	profiles  *service.ProfileService
	links     *service.LinkService
	socials   *service.SocialService
	designs   *service.DesignService
	avatars   *service.AvatarService
	analytics AnalyticsProvider
	logger    *zap.Logger
	tracking  trackingView
}

type trackingView struct {
	ScriptURL string
	WebsiteID string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, backend storage.Backend, analytics AnalyticsProvider, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tracking := trackingView{
		ScriptURL: strings.TrimSpace(opts.TrackingScriptURL),
		WebsiteID: strings.TrimSpace(opts.TrackingWebsiteID),
	}
	if tracking.ScriptURL == "" || tracking.WebsiteID == "" {
		tracking = trackingView{}
	}

	return &API{
		users:     service.NewUserService(gdb),
		profiles:  service.NewProfileService(gdb),
		links:     service.NewLinkService(gdb),
		socials:   service.NewSocialService(gdb),
		designs:   service.NewDesignService(gdb),
		avatars:   service.NewAvatarService(gdb, backend, logger),
		analytics: analytics,
		logger:    logger,
		tracking:  tracking,
	}
}

// currentUserID 返回会话中的用户 ID，未登录时为空
func currentUserID(c *gin.Context) string {
	if cached, ok := c.Get(sessionUserKey); ok {
		if id, ok := cached.(string); ok {
			return id
		}
	}
	id, _ := sessions.Default(c).Get(sessionUserKey).(string)
	return id
}
