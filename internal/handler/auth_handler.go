package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type setupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetupStatus 返回是否已有管理员以及当前是否已登录，前端据此决定跳转
func (a *API) SetupStatus(c *gin.Context) {
	hasUser, err := a.users.HasAdmin()
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hasUser":    hasUser,
		"isLoggedIn": currentUserID(c) != "",
	})
}

// Setup 创建唯一的管理员账号并直接登录
func (a *API) Setup(c *gin.Context) {
	var payload setupRequest
	if !bindJSON(c, &payload, "Invalid setup request") {
		return
	}

	user, err := a.users.CreateAdmin(payload.Name, payload.Email, payload.Password)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	if err := saveSession(c, user.ID); err != nil {
		a.logger.Error("save session failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to start session")
		return
	}

	a.logger.Info("admin account created", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
}

// Login 校验邮箱和密码，成功后写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "Invalid login request") {
		return
	}

	user, err := a.users.Authenticate(payload.Email, payload.Password)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	if err := saveSession(c, user.ID); err != nil {
		a.logger.Error("save session failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to start session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
}

// Logout 清空会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		a.logger.Warn("clear session failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// DeleteAccount 删除存储中的头像对象和账号下的全部数据，然后退出登录
func (a *API) DeleteAccount(c *gin.Context) {
	userID := currentUserID(c)

	a.avatars.Purge(c.Request.Context(), userID)
	if err := a.users.DeleteAccount(userID); err != nil {
		a.handleServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()

	a.logger.Info("account deleted", zap.String("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// AuthRequired 要求已登录，否则返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := sessions.Default(c).Get(sessionUserKey).(string)
		if userID == "" {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Set(sessionUserKey, userID)
		c.Next()
	}
}

func saveSession(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, userID)
	return session.Save()
}
