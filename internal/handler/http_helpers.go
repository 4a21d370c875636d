package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// handleServiceError 把服务层错误分类映射为 HTTP 状态码，消息原样返回
func (a *API) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, service.Message(err))
	case errors.Is(err, service.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, service.Message(err))
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, service.Message(err))
	case errors.Is(err, service.ErrSecurity):
		respondError(c, http.StatusForbidden, service.Message(err))
	case errors.Is(err, service.ErrUpstream):
		a.logger.Warn("upstream request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusBadGateway, service.Message(err))
	case errors.Is(err, service.ErrNotConfigured):
		respondError(c, http.StatusServiceUnavailable, service.Message(err))
	default:
		a.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
