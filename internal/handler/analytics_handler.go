package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/service"
)

// Analytics 返回所选时间范围内的访问与点击统计
func (a *API) Analytics(c *gin.Context) {
	if a.analytics == nil {
		c.JSON(http.StatusOK, service.Summary{HasConfig: false, Error: service.ErrNotConfigured.Error()})
		return
	}

	query := service.RangeQuery{Preset: strings.TrimSpace(c.Query("range"))}
	var err error
	if query.From, err = parseMillisQuery(c, "from"); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid from")
		return
	}
	if query.To, err = parseMillisQuery(c, "to"); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid to")
		return
	}

	summary, err := a.analytics.FetchSummary(c.Request.Context(), currentUserID(c), query)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func parseMillisQuery(c *gin.Context, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
