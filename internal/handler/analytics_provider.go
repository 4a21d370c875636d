package handler

import (
	"context"

	"github.com/linkbio/internal/service"
)

// AnalyticsProvider 为统计页数据来源，生产环境由 service.AnalyticsService 实现
type AnalyticsProvider interface {
	FetchSummary(ctx context.Context, userID string, query service.RangeQuery) (*service.Summary, error)
}
