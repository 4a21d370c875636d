package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linkbio/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	eventTypePageview = 1
	eventTypeCustom   = 2

	eventClickLink   = "click-link"
	eventClickSocial = "click-social"

	pageviewPageSize    = 1000
	customEventPageSize = 100
	detailConcurrency   = 8

	unknownDimension = "Unknown"
)

// ClickCount 为按维度分组后的点击数
type ClickCount struct {
	Value string `json:"value"`
	Total int    `json:"total"`
}

// SummaryStats 为统计页顶部的汇总指标
type SummaryStats struct {
	Pageviews  int     `json:"pageviews"`
	Visitors   int     `json:"visitors"`
	Visits     int     `json:"visits"`
	BounceRate float64 `json:"bounceRate"`
}

// Summary 为统计页数据。HasConfig 为 false 时前端展示配置引导
type Summary struct {
	HasConfig    bool         `json:"hasConfig"`
	Error        string       `json:"error,omitempty"`
	Range        TimeRange    `json:"range"`
	Stats        SummaryStats `json:"stats"`
	LinkClicks   []ClickCount `json:"linkClicks"`
	SocialClicks []ClickCount `json:"socialClicks"`
}

// AnalyticsService 从 Umami 拉取原始事件并聚合为统计页数据
type AnalyticsService struct {
	client   *umamiClient
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService 创建 AnalyticsService，时区无法识别时回退到本地时区
func NewAnalyticsService(cfg config.AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}

	location := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		loaded, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.Warn("unknown analytics timezone, using local", zap.String("timezone", cfg.Timezone), zap.Error(err))
		} else {
			location = loaded
		}
	}

	return &AnalyticsService{
		client:   newUmamiClient(cfg.APIURL, cfg.WebsiteID, cfg.APIToken, cfg.Username, cfg.Password, logger),
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// SetHTTPClient 替换访问 Umami 的 HTTP 客户端
func (s *AnalyticsService) SetHTTPClient(client httpDoer) {
	if client == nil {
		return
	}
	s.client.http = client
}

// SetClock 替换当前时间来源，同时影响区间计算与 token 过期判断
func (s *AnalyticsService) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.now = now
	s.client.now = now
}

// Configured 判断是否已配置 Umami
func (s *AnalyticsService) Configured() bool {
	return s.client.configured()
}

// FetchSummary 汇总指定区间的访问与点击数据。
// 主请求任一失败则整体返回 ErrUpstream；单个事件详情失败只忽略该事件。
func (s *AnalyticsService) FetchSummary(ctx context.Context, userID string, query RangeQuery) (*Summary, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if !s.client.configured() {
		return &Summary{HasConfig: false, Error: ErrNotConfigured.Error()}, nil
	}

	timeRange, err := ResolveRange(query, s.now(), s.location)
	if err != nil {
		return nil, err
	}

	token, err := s.client.bearer(ctx)
	if err != nil {
		s.logger.Error("umami authentication failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var (
		pageviews []umamiEvent
		stats     umamiStats
		events    []umamiEvent
	)

	primary, primaryCtx := errgroup.WithContext(ctx)
	primary.Go(func() error {
		items, err := s.client.events(primaryCtx, token, timeRange, "/", pageviewPageSize)
		if err != nil {
			return fmt.Errorf("pageviews request failed: %w", err)
		}
		pageviews = items
		return nil
	})
	primary.Go(func() error {
		result, err := s.client.stats(primaryCtx, token, timeRange)
		if err != nil {
			return fmt.Errorf("stats request failed: %w", err)
		}
		stats = result
		return nil
	})
	primary.Go(func() error {
		items, err := s.client.events(primaryCtx, token, timeRange, "", customEventPageSize)
		if err != nil {
			return fmt.Errorf("events request failed: %w", err)
		}
		events = items
		return nil
	})
	if err := primary.Wait(); err != nil {
		s.logger.Error("fetch analytics failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	summary := &Summary{HasConfig: true, Range: timeRange}

	sessions := make(map[string]struct{})
	for _, event := range pageviews {
		if event.EventType != eventTypePageview || event.URLPath != "/" {
			continue
		}
		summary.Stats.Pageviews++
		sessions[event.SessionID] = struct{}{}
	}
	summary.Stats.Visitors = len(sessions)

	summary.Stats.Visits = int(stats.Visits)
	if stats.Visits > 0 {
		summary.Stats.BounceRate = float64(stats.Bounces) / float64(stats.Visits) * 100
	}

	summary.LinkClicks, summary.SocialClicks = s.groupClicks(ctx, token, events)
	return summary, nil
}

// groupClicks 并发拉取点击事件详情并按 url/platform 计数
func (s *AnalyticsService) groupClicks(ctx context.Context, token string, events []umamiEvent) ([]ClickCount, []ClickCount) {
	var mu sync.Mutex
	byURL := map[string]int{}
	byPlatform := map[string]int{}

	group := new(errgroup.Group)
	group.SetLimit(detailConcurrency)

	for _, event := range events {
		if event.EventType != eventTypeCustom {
			continue
		}

		var (
			key     string
			buckets map[string]int
		)
		switch event.EventName {
		case eventClickLink:
			key, buckets = "url", byURL
		case eventClickSocial:
			key, buckets = "platform", byPlatform
		default:
			continue
		}

		event := event
		group.Go(func() error {
			items, err := s.client.eventData(ctx, token, event.ID)
			if err != nil {
				s.logger.Debug("skip analytics event detail", zap.String("event_id", event.ID), zap.Error(err))
				return nil
			}

			value := unknownDimension
			for _, item := range items {
				if item.DataKey == key && item.StringValue != nil && *item.StringValue != "" {
					value = *item.StringValue
					break
				}
			}

			mu.Lock()
			buckets[value]++
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return sortClicks(byURL), sortClicks(byPlatform)
}

func sortClicks(counts map[string]int) []ClickCount {
	result := make([]ClickCount, 0, len(counts))
	for value, total := range counts {
		result = append(result, ClickCount{Value: value, Total: total})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Value < result[j].Value
	})
	return result
}
