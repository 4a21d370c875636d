package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const umamiTokenTTL = 55 * time.Minute

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// umamiStatusError 表示 Umami 返回了非 2xx 状态
type umamiStatusError struct {
	Status int
	Text   string
}

func (e *umamiStatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Text)
}

type umamiEvent struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	URLPath   string `json:"urlPath"`
	EventType int    `json:"eventType"`
	EventName string `json:"eventName"`
}

type umamiEventPage struct {
	Data []umamiEvent `json:"data"`
}

type umamiEventData struct {
	DataKey     string  `json:"dataKey"`
	StringValue *string `json:"stringValue"`
}

// umamiMetric 兼容 stats 接口中纯数字与 {"value": n} 两种写法
type umamiMetric float64

func (m *umamiMetric) UnmarshalJSON(data []byte) error {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*m = umamiMetric(number)
		return nil
	}
	var wrapped struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*m = umamiMetric(wrapped.Value)
	return nil
}

type umamiStats struct {
	Visits  umamiMetric `json:"visits"`
	Bounces umamiMetric `json:"bounces"`
}

type umamiLoginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	Data        *struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

func (r umamiLoginResponse) token() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.AccessToken != "":
		return r.AccessToken
	case r.Data != nil && r.Data.Token != "":
		return r.Data.Token
	case r.Data != nil:
		return r.Data.AccessToken
	}
	return ""
}

// umamiClient 封装 Umami REST 接口。
// 未配置静态 token 时使用账号登录，token 在内存中缓存 55 分钟。
type umamiClient struct {
	baseURL   string
	websiteID string
	apiToken  string
	username  string
	password  string

	http    httpDoer
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newUmamiClient(baseURL, websiteID, apiToken, username, password string, logger *zap.Logger) *umamiClient {
	settings := gobreaker.Settings{
		Name:        "umami",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("analytics circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &umamiClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		websiteID: strings.TrimSpace(websiteID),
		apiToken:  strings.TrimSpace(apiToken),
		username:  strings.TrimSpace(username),
		password:  password,
		http:      &http.Client{Timeout: 20 * time.Second},
		breaker:   gobreaker.NewCircuitBreaker(settings),
		now:       time.Now,
	}
}

// configured 判断是否具备站点 ID 以及任一种认证方式
func (c *umamiClient) configured() bool {
	if c.websiteID == "" {
		return false
	}
	return c.apiToken != "" || (c.username != "" && c.password != "")
}

// bearer 返回可用的 token，必要时登录
func (c *umamiClient) bearer(ctx context.Context) (string, error) {
	if c.apiToken != "" {
		return c.apiToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	if err != nil {
		return "", fmt.Errorf("encode umami login: %w", err)
	}

	var login umamiLoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", nil, "", payload, &login); err != nil {
		return "", fmt.Errorf("umami login failed: %w", err)
	}
	token := login.token()
	if token == "" {
		return "", errors.New("umami login failed: token not found in response")
	}

	c.token = token
	c.expiresAt = c.now().Add(umamiTokenTTL)
	return token, nil
}

// invalidate 丢弃缓存的登录 token
func (c *umamiClient) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *umamiClient) events(ctx context.Context, token string, r TimeRange, path string, pageSize int) ([]umamiEvent, error) {
	query := rangeQuery(r)
	if path != "" {
		query.Set("path", path)
	}
	query.Set("pageSize", fmt.Sprint(pageSize))

	var page umamiEventPage
	if err := c.get(ctx, token, "/api/websites/"+url.PathEscape(c.websiteID)+"/events", query, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func (c *umamiClient) stats(ctx context.Context, token string, r TimeRange) (umamiStats, error) {
	var stats umamiStats
	err := c.get(ctx, token, "/api/websites/"+url.PathEscape(c.websiteID)+"/stats", rangeQuery(r), &stats)
	return stats, err
}

// eventData 不经过熔断器，单个事件失败只影响该事件
func (c *umamiClient) eventData(ctx context.Context, token, eventID string) ([]umamiEventData, error) {
	var items []umamiEventData
	path := "/api/websites/" + url.PathEscape(c.websiteID) + "/event-data/" + url.PathEscape(eventID)
	if err := c.do(ctx, http.MethodGet, path, nil, token, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *umamiClient) get(ctx context.Context, token, path string, query url.Values, out interface{}) error {
	err := c.call(ctx, http.MethodGet, path, query, token, nil, out)
	var status *umamiStatusError
	if errors.As(err, &status) && status.Status == http.StatusUnauthorized && c.apiToken == "" {
		c.invalidate()
	}
	return err
}

// call 经熔断器发起请求
func (c *umamiClient) call(ctx context.Context, method, path string, query url.Values, token string, body []byte, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, method, path, query, token, body, out)
	})
	return err
}

func (c *umamiClient) do(ctx context.Context, method, path string, query url.Values, token string, body []byte, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &umamiStatusError{Status: resp.StatusCode, Text: http.StatusText(resp.StatusCode)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func rangeQuery(r TimeRange) url.Values {
	query := url.Values{}
	query.Set("startAt", fmt.Sprint(r.StartAt))
	query.Set("endAt", fmt.Sprint(r.EndAt))
	return query
}
