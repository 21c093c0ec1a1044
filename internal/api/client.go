package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Zacy-Sokach/cadgen/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// maxResponseBytes 生成响应体上限
	maxResponseBytes = 8 << 20
	// maxAssetBytes 模型文件上限
	maxAssetBytes = 64 << 20
)

// 全局共享的 Transport，实现连接池化
var (
	sharedTransport *http.Transport
	transportOnce   sync.Once
)

// getSharedTransport 返回共享的 Transport 实例
// 不设置 ResponseHeaderTimeout，生成请求可能要跑好几分钟
func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	})
	return sharedTransport
}

type Client struct {
	baseURL *url.URL
	doer    utils.Doer
	timeout time.Duration
	logger  *zap.Logger
}

// Option 配置 Client
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端，测试时注入
func WithHTTPClient(doer utils.Doer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithTimeout 单个请求的超时，0 表示不限制
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient 创建后端 API 客户端
// baseURL: API 根路径，例如 http://localhost:8000/api
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("解析 base url 失败: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url 必须是绝对地址: %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = &http.Client{
			Timeout:   c.timeout,
			Transport: getSharedTransport(),
		}
	}
	return c, nil
}

// BaseURL 返回 API 根路径
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// Generate 提交生成或细化请求，不做任何重试
// 返回的 error 只表示传输层失败；后端报告的生成失败以 Failed 返回
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/generate"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With(zap.String("request_id", requestID))
	logger.Info("generate request",
		zap.Bool("refinement", req.IsRefinement()),
		zap.Bool("has_session", req.SessionID != nil),
		zap.Int("prompt_len", len(req.Prompt)),
	)

	start := time.Now()
	resp, err := c.doer.Do(httpReq)
	if err != nil {
		logger.Warn("generate transport error", zap.Error(err))
		// 原样返回，保证错误文本就是传输错误本身的文本
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Warn("generate read error", zap.Error(err))
		return nil, err
	}

	logger.Info("generate response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	var payload generateResponse
	decodeErr := json.Unmarshal(data, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 非 2xx 但带着逻辑错误，按逻辑错误处理
		if decodeErr == nil && payload.Error != nil {
			return payload.toResult()
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data),
			Body:       string(data),
		}
	}

	if decodeErr != nil {
		return nil, &DecodeError{Err: decodeErr}
	}
	return payload.toResult()
}

// DownloadURL 构造导出下载地址，不发出任何请求
func (c *Client) DownloadURL(id SessionID, format Format) string {
	q := url.Values{}
	q.Set("format", string(format))
	return c.endpoint("/download/"+url.PathEscape(id.String())) + "?" + q.Encode()
}

// AssetURL 把 glb_url 解析成绝对地址，相对路径以 base url 的源为准
func (c *Client) AssetURL(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("解析模型地址失败: %w", err)
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// FetchAsset 下载生成的模型文件
func (c *Client) FetchAsset(ctx context.Context, ref string) ([]byte, error) {
	assetURL, err := c.AssetURL(ref)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("下载模型失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(body),
			Body:       string(body),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取模型失败: %w", err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("模型文件超过 %d MiB 上限", maxAssetBytes>>20)
	}
	c.logger.Debug("asset fetched", zap.String("url", assetURL), zap.Int("bytes", len(data)))
	return data, nil
}

// Status 后端健康检查
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/"), nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(body), Body: string(body)}
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &status, nil
}
