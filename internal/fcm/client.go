package fcm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gasra-notifier/common/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notification 推送标题和正文
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message 单个接收人的推送消息
type Message struct {
	Token        string            `json:"token"`
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type sendRequest struct {
	Message Message `json:"message"`
}

type sendResponse struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GatewayError 推送网关返回非 2xx
type GatewayError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("messaging gateway error: %s (status: %d, %s)", e.Message, e.StatusCode, e.Status)
	}
	return fmt.Sprintf("messaging gateway error: %s (status: %d)", e.Message, e.StatusCode)
}

// Client 推送网关 HTTP 客户端
type Client struct {
	httpClient *resty.Client
	sendPath   string
	logger     *zap.Logger
}

// NewClient 创建推送网关客户端（不重试）
func NewClient(baseURL, projectID string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		sendPath:   fmt.Sprintf("/v1/projects/%s/messages:send", url.PathEscape(projectID)),
		logger:     logger,
	}
}

// Send 发送一条消息，成功时返回网关分配的 message name
func (c *Client) Send(ctx context.Context, accessToken string, msg Message) (string, error) {
	var result sendResponse
	var apiErr errorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(sendRequest{Message: msg}).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.sendPath)
	if err != nil {
		c.logger.Warn("Messaging gateway call failed",
			zap.String("token", logger.MaskToken(msg.Token)),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to call messaging gateway: %w", err)
	}

	if !resp.IsSuccess() {
		gwErr := &GatewayError{
			StatusCode: resp.StatusCode(),
			Status:     apiErr.Error.Status,
			Message:    apiErr.Error.Message,
		}
		if gwErr.Message == "" {
			gwErr.Message = strings.TrimSpace(resp.String())
		}
		c.logger.Warn("Messaging gateway returned error",
			zap.String("token", logger.MaskToken(msg.Token)),
			zap.Int("status_code", gwErr.StatusCode),
			zap.String("status", gwErr.Status),
			zap.String("msg", gwErr.Message),
		)
		return "", gwErr
	}

	return result.Name, nil
}
