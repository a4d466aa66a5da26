package fcm

import (
	"context"
	"errors"
	"net/http"

	"gasra-notifier/common/logger"

	"go.uber.org/zap"
)

// TokenSource 提供 bearer token
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Sender 发送单条消息
type Sender interface {
	Send(ctx context.Context, accessToken string, msg Message) (string, error)
}

// DeliveryResult 单个接收人的投递结果
type DeliveryResult struct {
	Token       string
	MessageName string
	StatusCode  int
	Err         error
}

// OK 是否投递成功
func (r DeliveryResult) OK() bool {
	return r.Err == nil
}

// Report 一次调用的投递结果汇总
type Report struct {
	Results []DeliveryResult
}

// Sent 成功数
func (r *Report) Sent() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed 失败数
func (r *Report) Failed() int {
	if r == nil {
		return 0
	}
	return len(r.Results) - r.Sent()
}

// NewMessage 构造推送消息
func NewMessage(token, title, body string, data map[string]string) Message {
	return Message{
		Token:        token,
		Notification: Notification{Title: title, Body: body},
		Data:         data,
	}
}

// Broadcast 对每个 token 构造同一内容的消息
func Broadcast(tokens []string, title, body string, data map[string]string) []Message {
	msgs := make([]Message, 0, len(tokens))
	for _, token := range tokens {
		msgs = append(msgs, NewMessage(token, title, body, data))
	}
	return msgs
}

// Dispatcher 逐个接收人顺序发送，并收集每个接收人的结果
type Dispatcher struct {
	sender Sender
	tokens TokenSource
	logger *zap.Logger
}

// NewDispatcher 创建投递器
func NewDispatcher(sender Sender, tokens TokenSource, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		tokens: tokens,
		logger: logger,
	}
}

// Dispatch 换取一次 access token 后顺序发送所有消息
// 单个接收人失败只记录在 Report 中，不中断其余发送；token 交换失败返回错误
func (d *Dispatcher) Dispatch(ctx context.Context, msgs []Message) (*Report, error) {
	report := &Report{Results: make([]DeliveryResult, 0, len(msgs))}
	if len(msgs) == 0 {
		return report, nil
	}

	accessToken, err := d.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	for _, msg := range msgs {
		result := DeliveryResult{Token: msg.Token}

		if err := ctx.Err(); err != nil {
			result.Err = err
			report.Results = append(report.Results, result)
			continue
		}

		name, err := d.sender.Send(ctx, accessToken, msg)
		if err != nil {
			result.Err = err
			var gwErr *GatewayError
			if errors.As(err, &gwErr) {
				result.StatusCode = gwErr.StatusCode
			}
		} else {
			result.MessageName = name
			result.StatusCode = http.StatusOK
		}
		report.Results = append(report.Results, result)
	}

	d.logger.Info("Dispatched notifications",
		zap.Int("total", len(report.Results)),
		zap.Int("sent", report.Sent()),
		zap.Int("failed", report.Failed()),
	)
	for _, res := range report.Results {
		if !res.OK() {
			d.logger.Warn("Notification delivery failed",
				zap.String("token", logger.MaskToken(res.Token)),
				zap.Int("status_code", res.StatusCode),
				zap.Error(res.Err),
			)
		}
	}

	return report, nil
}
