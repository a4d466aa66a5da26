package fcm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gasra-notifier/internal/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// MessagingScope 推送网关需要的 OAuth scope
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// NormalizePrivateKey 把环境变量里字面量的 \n 还原为真实换行
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// CredentialBroker 用服务账号换取短期 bearer token
// 每次调用都重新交换，不做跨调用缓存
type CredentialBroker struct {
	conf       *jwt.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCredentialBroker 创建凭证交换器
func NewCredentialBroker(cfg config.FirebaseConfig, logger *zap.Logger) *CredentialBroker {
	conf := &jwt.Config{
		Email:      cfg.ClientEmail,
		PrivateKey: []byte(NormalizePrivateKey(cfg.PrivateKey)),
		Scopes:     []string{MessagingScope},
		TokenURL:   cfg.TokenURL,
	}

	var httpClient *http.Client
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &CredentialBroker{
		conf:       conf,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AccessToken 交换一个新的 access token
func (b *CredentialBroker) AccessToken(ctx context.Context) (string, error) {
	if b.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}

	token, err := b.conf.TokenSource(ctx).Token()
	if err != nil {
		b.logger.Error("Credential exchange failed",
			zap.String("client_email", b.conf.Email),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to exchange service account credentials: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("failed to exchange service account credentials: empty access token")
	}

	b.logger.Debug("Exchanged access token",
		zap.Time("expiry", token.Expiry),
	)

	return token.AccessToken, nil
}
