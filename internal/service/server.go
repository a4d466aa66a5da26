package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server 触发入口 HTTP 服务
// 推送是逐条串行发送的，WriteTimeout 需覆盖整次调用（token 交换 + N 次发送）
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}
	return &Server{httpServer: s, logger: logger}
}

// Start 监听 Addr 并阻塞，正常关闭时返回 nil
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在已有 listener 上提供服务
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting gasra-notifier HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 等待进行中的通知请求完成后关闭
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping gasra-notifier HTTP server")
	return s.httpServer.Shutdown(ctx)
}
