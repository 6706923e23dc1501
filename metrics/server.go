package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🌐 /metrics HTTP 端点
// =============================================================================

// Server 暴露 Prometheus 抓取端点。
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer 在给定地址上准备 /metrics 端点（默认 registry）。
func NewServer(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With(zap.String("component", "metrics_server")),
	}
}

// Start 在后台启动监听。监听失败只记 error，不影响会议。
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics endpoint listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
}

// Shutdown 优雅关闭端点。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
