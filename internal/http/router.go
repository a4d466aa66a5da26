package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// 触发入口路径（沿用 Supabase Functions 的路径约定，数据库 webhook 直接调用）
const (
	PathInspectionNotification = "/functions/v1/send-inspection-notification"
	PathProblemNotification    = "/functions/v1/send-notification"
	PathRepairNotification     = "/functions/v1/send-repair-notification"
	PathHealth                 = "/healthz"
)

type Router struct {
	mux    chi.Router
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	mux := chi.NewRouter()
	mux.Use(requestID)
	mux.Use(accessLog(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(cors)

	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	return &Router{
		mux:    mux,
		logger: logger,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterTriggerRoutes 注册三个数据库触发入口
func (r *Router) RegisterTriggerRoutes(h *TriggerHandler) {
	r.mux.Post(PathInspectionNotification, h.SendInspectionNotification)
	r.mux.Post(PathProblemNotification, h.SendProblemNotification)
	r.mux.Post(PathRepairNotification, h.SendRepairNotification)
}

// RegisterHealthRoutes 注册健康检查
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.mux.Get(PathHealth, h.Health)
}
