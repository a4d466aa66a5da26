package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"gasra-notifier/internal/models"
	"gasra-notifier/internal/service"

	"go.uber.org/zap"
)

const maxTriggerBodyBytes = 1 << 20

type triggerResponse struct {
	Message string `json:"message"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

// TriggerHandler 数据库 webhook 触发入口
type TriggerHandler struct {
	inspection service.Notifier[models.InspectionResult]
	report     service.Notifier[models.ProblemReport]
	repair     service.Notifier[models.MaintenanceRecord]
	logger     *zap.Logger
}

func NewTriggerHandler(
	inspection service.Notifier[models.InspectionResult],
	report service.Notifier[models.ProblemReport],
	repair service.Notifier[models.MaintenanceRecord],
	logger *zap.Logger,
) *TriggerHandler {
	return &TriggerHandler{
		inspection: inspection,
		report:     report,
		repair:     repair,
		logger:     logger,
	}
}

func (h *TriggerHandler) SendInspectionNotification(w http.ResponseWriter, r *http.Request) {
	serveTrigger(w, r, h.inspection, h.logger)
}

func (h *TriggerHandler) SendProblemNotification(w http.ResponseWriter, r *http.Request) {
	serveTrigger(w, r, h.report, h.logger)
}

func (h *TriggerHandler) SendRepairNotification(w http.ResponseWriter, r *http.Request) {
	serveTrigger(w, r, h.repair, h.logger)
}

// serveTrigger 解析信封 -> 调用 notifier -> 写响应
// 跳过返回纯文本 200，发送返回 JSON 200，任何错误返回 500 {"error": ...}
func serveTrigger[T any](w http.ResponseWriter, r *http.Request, n service.Notifier[T], logger *zap.Logger) {
	logger = logger.With(
		zap.String("request_id", service.RequestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to read request body: %w", err))
		return
	}
	if len(body) > maxTriggerBodyBytes {
		writeError(w, http.StatusInternalServerError, errors.New("request body too large"))
		return
	}

	record, err := models.DecodeRecord[T](body)
	if err != nil {
		logger.Warn("Invalid trigger envelope", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out, err := n.Notify(r.Context(), record)
	if err != nil {
		logger.Error("Notification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if out.Skipped {
		writeText(w, http.StatusOK, out.Message)
		return
	}
	writeJSON(w, http.StatusOK, triggerResponse{
		Message: out.Message,
		Sent:    out.Report.Sent(),
		Failed:  out.Report.Failed(),
	})
}
