package service

import (
	"strings"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
)

// NotificationService 站内通知分发服务。
// 当前实现落结构化日志，事件协议保持稳定以便后续接入 webhook 或 IM 推送。
type NotificationService struct{}

// NewNotificationService 创建通知服务
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Dispatch 分发一条业务事件通知
func (s *NotificationService) Dispatch(event string, payload map[string]interface{}) error {
	normalized := strings.ToLower(strings.TrimSpace(event))
	if normalized == "" {
		return nil
	}

	fields := make([]interface{}, 0, len(payload)*2+2)
	fields = append(fields, "event", normalized)
	for key, value := range payload {
		fields = append(fields, key, value)
	}

	switch normalized {
	case constants.NotificationEventOrderSettled,
		constants.NotificationEventCommissionEarned,
		constants.NotificationEventCommissionReversed,
		constants.NotificationEventLotSoldOut:
		logger.Infow("notification_dispatched", fields...)
	default:
		logger.Warnw("notification_unknown_event", fields...)
	}
	return nil
}
