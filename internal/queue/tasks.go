package queue

import (
	"encoding/json"

	"github.com/harvestlink/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskLoyaltyAward 订单积分发放任务
	TaskLoyaltyAward = constants.TaskLoyaltyAward
	// TaskNotificationDispatch 通知分发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskOrderSettledEmail 订单结算邮件任务
	TaskOrderSettledEmail = constants.TaskOrderSettledEmail
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
)

// LoyaltyAwardPayload 积分发放任务载荷
type LoyaltyAwardPayload struct {
	CustomerID uint   `json:"customer_id"`
	OrderID    uint   `json:"order_id"`
	Amount     string `json:"amount"`
}

// NotificationDispatchPayload 通知分发任务载荷
type NotificationDispatchPayload struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

// OrderSettledEmailPayload 订单结算邮件任务载荷
type OrderSettledEmailPayload struct {
	OrderID uint `json:"order_id"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewLoyaltyAwardTask 创建积分发放任务
func NewLoyaltyAwardTask(payload LoyaltyAwardPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoyaltyAward, body), nil
}

// NewNotificationDispatchTask 创建通知分发任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewOrderSettledEmailTask 创建订单结算邮件任务
func NewOrderSettledEmailTask(payload OrderSettledEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderSettledEmail, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}
