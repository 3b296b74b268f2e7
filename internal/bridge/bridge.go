package bridge

import (
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/queue"
)

// LoyaltyAwarder 积分发放桥接口，结算成功后触发。
type LoyaltyAwarder interface {
	AwardPoints(customerID, orderID uint, amount models.Money) error
}

// Notifier 通知桥接口。
type Notifier interface {
	Notify(event string, payload map[string]interface{}) error
}

// Hooks 结算后置钩子集合，任何钩子失败只记录日志，不影响订单与佣金结果。
type Hooks struct {
	Loyalty  LoyaltyAwarder
	Notifier Notifier
}

// FireLoyaltyAward 触发积分发放钩子
func (h *Hooks) FireLoyaltyAward(customerID, orderID uint, amount models.Money) {
	if h == nil || h.Loyalty == nil {
		return
	}
	if err := h.Loyalty.AwardPoints(customerID, orderID, amount); err != nil {
		logger.Warnw("bridge_loyalty_award_failed",
			"customer_id", customerID,
			"order_id", orderID,
			"error", err,
		)
	}
}

// FireNotify 触发通知钩子
func (h *Hooks) FireNotify(event string, payload map[string]interface{}) {
	if h == nil || h.Notifier == nil {
		return
	}
	if err := h.Notifier.Notify(event, payload); err != nil {
		logger.Warnw("bridge_notify_failed", "event", event, "error", err)
	}
}

// QueueLoyaltyAwarder 基于队列的积分发放桥实现
type QueueLoyaltyAwarder struct {
	client *queue.Client
}

// NewQueueLoyaltyAwarder 创建队列积分桥
func NewQueueLoyaltyAwarder(client *queue.Client) *QueueLoyaltyAwarder {
	return &QueueLoyaltyAwarder{client: client}
}

// AwardPoints 入队积分发放任务
func (a *QueueLoyaltyAwarder) AwardPoints(customerID, orderID uint, amount models.Money) error {
	return a.client.EnqueueLoyaltyAward(queue.LoyaltyAwardPayload{
		CustomerID: customerID,
		OrderID:    orderID,
		Amount:     amount.String(),
	})
}

// QueueNotifier 基于队列的通知桥实现
type QueueNotifier struct {
	client *queue.Client
}

// NewQueueNotifier 创建队列通知桥
func NewQueueNotifier(client *queue.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// Notify 入队通知分发任务
func (n *QueueNotifier) Notify(event string, payload map[string]interface{}) error {
	return n.client.EnqueueNotificationDispatch(queue.NotificationDispatchPayload{
		Event:   event,
		Payload: payload,
	})
}
