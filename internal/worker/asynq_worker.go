package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/provider"
	"github.com/harvestlink/internal/queue"
	"github.com/harvestlink/internal/service"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLoyaltyAward, c.handleLoyaltyAward)
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
	mux.HandleFunc(queue.TaskOrderSettledEmail, c.handleOrderSettledEmail)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

func (c *Consumer) handleLoyaltyAward(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_loyalty_award_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LoyaltyAwardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_loyalty_award_unmarshal_failed", "error", err)
		return err
	}
	if payload.CustomerID == 0 || payload.OrderID == 0 {
		logger.Debugw("worker_loyalty_award_skip_invalid_payload", "customer_id", payload.CustomerID, "order_id", payload.OrderID)
		return nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil {
		logger.Warnw("worker_loyalty_award_invalid_amount", "order_id", payload.OrderID, "amount", payload.Amount, "error", err)
		return nil
	}
	if c.LoyaltyService == nil {
		logger.Warnw("worker_loyalty_award_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.LoyaltyService.AwardPoints(payload.CustomerID, payload.OrderID, models.NewMoneyFromDecimal(amount)); err != nil {
		logger.Warnw("worker_loyalty_award_failed", "customer_id", payload.CustomerID, "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.Event) == "" {
		logger.Debugw("worker_notification_dispatch_skip_empty_event")
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "event", payload.Event)
		return nil
	}
	return c.NotificationService.Dispatch(payload.Event, payload.Payload)
}

func (c *Consumer) handleOrderSettledEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_settled_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderSettledEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_settled_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_settled_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_settled_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_settled_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	customer, err := c.CustomerRepo.GetByID(order.CustomerID)
	if err != nil {
		logger.Warnw("worker_order_settled_email_fetch_customer_failed", "order_id", order.ID, "customer_id", order.CustomerID, "error", err)
		return err
	}
	if customer == nil || strings.TrimSpace(customer.Email) == "" {
		logger.Debugw("worker_order_settled_email_skip_empty_receiver", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_settled_email_skip_email_service_nil", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}

	items := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, fmt.Sprintf("%s x%d %s", item.Title, item.Quantity, item.TotalPrice.String()))
	}
	input := service.OrderSettledEmailInput{
		OrderNo:  order.OrderNo,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Items:    items,
	}
	if err := c.EmailService.SendOrderSettledEmail(customer.Email, input); err != nil {
		if errors.Is(err, service.ErrEmailServiceDisabled) || errors.Is(err, service.ErrEmailServiceNotConfigured) {
			logger.Debugw("worker_order_settled_email_skip_disabled", "order_id", order.ID)
			return nil
		}
		logger.Warnw("worker_order_settled_email_send_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"receiver_email", customer.Email,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.SettlementService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.SettlementService.CancelExpiredOrder(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}
