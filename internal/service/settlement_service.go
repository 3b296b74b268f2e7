package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/harvestlink/internal/bridge"
	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/queue"
	"github.com/harvestlink/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementService 订单结算服务，串联库存扣减、佣金入账与后置钩子。
type SettlementService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	lotRepo      repository.ProductLotRepository
	inventory    *InventoryService
	referralSvc  *ReferralService
	ledger       *CommissionLedger
	settingSvc   *SettingService
	queueClient  *queue.Client
	hooks        *bridge.Hooks
}

// NewSettlementService 创建订单结算服务
func NewSettlementService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	lotRepo repository.ProductLotRepository,
	inventory *InventoryService,
	referralSvc *ReferralService,
	ledger *CommissionLedger,
	settingSvc *SettingService,
	queueClient *queue.Client,
	hooks *bridge.Hooks,
) *SettlementService {
	return &SettlementService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		lotRepo:      lotRepo,
		inventory:    inventory,
		referralSvc:  referralSvc,
		ledger:       ledger,
		settingSvc:   settingSvc,
		queueClient:  queueClient,
		hooks:        hooks,
	}
}

// CheckoutItemInput 下单条目
type CheckoutItemInput struct {
	LotID    uint
	Quantity int
}

// CheckoutInput 下单输入
type CheckoutInput struct {
	CustomerID   uint
	Items        []CheckoutItemInput
	ReferralCode string
	Remark       string
	ClientIP     string
}

// PlaceOrder 创建订单：先全量校验批次，再在同一事务内条件扣减并落单。
// 任一批次校验或扣减失败时整单失败，不产生任何扣减。
func (s *SettlementService) PlaceOrder(input CheckoutInput) (*models.Order, error) {
	customer, err := s.authorizeCustomer(input.CustomerID)
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, ErrInvalidOrderItem
	}

	reservations, items, totalAmount, err := s.buildOrderLines(input.Items)
	if err != nil {
		return nil, err
	}

	// 扣减前全量校验，避免部分扣减后才发现失败。
	if _, err := s.inventory.ValidateLots(reservations); err != nil {
		return nil, err
	}

	expireMinutes, err := s.settingSvc.GetOrderPaymentExpireMinutes(30)
	if err != nil {
		logger.Warnw("order_expire_setting_failed", "error", err)
		expireMinutes = 30
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireMinutes) * time.Minute)

	order := &models.Order{
		OrderNo:          generateOrderNo(),
		CustomerID:       customer.ID,
		Status:           constants.OrderStatusPendingPayment,
		PaymentStatus:    constants.PaymentStatusUnpaid,
		Currency:         constants.SiteCurrencyDefault,
		TotalAmount:      models.NewMoneyFromDecimal(totalAmount),
		ReferralCodeUsed: input.ReferralCode,
		Remark:           input.Remark,
		ClientIP:         input.ClientIP,
		ExpiresAt:        &expiresAt,
	}

	var soldOutLots []uint
	if err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		for _, item := range reservations {
			soldOut, err := s.inventory.ReserveTx(tx, item)
			if err != nil {
				return err
			}
			if soldOut {
				soldOutLots = append(soldOutLots, item.LotID)
			}
		}
		return s.orderRepo.WithTx(tx).Create(order, items)
	}); err != nil {
		return nil, err
	}

	s.updateProductAggregates(items)
	for _, lotID := range soldOutLots {
		s.hooks.FireNotify(constants.NotificationEventLotSoldOut, map[string]interface{}{
			"lot_id": lotID,
		})
	}

	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, time.Until(expiresAt)); err != nil {
		logger.Warnw("order_timeout_enqueue_failed", "order_id", order.ID, "error", err)
	}

	order.Items = items
	return order, nil
}

// SettleOrder 下单并立即完成支付结算，是支付即捕获场景的完整管线。
func (s *SettlementService) SettleOrder(input CheckoutInput) (*models.Order, error) {
	order, err := s.PlaceOrder(input)
	if err != nil {
		return nil, err
	}
	if err := s.MarkOrderPaid(order.ID); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(order.ID)
}

// MarkOrderPaid 标记订单支付成功并触发佣金结算与后置钩子。
// 佣金失败不回滚订单，留待补偿任务重试。
func (s *SettlementService) MarkOrderPaid(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	// 条件更新保证并发触发下仅有一次支付流转。
	affected, err := s.orderRepo.MarkPaid(order.ID, time.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderStatusInvalid
	}

	if err := s.ProcessOrderCommission(order.ID); err != nil {
		logger.Errorw("order_commission_failed", "order_id", order.ID, "error", err)
	}

	s.hooks.FireLoyaltyAward(order.CustomerID, order.ID, order.TotalAmount)
	s.hooks.FireNotify(constants.NotificationEventOrderSettled, map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
	})
	if err := s.queueClient.EnqueueOrderSettledEmail(queue.OrderSettledEmailPayload{OrderID: order.ID}); err != nil {
		logger.Warnw("order_settled_email_enqueue_failed", "order_id", order.ID, "error", err)
	}
	return nil
}

// ProcessOrderCommission 结算订单佣金，以结算标记保证每单至多入账一次。
// 推荐计划停用或无推荐人时直接置位标记；无匹配档位时保留标记为假供补偿任务重试。
func (s *SettlementService) ProcessOrderCommission(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.ReferralCommissionCalculated {
		return nil
	}
	if order.PaymentStatus != constants.PaymentStatusPaid {
		return ErrOrderStatusInvalid
	}

	setting, err := s.settingSvc.GetReferralSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		_, err := s.orderRepo.MarkCommissionCalculated(order.ID, 0)
		return err
	}

	customer, err := s.customerRepo.GetByID(order.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrCustomerNotFound
	}

	member, err := s.referralSvc.ResolveReferrer(customer, order.ReferralCodeUsed)
	if err != nil {
		return err
	}
	if member == nil {
		_, err := s.orderRepo.MarkCommissionCalculated(order.ID, 0)
		return err
	}

	eventType := constants.ReferralEventTypeSubsequentPurchase
	firstOrder := !customer.ReferralLocked
	if firstOrder {
		eventType = constants.ReferralEventTypeFirstPurchase
	}

	event, err := s.ledger.ApplyEarn(ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  customer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   eventType,
		FirstOrder:  firstOrder,
	})
	if err != nil {
		if errors.Is(err, ErrCommissionDuplicate) {
			logger.Infow("order_commission_already_recorded", "order_id", order.ID)
			return nil
		}
		return err
	}

	s.hooks.FireNotify(constants.NotificationEventCommissionEarned, map[string]interface{}{
		"order_id":  order.ID,
		"member_id": member.ID,
		"amount":    event.CommissionAmount.String(),
	})
	return nil
}

// CancelExpiredOrder 取消超时未支付订单并回补批次，非待支付状态为无害空操作。
func (s *SettlementService) CancelExpiredOrder(orderID uint) error {
	return s.cancelPending(orderID, true)
}

// CancelOrder 客户主动取消待支付订单。
func (s *SettlementService) CancelOrder(orderID, customerID uint) error {
	order, err := s.orderRepo.GetByIDAndCustomer(orderID, customerID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	return s.cancelPending(orderID, false)
}

func (s *SettlementService) cancelPending(orderID uint, expiredOnly bool) error {
	return s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPendingPayment {
			if expiredOnly {
				return nil
			}
			return ErrOrderStatusInvalid
		}
		if expiredOnly && (order.ExpiresAt == nil || order.ExpiresAt.After(time.Now())) {
			return nil
		}

		items, err := s.loadOrderItems(tx, orderID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.LotID == nil {
				continue
			}
			if err := s.inventory.ReleaseTx(tx, LotReservation{
				LotID:    *item.LotID,
				Quantity: item.Quantity,
				Amount:   item.TotalPrice,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		return repo.UpdateStatus(orderID, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
		})
	})
}

// HandleOrderRefunded 订单退款：回补批次并冲销佣金，冲销对未入账订单是无害空操作。
// 退款触发可能重复到达：已退款订单跳过回补与状态流转，仅重走幂等冲销。
func (s *SettlementService) HandleOrderRefunded(orderID uint, reason string) error {
	if err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.PaymentStatus == constants.PaymentStatusRefunded {
			return nil
		}
		if order.PaymentStatus != constants.PaymentStatusPaid {
			return ErrOrderStatusInvalid
		}

		items, err := s.loadOrderItems(tx, orderID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.LotID == nil {
				continue
			}
			if err := s.inventory.ReleaseTx(tx, LotReservation{
				LotID:    *item.LotID,
				Quantity: item.Quantity,
				Amount:   item.TotalPrice,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		return repo.UpdateStatus(orderID, constants.OrderStatusRefunded, map[string]interface{}{
			"payment_status": constants.PaymentStatusRefunded,
			"refunded_at":    now,
		})
	}); err != nil {
		return err
	}

	result, err := s.ledger.ReverseEarn(orderID, reason)
	if err != nil {
		return err
	}
	if result.Reversed {
		s.hooks.FireNotify(constants.NotificationEventCommissionReversed, map[string]interface{}{
			"order_id":  orderID,
			"member_id": result.Event.ReferralMemberID,
			"amount":    result.Event.CommissionAmount.String(),
		})
	}
	return nil
}

// RetryPendingCommissions 补偿已支付但佣金未结算的订单（结算标记为假）。
func (s *SettlementService) RetryPendingCommissions(limit int) {
	if limit <= 0 {
		limit = 50
	}
	orders, _, err := s.orderRepo.ListAdmin(repository.OrderListFilter{
		Page:          1,
		PageSize:      limit,
		PaymentStatus: constants.PaymentStatusPaid,
	})
	if err != nil {
		logger.Warnw("commission_retry_list_failed", "error", err)
		return
	}
	for _, order := range orders {
		if order.ReferralCommissionCalculated {
			continue
		}
		if err := s.ProcessOrderCommission(order.ID); err != nil {
			logger.Warnw("commission_retry_failed", "order_id", order.ID, "error", err)
		}
	}
}

func (s *SettlementService) authorizeCustomer(customerID uint) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	if customer.Status != constants.CustomerStatusActive {
		return nil, ErrCustomerDisabled
	}
	return customer, nil
}

// buildOrderLines 组装扣减请求与订单项快照，金额按商品单价计算。
func (s *SettlementService) buildOrderLines(items []CheckoutItemInput) ([]LotReservation, []models.OrderItem, decimal.Decimal, error) {
	reservations := make([]LotReservation, 0, len(items))
	orderItems := make([]models.OrderItem, 0, len(items))
	total := decimal.Zero

	seen := make(map[uint]struct{}, len(items))
	for _, item := range items {
		if item.LotID == 0 || item.Quantity <= 0 {
			return nil, nil, decimal.Zero, ErrInvalidOrderItem
		}
		if _, dup := seen[item.LotID]; dup {
			return nil, nil, decimal.Zero, ErrInvalidOrderItem
		}
		seen[item.LotID] = struct{}{}

		lot, err := s.lotRepo.GetByID(item.LotID)
		if err != nil {
			return nil, nil, decimal.Zero, err
		}
		if lot == nil {
			return nil, nil, decimal.Zero, fmt.Errorf("%w: lot %d", ErrLotNotFound, item.LotID)
		}
		product, err := s.productRepo.GetByID(lot.ProductID)
		if err != nil {
			return nil, nil, decimal.Zero, err
		}
		if product == nil || !product.IsActive {
			return nil, nil, decimal.Zero, ErrProductNotAvailable
		}

		lineTotal := product.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(lineTotal)

		lotID := item.LotID
		reservations = append(reservations, LotReservation{
			LotID:    lotID,
			Quantity: item.Quantity,
			Amount:   models.NewMoneyFromDecimal(lineTotal),
		})
		orderItems = append(orderItems, models.OrderItem{
			ProductID:  product.ID,
			LotID:      &lotID,
			Title:      product.Title,
			Unit:       product.Unit,
			UnitPrice:  product.UnitPrice,
			Quantity:   item.Quantity,
			TotalPrice: models.NewMoneyFromDecimal(lineTotal),
		})
	}
	return reservations, orderItems, total, nil
}

// updateProductAggregates 尽力维护商品累计销售额，失败仅记录日志。
func (s *SettlementService) updateProductAggregates(items []models.OrderItem) {
	for _, item := range items {
		if _, err := s.productRepo.AddRevenue(item.ProductID, item.TotalPrice); err != nil {
			logger.Warnw("product_revenue_aggregate_failed", "product_id", item.ProductID, "error", err)
		}
	}
}

func (s *SettlementService) loadOrderItems(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// generateOrderNo 生成订单号：HL + 时间戳 + 6 位随机数字
func generateOrderNo() string {
	return fmt.Sprintf("HL%s%s", time.Now().Format("20060102150405"), randNumeric(6))
}

// randNumeric 生成指定长度的随机数字串
func randNumeric(length int) string {
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			result[i] = '0'
			continue
		}
		result[i] = byte('0' + n.Int64())
	}
	return string(result)
}
