package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/queue"
	"github.com/harvestlink/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSettlementTest(t *testing.T) (*SettlementService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Farm{},
		&models.PreorderProduct{},
		&models.ProductLot{},
		&models.Customer{},
		&models.Order{},
		&models.OrderItem{},
		&models.ReferralMember{},
		&models.ReferralEvent{},
		&models.CommissionLog{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	orderRepo := repository.NewOrderRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	lotRepo := repository.NewProductLotRepository(db)
	referralRepo := repository.NewReferralRepository(db)

	settingSvc := NewSettingService(repository.NewSettingRepository(db))
	if _, err := settingSvc.UpdateReferralSetting(ReferralSetting{
		Enabled: true,
		Tiers: []CommissionTierBand{
			{MinRevenue: 0, MaxRevenue: 5000, RatePercent: 2},
			{MinRevenue: 5000, MaxRevenue: 0, RatePercent: 3},
		},
	}); err != nil {
		t.Fatalf("seed referral setting failed: %v", err)
	}

	inventory := NewInventoryService(lotRepo, productRepo)
	referralSvc := NewReferralService(referralRepo, customerRepo)
	ledger := NewCommissionLedger(referralRepo, orderRepo, customerRepo, settingSvc)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}

	svc := NewSettlementService(
		orderRepo, customerRepo, productRepo, lotRepo,
		inventory, referralSvc, ledger, settingSvc,
		queueClient, nil,
	)
	return svc, db
}

func createSettlementProduct(t *testing.T, db *gorm.DB, price decimal.Decimal) *models.PreorderProduct {
	t.Helper()
	product := &models.PreorderProduct{
		FarmID:    1,
		Slug:      fmt.Sprintf("product-%d", time.Now().UnixNano()),
		Title:     "高原有机蓝莓",
		Unit:      "box",
		UnitPrice: models.NewMoneyFromDecimal(price),
		IsActive:  true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createSettlementLot(t *testing.T, db *gorm.DB, productID uint, quantity int) *models.ProductLot {
	t.Helper()
	lot := &models.ProductLot{
		ProductID:         productID,
		LotCode:           fmt.Sprintf("LOT-%d", time.Now().UnixNano()),
		TotalYield:        quantity,
		AvailableQuantity: quantity,
		Status:            constants.LotStatusActive,
	}
	if err := db.Create(lot).Error; err != nil {
		t.Fatalf("create lot failed: %v", err)
	}
	return lot
}

func createSettlementCustomer(t *testing.T, db *gorm.DB, email string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Email:        email,
		PasswordHash: "hash",
		Status:       constants.CustomerStatusActive,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func createSettlementMember(t *testing.T, db *gorm.DB, email, code string) *models.ReferralMember {
	t.Helper()
	seeder := createSettlementCustomer(t, db, email)
	member := &models.ReferralMember{
		CustomerID:   seeder.ID,
		ReferralCode: code,
		UserEmail:    seeder.Email,
		Status:       constants.ReferralMemberStatusActive,
		RevenueMonth: time.Now().Format("2006-01"),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member failed: %v", err)
	}
	return member
}

func TestPlaceOrderCreatesOrderAndDeducts(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromFloat(68))
	lot := createSettlementLot(t, db, product.ID, 10)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("order status want pending_payment got %s", order.Status)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromInt(136)) {
		t.Fatalf("total amount want 136 got %s", order.TotalAmount)
	}
	if order.ExpiresAt == nil || !order.ExpiresAt.After(time.Now()) {
		t.Fatalf("order should carry a future payment deadline")
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("order items mismatch: %+v", order.Items)
	}

	var storedLot models.ProductLot
	if err := db.First(&storedLot, lot.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedLot.AvailableQuantity != 8 || storedLot.SoldQuantity != 2 {
		t.Fatalf("lot quantities mismatch: available %d sold %d", storedLot.AvailableQuantity, storedLot.SoldQuantity)
	}

	var storedProduct models.PreorderProduct
	if err := db.First(&storedProduct, product.ID).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	if !storedProduct.TotalRevenue.Decimal.Equal(decimal.NewFromInt(136)) {
		t.Fatalf("product revenue want 136 got %s", storedProduct.TotalRevenue)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	if _, err := svc.PlaceOrder(CheckoutInput{CustomerID: buyer.ID}); !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("empty items want ErrInvalidOrderItem got %v", err)
	}
	if _, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items: []CheckoutItemInput{
			{LotID: lot.ID, Quantity: 1},
			{LotID: lot.ID, Quantity: 2},
		},
	}); !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("duplicate lot want ErrInvalidOrderItem got %v", err)
	}

	disabled := createSettlementCustomer(t, db, "disabled@example.com")
	if err := db.Model(&models.Customer{}).Where("id = ?", disabled.ID).
		Update("status", constants.CustomerStatusDisabled).Error; err != nil {
		t.Fatalf("disable customer failed: %v", err)
	}
	if _, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: disabled.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	}); !errors.Is(err, ErrCustomerDisabled) {
		t.Fatalf("disabled customer want ErrCustomerDisabled got %v", err)
	}
}

func TestPlaceOrderOutOfStockNoPartialDeduction(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	plenty := createSettlementLot(t, db, product.ID, 10)
	scarce := createSettlementLot(t, db, product.ID, 1)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	_, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items: []CheckoutItemInput{
			{LotID: plenty.ID, Quantity: 2},
			{LotID: scarce.ID, Quantity: 5},
		},
	})
	if !errors.Is(err, ErrLotOutOfStock) {
		t.Fatalf("want ErrLotOutOfStock got %v", err)
	}

	var storedPlenty models.ProductLot
	if err := db.First(&storedPlenty, plenty.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedPlenty.AvailableQuantity != 10 || storedPlenty.SoldQuantity != 0 {
		t.Fatalf("failed order must not deduct any lot: available %d sold %d",
			storedPlenty.AvailableQuantity, storedPlenty.SoldQuantity)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("failed checkout must not create order, count %d", orderCount)
	}
}

func TestMarkOrderPaidSettlesCommission(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromFloat(68))
	lot := createSettlementLot(t, db, product.ID, 10)
	member := createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 2}},
		ReferralCode: "seed0001",
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if storedOrder.Status != constants.OrderStatusPaid || storedOrder.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("order not paid: status %s payment %s", storedOrder.Status, storedOrder.PaymentStatus)
	}
	if !storedOrder.ReferralCommissionCalculated {
		t.Fatalf("commission latch should be set")
	}
	if storedOrder.ReferrerID == nil || *storedOrder.ReferrerID != member.ID {
		t.Fatalf("order referrer not recorded")
	}

	var event models.ReferralEvent
	if err := db.Where("order_id = ?", order.ID).First(&event).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.EventType != constants.ReferralEventTypeFirstPurchase {
		t.Fatalf("event type want first_purchase got %s", event.EventType)
	}
	// 136 元落在 [0,5000) 档，2% 佣金。
	if !event.CommissionAmount.Decimal.Equal(decimal.NewFromFloat(2.72)) {
		t.Fatalf("commission amount want 2.72 got %s", event.CommissionAmount)
	}

	var storedBuyer models.Customer
	if err := db.First(&storedBuyer, buyer.ID).Error; err != nil {
		t.Fatalf("load buyer failed: %v", err)
	}
	if !storedBuyer.ReferralLocked {
		t.Fatalf("first paid order should lock attribution")
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.NewFromFloat(2.72)) {
		t.Fatalf("member balance want 2.72 got %s", storedMember.UnpaidCommission)
	}
}

func TestMarkOrderPaidSubsequentPurchase(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(100))
	lot := createSettlementLot(t, db, product.ID, 10)
	createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	first, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
		ReferralCode: "SEED0001",
	})
	if err != nil {
		t.Fatalf("place first order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(first.ID); err != nil {
		t.Fatalf("pay first order failed: %v", err)
	}

	// 复购不带推荐码也应归属既有推荐人。
	second, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place second order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(second.ID); err != nil {
		t.Fatalf("pay second order failed: %v", err)
	}

	var event models.ReferralEvent
	if err := db.Where("order_id = ?", second.ID).First(&event).Error; err != nil {
		t.Fatalf("load second event failed: %v", err)
	}
	if event.EventType != constants.ReferralEventTypeSubsequentPurchase {
		t.Fatalf("event type want subsequent_purchase got %s", event.EventType)
	}
}

func TestMarkOrderPaidNoReferrer(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(50))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !storedOrder.ReferralCommissionCalculated {
		t.Fatalf("no-referrer order should still set latch")
	}
	if storedOrder.ReferrerID != nil {
		t.Fatalf("no-referrer order must not record referrer")
	}

	var eventCount int64
	if err := db.Model(&models.ReferralEvent{}).Where("order_id = ?", order.ID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 0 {
		t.Fatalf("no-referrer order must not create event, count %d", eventCount)
	}
}

func TestProcessOrderCommissionIdempotent(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(100))
	lot := createSettlementLot(t, db, product.ID, 5)
	createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
		ReferralCode: "SEED0001",
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if err := svc.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("repeat settlement should be a no-op, got %v", err)
	}

	var eventCount int64
	if err := db.Model(&models.ReferralEvent{}).Where("order_id = ?", order.ID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("event count want 1 got %d", eventCount)
	}
}

func TestMarkOrderPaidReferralDisabled(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(100))
	lot := createSettlementLot(t, db, product.ID, 5)
	createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	settingSvc := NewSettingService(repository.NewSettingRepository(db))
	if _, err := settingSvc.UpdateReferralSetting(ReferralSetting{
		Enabled: false,
		Tiers: []CommissionTierBand{
			{MinRevenue: 0, MaxRevenue: 5000, RatePercent: 2},
			{MinRevenue: 5000, MaxRevenue: 0, RatePercent: 3},
		},
	}); err != nil {
		t.Fatalf("disable referral setting failed: %v", err)
	}

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
		ReferralCode: "SEED0001",
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	// 推荐计划停用时带码订单同无推荐人处理：置位标记、不入账、不归因。
	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !storedOrder.ReferralCommissionCalculated {
		t.Fatalf("disabled program should still set latch")
	}
	if storedOrder.ReferrerID != nil {
		t.Fatalf("disabled program must not record referrer")
	}

	var eventCount int64
	if err := db.Model(&models.ReferralEvent{}).Where("order_id = ?", order.ID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 0 {
		t.Fatalf("disabled program must not create event, count %d", eventCount)
	}

	var storedBuyer models.Customer
	if err := db.First(&storedBuyer, buyer.ID).Error; err != nil {
		t.Fatalf("load buyer failed: %v", err)
	}
	if storedBuyer.ReferrerID != nil || storedBuyer.ReferralLocked {
		t.Fatalf("disabled program must not attribute customer: %+v", storedBuyer)
	}
}

func TestMarkOrderPaidOnlyOnce(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("second payment trigger want ErrOrderStatusInvalid got %v", err)
	}

	// 条件更新兜底：绕过前置读检查直接重复流转也不生效。
	affected, err := repository.NewOrderRepository(db).MarkPaid(order.ID, time.Now())
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("paid order repeat transition want 0 affected got %d", affected)
	}
}

func TestMarkOrderPaidRequiresPending(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.CancelOrder(order.ID, buyer.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("paying canceled order want ErrOrderStatusInvalid got %v", err)
	}
	if err := svc.MarkOrderPaid(999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("paying missing order want ErrOrderNotFound got %v", err)
	}
}

func TestCancelOrderRestoresInventory(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.CancelOrder(order.ID, buyer.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if storedOrder.Status != constants.OrderStatusCanceled {
		t.Fatalf("order status want canceled got %s", storedOrder.Status)
	}
	if storedOrder.CanceledAt == nil {
		t.Fatalf("canceled_at should be set")
	}

	var storedLot models.ProductLot
	if err := db.First(&storedLot, lot.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedLot.AvailableQuantity != 5 || storedLot.SoldQuantity != 0 {
		t.Fatalf("cancel should restore inventory: available %d sold %d",
			storedLot.AvailableQuantity, storedLot.SoldQuantity)
	}

	if err := svc.CancelOrder(order.ID, buyer.ID); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("second cancel want ErrOrderStatusInvalid got %v", err)
	}
	if err := svc.CancelOrder(order.ID, 999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("cancel by other customer want ErrOrderNotFound got %v", err)
	}
}

func TestCancelExpiredOrderOnlyAfterDeadline(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	// 未到期的订单保持待支付。
	if err := svc.CancelExpiredOrder(order.ID); err != nil {
		t.Fatalf("cancel unexpired failed: %v", err)
	}
	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("unexpired order should stay pending, got %s", stored.Status)
	}

	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate expiry failed: %v", err)
	}
	if err := svc.CancelExpiredOrder(order.ID); err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusCanceled {
		t.Fatalf("expired order should cancel, got %s", stored.Status)
	}
}

func TestHandleOrderRefundedReversesCommission(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(100))
	lot := createSettlementLot(t, db, product.ID, 5)
	member := createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 2}},
		ReferralCode: "SEED0001",
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	if err := svc.HandleOrderRefunded(order.ID, "质量问题退款"); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if storedOrder.Status != constants.OrderStatusRefunded || storedOrder.PaymentStatus != constants.PaymentStatusRefunded {
		t.Fatalf("order not refunded: status %s payment %s", storedOrder.Status, storedOrder.PaymentStatus)
	}

	var storedLot models.ProductLot
	if err := db.First(&storedLot, lot.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedLot.AvailableQuantity != 5 || storedLot.SoldQuantity != 0 {
		t.Fatalf("refund should restore inventory: available %d sold %d",
			storedLot.AvailableQuantity, storedLot.SoldQuantity)
	}

	var event models.ReferralEvent
	if err := db.Where("order_id = ?", order.ID).First(&event).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.Status != constants.ReferralEventStatusReversed {
		t.Fatalf("event status want reversed got %s", event.Status)
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("member balance want 0 got %s", storedMember.UnpaidCommission)
	}
}

func TestHandleOrderRefundedDoubleTrigger(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(100))
	lot := createSettlementLot(t, db, product.ID, 5)
	member := createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 2}},
		ReferralCode: "SEED0001",
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if err := svc.HandleOrderRefunded(order.ID, "质量问题退款"); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	// 退款事件重复投递时第二次触发必须是无害空操作。
	if err := svc.HandleOrderRefunded(order.ID, "重复退款触发"); err != nil {
		t.Fatalf("second refund trigger should be a no-op, got %v", err)
	}

	var storedLot models.ProductLot
	if err := db.First(&storedLot, lot.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedLot.AvailableQuantity != 5 || storedLot.SoldQuantity != 0 {
		t.Fatalf("second trigger must not release inventory again: available %d sold %d",
			storedLot.AvailableQuantity, storedLot.SoldQuantity)
	}

	var reversedLogs int64
	if err := db.Model(&models.CommissionLog{}).
		Where("change_type = ?", constants.CommissionChangeReversed).Count(&reversedLogs).Error; err != nil {
		t.Fatalf("count logs failed: %v", err)
	}
	if reversedLogs != 1 {
		t.Fatalf("reversed log count want 1 got %d", reversedLogs)
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("member balance want 0 got %s", storedMember.UnpaidCommission)
	}
}

func TestHandleOrderRefundedCompletesSkippedReversal(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(100))
	lot := createSettlementLot(t, db, product.ID, 5)
	member := createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID:   buyer.ID,
		Items:        []CheckoutItemInput{{LotID: lot.ID, Quantity: 2}},
		ReferralCode: "SEED0001",
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.MarkOrderPaid(order.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	// 订单已落为退款态但冲销未执行（进程在两步之间中断），重试必须补齐冲销。
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":         constants.OrderStatusRefunded,
		"payment_status": constants.PaymentStatusRefunded,
	}).Error; err != nil {
		t.Fatalf("mark order refunded failed: %v", err)
	}

	if err := svc.HandleOrderRefunded(order.ID, "退款补偿重试"); err != nil {
		t.Fatalf("retry after skipped reversal failed: %v", err)
	}

	var event models.ReferralEvent
	if err := db.Where("order_id = ?", order.ID).First(&event).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.Status != constants.ReferralEventStatusReversed {
		t.Fatalf("event status want reversed got %s", event.Status)
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("member balance want 0 got %s", storedMember.UnpaidCommission)
	}

	// 重试路径不重复回补库存。
	var storedLot models.ProductLot
	if err := db.First(&storedLot, lot.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedLot.AvailableQuantity != 3 || storedLot.SoldQuantity != 2 {
		t.Fatalf("retry must not touch inventory: available %d sold %d",
			storedLot.AvailableQuantity, storedLot.SoldQuantity)
	}
}

func TestHandleOrderRefundedRequiresPaid(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromInt(10))
	lot := createSettlementLot(t, db, product.ID, 5)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.PlaceOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if err := svc.HandleOrderRefunded(order.ID, "reason"); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("refund of unpaid order want ErrOrderStatusInvalid got %v", err)
	}
	if err := svc.HandleOrderRefunded(999, "reason"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("refund of missing order want ErrOrderNotFound got %v", err)
	}
}

func TestRetryPendingCommissions(t *testing.T) {
	svc, db := setupSettlementTest(t)
	member := createSettlementMember(t, db, "seeder@example.com", "SEED0001")
	referrerID := member.ID
	buyer := &models.Customer{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Status:       constants.CustomerStatusActive,
		ReferrerID:   &referrerID,
	}
	if err := db.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer failed: %v", err)
	}

	// 已支付但佣金结算标记未置位的订单，补偿任务应补结。
	now := time.Now()
	order := &models.Order{
		OrderNo:       fmt.Sprintf("HL%d", time.Now().UnixNano()),
		CustomerID:    buyer.ID,
		Status:        constants.OrderStatusPaid,
		PaymentStatus: constants.PaymentStatusPaid,
		Currency:      constants.SiteCurrencyDefault,
		TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		PaidAt:        &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	svc.RetryPendingCommissions(10)

	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !storedOrder.ReferralCommissionCalculated {
		t.Fatalf("retry should settle pending commission")
	}
	var eventCount int64
	if err := db.Model(&models.ReferralEvent{}).Where("order_id = ?", order.ID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("event count want 1 got %d", eventCount)
	}
}

func TestSettleOrderEndToEnd(t *testing.T) {
	svc, db := setupSettlementTest(t)
	product := createSettlementProduct(t, db, decimal.NewFromFloat(68))
	lot := createSettlementLot(t, db, product.ID, 3)
	buyer := createSettlementCustomer(t, db, "buyer@example.com")

	order, err := svc.SettleOrder(CheckoutInput{
		CustomerID: buyer.ID,
		Items:      []CheckoutItemInput{{LotID: lot.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("settle order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("order status want paid got %s", order.Status)
	}

	var storedLot models.ProductLot
	if err := db.First(&storedLot, lot.ID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if storedLot.Status != constants.LotStatusSoldOut {
		t.Fatalf("lot should sell out, status %s", storedLot.Status)
	}
}
