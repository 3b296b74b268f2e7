package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) (*CommissionLedger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_ledger_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.ReferralMember{},
		&models.Order{},
		&models.OrderItem{},
		&models.ReferralEvent{},
		&models.CommissionLog{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	settingSvc := NewSettingService(repository.NewSettingRepository(db))
	if _, err := settingSvc.UpdateReferralSetting(ReferralSetting{
		Enabled: true,
		Tiers: []CommissionTierBand{
			{MinRevenue: 0, MaxRevenue: 10000, RatePercent: 2},
			{MinRevenue: 10000, MaxRevenue: 0, RatePercent: 3},
		},
	}); err != nil {
		t.Fatalf("seed referral setting failed: %v", err)
	}

	ledger := NewCommissionLedger(
		repository.NewReferralRepository(db),
		repository.NewOrderRepository(db),
		repository.NewCustomerRepository(db),
		settingSvc,
	)
	return ledger, db
}

func createLedgerMember(t *testing.T, db *gorm.DB, monthRevenue decimal.Decimal, month string) *models.ReferralMember {
	t.Helper()
	seeder := &models.Customer{
		Email:        fmt.Sprintf("seeder_%d@example.com", time.Now().UnixNano()),
		PasswordHash: "hash",
		Status:       constants.CustomerStatusActive,
	}
	if err := db.Create(seeder).Error; err != nil {
		t.Fatalf("create seeder failed: %v", err)
	}
	member := &models.ReferralMember{
		CustomerID:          seeder.ID,
		ReferralCode:        fmt.Sprintf("CODE%d", time.Now().UnixNano()%100000000),
		UserEmail:           seeder.Email,
		Status:              constants.ReferralMemberStatusActive,
		CurrentMonthRevenue: models.NewMoneyFromDecimal(monthRevenue),
		RevenueMonth:        month,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member failed: %v", err)
	}
	return member
}

func createLedgerOrder(t *testing.T, db *gorm.DB, member *models.ReferralMember, amount decimal.Decimal) (*models.Customer, *models.Order) {
	t.Helper()
	referrerID := member.ID
	buyer := &models.Customer{
		Email:        fmt.Sprintf("buyer_%d@example.com", time.Now().UnixNano()),
		PasswordHash: "hash",
		Status:       constants.CustomerStatusActive,
		ReferrerID:   &referrerID,
	}
	if err := db.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer failed: %v", err)
	}
	now := time.Now()
	order := &models.Order{
		OrderNo:       fmt.Sprintf("HL%d", time.Now().UnixNano()),
		CustomerID:    buyer.ID,
		Status:        constants.OrderStatusPaid,
		PaymentStatus: constants.PaymentStatusPaid,
		Currency:      constants.SiteCurrencyDefault,
		TotalAmount:   models.NewMoneyFromDecimal(amount),
		PaidAt:        &now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return buyer, order
}

func TestApplyEarnRecordsCommission(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	period := time.Now().Format("2006-01")
	member := createLedgerMember(t, db, decimal.NewFromInt(9800), period)
	buyer, order := createLedgerOrder(t, db, member, decimal.NewFromInt(500))

	event, err := ledger.ApplyEarn(ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  buyer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   constants.ReferralEventTypeFirstPurchase,
		FirstOrder:  true,
	})
	if err != nil {
		t.Fatalf("apply earn failed: %v", err)
	}

	// 计入本单后跨档，费率按 3% 计。
	if !event.CommissionAmount.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("commission amount want 15 got %s", event.CommissionAmount)
	}
	if event.Status != constants.ReferralEventStatusCalculated {
		t.Fatalf("event status want calculated got %s", event.Status)
	}
	if event.PeriodMonth != period {
		t.Fatalf("period want %s got %s", period, event.PeriodMonth)
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unpaid commission want 15 got %s", storedMember.UnpaidCommission)
	}
	if !storedMember.CurrentMonthRevenue.Decimal.Equal(decimal.NewFromInt(10300)) {
		t.Fatalf("month revenue want 10300 got %s", storedMember.CurrentMonthRevenue)
	}
	if !storedMember.TotalReferralRevenue.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("total revenue want 500 got %s", storedMember.TotalReferralRevenue)
	}

	var storedOrder models.Order
	if err := db.First(&storedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !storedOrder.ReferralCommissionCalculated {
		t.Fatalf("order settlement latch should be set")
	}
	if storedOrder.ReferrerID == nil || *storedOrder.ReferrerID != member.ID {
		t.Fatalf("order referrer not recorded")
	}

	var storedBuyer models.Customer
	if err := db.First(&storedBuyer, buyer.ID).Error; err != nil {
		t.Fatalf("load buyer failed: %v", err)
	}
	if !storedBuyer.ReferralLocked {
		t.Fatalf("first order commission should lock attribution")
	}

	var log models.CommissionLog
	if err := db.Where("referral_member_id = ?", member.ID).First(&log).Error; err != nil {
		t.Fatalf("load commission log failed: %v", err)
	}
	if log.ChangeType != constants.CommissionChangeEarned {
		t.Fatalf("log change type want earned got %s", log.ChangeType)
	}
	if !log.BalanceBefore.Decimal.Equal(decimal.Zero) || !log.BalanceAfter.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("log balances mismatch: before %s after %s", log.BalanceBefore, log.BalanceAfter)
	}
	if log.TriggeredBy != ledgerTriggerSystem {
		t.Fatalf("log triggered_by want %s got %s", ledgerTriggerSystem, log.TriggeredBy)
	}
}

func TestApplyEarnDuplicateOrder(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	period := time.Now().Format("2006-01")
	member := createLedgerMember(t, db, decimal.Zero, period)
	buyer, order := createLedgerOrder(t, db, member, decimal.NewFromInt(100))

	input := ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  buyer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   constants.ReferralEventTypeFirstPurchase,
	}
	if _, err := ledger.ApplyEarn(input); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := ledger.ApplyEarn(input); !errors.Is(err, ErrCommissionDuplicate) {
		t.Fatalf("second apply want ErrCommissionDuplicate got %v", err)
	}

	var count int64
	if err := db.Model(&models.ReferralEvent{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("event count want 1 got %d", count)
	}
}

func TestApplyEarnSuspendedMember(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	period := time.Now().Format("2006-01")
	member := createLedgerMember(t, db, decimal.Zero, period)
	buyer, order := createLedgerOrder(t, db, member, decimal.NewFromInt(100))

	if err := db.Model(&models.ReferralMember{}).Where("id = ?", member.ID).
		Update("status", constants.ReferralMemberStatusSuspended).Error; err != nil {
		t.Fatalf("suspend member failed: %v", err)
	}

	_, err := ledger.ApplyEarn(ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  buyer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   constants.ReferralEventTypeFirstPurchase,
	})
	if !errors.Is(err, ErrReferralMemberSuspended) {
		t.Fatalf("want ErrReferralMemberSuspended got %v", err)
	}
}

func TestApplyEarnLazyMonthReset(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	// 上月累计在本月首笔入账前应清零，按 [0,10000) 档 2% 计。
	member := createLedgerMember(t, db, decimal.NewFromInt(99999), "2020-01")
	buyer, order := createLedgerOrder(t, db, member, decimal.NewFromInt(500))

	event, err := ledger.ApplyEarn(ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  buyer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   constants.ReferralEventTypeSubsequentPurchase,
	})
	if err != nil {
		t.Fatalf("apply earn failed: %v", err)
	}
	if !event.CommissionAmount.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("commission amount want 10 got %s", event.CommissionAmount)
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.CurrentMonthRevenue.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("month revenue want 500 got %s", storedMember.CurrentMonthRevenue)
	}
	if storedMember.RevenueMonth != time.Now().Format("2006-01") {
		t.Fatalf("revenue month not advanced: %s", storedMember.RevenueMonth)
	}
}

func TestReverseEarn(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	period := time.Now().Format("2006-01")
	member := createLedgerMember(t, db, decimal.Zero, period)
	buyer, order := createLedgerOrder(t, db, member, decimal.NewFromInt(1000))

	if _, err := ledger.ApplyEarn(ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  buyer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   constants.ReferralEventTypeFirstPurchase,
	}); err != nil {
		t.Fatalf("apply earn failed: %v", err)
	}

	result, err := ledger.ReverseEarn(order.ID, "order refunded")
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if !result.Reversed {
		t.Fatalf("reverse should report reversed")
	}
	if result.Event.Status != constants.ReferralEventStatusReversed {
		t.Fatalf("event status want reversed got %s", result.Event.Status)
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("unpaid commission want 0 got %s", storedMember.UnpaidCommission)
	}

	// 重复冲销是无害空操作。
	again, err := ledger.ReverseEarn(order.ID, "order refunded")
	if err != nil {
		t.Fatalf("second reverse failed: %v", err)
	}
	if again.Reversed {
		t.Fatalf("second reverse should be a no-op")
	}
}

func TestReverseEarnNeverEarned(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	period := time.Now().Format("2006-01")
	member := createLedgerMember(t, db, decimal.Zero, period)
	_, order := createLedgerOrder(t, db, member, decimal.NewFromInt(100))

	result, err := ledger.ReverseEarn(order.ID, "order refunded")
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if result.Reversed {
		t.Fatalf("reverse of never-earned order should be a no-op")
	}
}

func TestReverseEarnClampsAtZero(t *testing.T) {
	ledger, db := setupLedgerTest(t)
	period := time.Now().Format("2006-01")
	member := createLedgerMember(t, db, decimal.Zero, period)
	buyer, order := createLedgerOrder(t, db, member, decimal.NewFromInt(1000))

	if _, err := ledger.ApplyEarn(ApplyEarnInput{
		MemberID:    member.ID,
		OrderID:     order.ID,
		CustomerID:  buyer.ID,
		OrderAmount: order.TotalAmount,
		EventType:   constants.ReferralEventTypeFirstPurchase,
	}); err != nil {
		t.Fatalf("apply earn failed: %v", err)
	}

	// 余额被外部压到低于应扣金额，冲销时夹逼到零而不是写出负数。
	if err := db.Model(&models.ReferralMember{}).Where("id = ?", member.ID).
		Update("unpaid_commission", decimal.NewFromInt(5)).Error; err != nil {
		t.Fatalf("shrink balance failed: %v", err)
	}

	result, err := ledger.ReverseEarn(order.ID, "order refunded")
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if !result.Reversed {
		t.Fatalf("reverse should still apply")
	}

	var storedMember models.ReferralMember
	if err := db.First(&storedMember, member.ID).Error; err != nil {
		t.Fatalf("load member failed: %v", err)
	}
	if !storedMember.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("clamped balance want 0 got %s", storedMember.UnpaidCommission)
	}

	var log models.CommissionLog
	if err := db.Where("referral_member_id = ? AND change_type = ?", member.ID, constants.CommissionChangeReversed).
		First(&log).Error; err != nil {
		t.Fatalf("load reverse log failed: %v", err)
	}
	if !log.AffectedAmount.Decimal.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("clamped deduction want 5 got %s", log.AffectedAmount)
	}
}
