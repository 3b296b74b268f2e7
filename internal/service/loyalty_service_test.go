package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harvestlink/internal/config"
	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupLoyaltyServiceTest(t *testing.T, cfg *config.LoyaltyConfig) (*LoyaltyService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:loyalty_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.LoyaltyAccount{},
		&models.LoyaltyTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewLoyaltyService(cfg, repository.NewLoyaltyRepository(db)), db
}

func TestAwardPointsCreatesAccount(t *testing.T) {
	svc, db := setupLoyaltyServiceTest(t, &config.LoyaltyConfig{Enabled: true, PointsPerUnit: 1})

	if err := svc.AwardPoints(1, 100, models.NewMoneyFromDecimal(decimal.NewFromFloat(68.5))); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	var account models.LoyaltyAccount
	if err := db.Where("customer_id = ?", 1).First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	// 积分按金额向下取整。
	if account.PointsBalance != 68 || account.TotalEarned != 68 {
		t.Fatalf("account balance want 68 got balance %d earned %d", account.PointsBalance, account.TotalEarned)
	}

	var txn models.LoyaltyTransaction
	if err := db.Where("account_id = ?", account.ID).First(&txn).Error; err != nil {
		t.Fatalf("load transaction failed: %v", err)
	}
	if txn.Type != constants.LoyaltyTxnTypeOrderAward || txn.Points != 68 {
		t.Fatalf("transaction mismatch: %+v", txn)
	}
	if txn.OrderID == nil || *txn.OrderID != 100 {
		t.Fatalf("transaction order ref mismatch: %+v", txn.OrderID)
	}
	if txn.BalanceBefore != 0 || txn.BalanceAfter != 68 {
		t.Fatalf("transaction balances mismatch: before %d after %d", txn.BalanceBefore, txn.BalanceAfter)
	}
}

func TestAwardPointsDuplicateOrder(t *testing.T) {
	svc, db := setupLoyaltyServiceTest(t, &config.LoyaltyConfig{Enabled: true, PointsPerUnit: 1})

	amount := models.NewMoneyFromDecimal(decimal.NewFromInt(100))
	if err := svc.AwardPoints(1, 200, amount); err != nil {
		t.Fatalf("first award failed: %v", err)
	}
	if err := svc.AwardPoints(1, 200, amount); err != nil {
		t.Fatalf("duplicate award should be a no-op, got %v", err)
	}

	var account models.LoyaltyAccount
	if err := db.Where("customer_id = ?", 1).First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if account.PointsBalance != 100 {
		t.Fatalf("duplicate award must not double, balance %d", account.PointsBalance)
	}
}

func TestAwardPointsDisabled(t *testing.T) {
	svc, db := setupLoyaltyServiceTest(t, &config.LoyaltyConfig{Enabled: false, PointsPerUnit: 1})

	if err := svc.AwardPoints(1, 300, models.NewMoneyFromDecimal(decimal.NewFromInt(100))); err != nil {
		t.Fatalf("disabled award failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.LoyaltyAccount{}).Count(&count).Error; err != nil {
		t.Fatalf("count accounts failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("disabled loyalty must not create account, count %d", count)
	}
}

func TestAwardPointsRate(t *testing.T) {
	svc, db := setupLoyaltyServiceTest(t, &config.LoyaltyConfig{Enabled: true, PointsPerUnit: 0.5})

	if err := svc.AwardPoints(1, 400, models.NewMoneyFromDecimal(decimal.NewFromInt(99))); err != nil {
		t.Fatalf("award failed: %v", err)
	}
	var account models.LoyaltyAccount
	if err := db.Where("customer_id = ?", 1).First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	// 99 * 0.5 = 49.5，向下取整。
	if account.PointsBalance != 49 {
		t.Fatalf("points want 49 got %d", account.PointsBalance)
	}
}

func TestAdminAdjust(t *testing.T) {
	svc, db := setupLoyaltyServiceTest(t, &config.LoyaltyConfig{Enabled: true, PointsPerUnit: 1})

	account, err := svc.AdminAdjust(1, 100, "活动补偿")
	if err != nil {
		t.Fatalf("positive adjust failed: %v", err)
	}
	if account.PointsBalance != 100 || account.TotalEarned != 100 {
		t.Fatalf("account mismatch after grant: %+v", account)
	}

	account, err = svc.AdminAdjust(1, -30, "误发扣回")
	if err != nil {
		t.Fatalf("negative adjust failed: %v", err)
	}
	if account.PointsBalance != 70 {
		t.Fatalf("balance want 70 got %d", account.PointsBalance)
	}
	if account.TotalEarned != 100 {
		t.Fatalf("deduction must not change total earned, got %d", account.TotalEarned)
	}

	if _, err := svc.AdminAdjust(1, -1000, "超额扣减"); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("overdraw want ErrInvalidQuantity got %v", err)
	}
	if _, err := svc.AdminAdjust(1, 0, "零调整"); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero adjust want ErrInvalidQuantity got %v", err)
	}
	if _, err := svc.AdminAdjust(99, -10, "无账户扣减"); !errors.Is(err, ErrLoyaltyAccountNotFound) {
		t.Fatalf("deduct from missing account want ErrLoyaltyAccountNotFound got %v", err)
	}

	var txnCount int64
	if err := db.Model(&models.LoyaltyTransaction{}).
		Where("type = ?", constants.LoyaltyTxnTypeAdminAdjust).Count(&txnCount).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txnCount != 2 {
		t.Fatalf("adjust transaction count want 2 got %d", txnCount)
	}
}

func TestGetAccountMissingReturnsZero(t *testing.T) {
	svc, _ := setupLoyaltyServiceTest(t, &config.LoyaltyConfig{Enabled: true, PointsPerUnit: 1})

	account, err := svc.GetAccount(42)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.CustomerID != 42 || account.PointsBalance != 0 {
		t.Fatalf("missing account should return zero value: %+v", account)
	}
}
