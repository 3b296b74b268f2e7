package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupInventoryServiceTest(t *testing.T) (*InventoryService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.PreorderProduct{},
		&models.ProductLot{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	lotRepo := repository.NewProductLotRepository(db)
	productRepo := repository.NewProductRepository(db)
	return NewInventoryService(lotRepo, productRepo), db
}

func createTestLot(t *testing.T, db *gorm.DB, quantity int, status string) *models.ProductLot {
	t.Helper()
	lot := &models.ProductLot{
		ProductID:         1,
		LotCode:           fmt.Sprintf("LOT-%d", time.Now().UnixNano()),
		TotalYield:        quantity,
		AvailableQuantity: quantity,
		Status:            status,
	}
	if err := db.Create(lot).Error; err != nil {
		t.Fatalf("create lot failed: %v", err)
	}
	return lot
}

func assertLotConservation(t *testing.T, db *gorm.DB, lotID uint) models.ProductLot {
	t.Helper()
	var lot models.ProductLot
	if err := db.First(&lot, lotID).Error; err != nil {
		t.Fatalf("load lot failed: %v", err)
	}
	if lot.AvailableQuantity+lot.SoldQuantity != lot.TotalYield {
		t.Fatalf("quantity conservation broken: available %d + sold %d != total %d",
			lot.AvailableQuantity, lot.SoldQuantity, lot.TotalYield)
	}
	if lot.AvailableQuantity < 0 {
		t.Fatalf("available quantity went negative: %d", lot.AvailableQuantity)
	}
	return lot
}

func TestReserveTxConditionalDeduct(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	lot := createTestLot(t, db, 10, constants.LotStatusActive)

	soldOut, err := svc.ReserveTx(db, LotReservation{
		LotID:    lot.ID,
		Quantity: 6,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
	})
	if err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	if soldOut {
		t.Fatalf("first reserve should not sell out")
	}

	_, err = svc.ReserveTx(db, LotReservation{
		LotID:    lot.ID,
		Quantity: 6,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
	})
	if !errors.Is(err, ErrLotOutOfStock) {
		t.Fatalf("second reserve want ErrLotOutOfStock got %v", err)
	}
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("error should be *OutOfStockError, got %T", err)
	}
	if oos.Remaining != 4 || oos.Requested != 6 {
		t.Fatalf("out of stock detail mismatch: %+v", oos)
	}

	stored := assertLotConservation(t, db, lot.ID)
	if stored.AvailableQuantity != 4 || stored.SoldQuantity != 6 {
		t.Fatalf("failed reserve must not deduct, available %d sold %d", stored.AvailableQuantity, stored.SoldQuantity)
	}
}

func TestReserveTxConcurrentOversell(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 内存库限制单连接，两个并发扣减在条件更新上串行化。
	sqlDB.SetMaxOpenConns(1)
	lot := createTestLot(t, db, 10, constants.LotStatusActive)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ReserveTx(db, LotReservation{
				LotID:    lot.ID,
				Quantity: 6,
				Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
			})
		}(i)
	}
	wg.Wait()

	var rejected int
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrLotOutOfStock) {
			t.Fatalf("concurrent reserve want ErrLotOutOfStock got %v", err)
		}
		rejected++
	}
	if rejected != 1 {
		t.Fatalf("exactly one concurrent reserve should fail, got %d", rejected)
	}

	stored := assertLotConservation(t, db, lot.ID)
	if stored.AvailableQuantity != 4 || stored.SoldQuantity != 6 {
		t.Fatalf("concurrent oversell quantities mismatch: available %d sold %d",
			stored.AvailableQuantity, stored.SoldQuantity)
	}
}

func TestReserveTxMarksSoldOutAtZero(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	lot := createTestLot(t, db, 5, constants.LotStatusActive)

	soldOut, err := svc.ReserveTx(db, LotReservation{
		LotID:    lot.ID,
		Quantity: 5,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
	})
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if !soldOut {
		t.Fatalf("reserving full quantity should report sold out")
	}

	stored := assertLotConservation(t, db, lot.ID)
	if stored.Status != constants.LotStatusSoldOut {
		t.Fatalf("lot status want sold_out got %s", stored.Status)
	}
}

func TestReserveTxRejectsInactiveLot(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	lot := createTestLot(t, db, 5, constants.LotStatusPending)

	_, err := svc.ReserveTx(db, LotReservation{LotID: lot.ID, Quantity: 1})
	if !errors.Is(err, ErrLotNotActive) {
		t.Fatalf("pending lot reserve want ErrLotNotActive got %v", err)
	}
}

func TestReleaseTxReopensSoldOutLot(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	lot := createTestLot(t, db, 5, constants.LotStatusActive)

	if _, err := svc.ReserveTx(db, LotReservation{
		LotID:    lot.ID,
		Quantity: 5,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	if err := svc.ReleaseTx(db, LotReservation{
		LotID:    lot.ID,
		Quantity: 2,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
	}); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	stored := assertLotConservation(t, db, lot.ID)
	if stored.Status != constants.LotStatusActive {
		t.Fatalf("released lot should reopen, status %s", stored.Status)
	}
	if stored.AvailableQuantity != 2 || stored.SoldQuantity != 3 {
		t.Fatalf("release quantities mismatch: available %d sold %d", stored.AvailableQuantity, stored.SoldQuantity)
	}
}

func TestRestockAddsYieldAndReopens(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	lot := createTestLot(t, db, 3, constants.LotStatusActive)

	if _, err := svc.ReserveTx(db, LotReservation{
		LotID:    lot.ID,
		Quantity: 3,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	restocked, err := svc.Restock(lot.ID, 4)
	if err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	if restocked.TotalYield != 7 || restocked.AvailableQuantity != 4 {
		t.Fatalf("restock quantities mismatch: total %d available %d", restocked.TotalYield, restocked.AvailableQuantity)
	}
	if restocked.Status != constants.LotStatusActive {
		t.Fatalf("sold out lot should reopen after restock, status %s", restocked.Status)
	}
	assertLotConservation(t, db, lot.ID)
}

func TestRestockValidation(t *testing.T) {
	svc, _ := setupInventoryServiceTest(t)

	if _, err := svc.Restock(1, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity want ErrInvalidQuantity got %v", err)
	}
	if _, err := svc.Restock(999, 5); !errors.Is(err, ErrLotNotFound) {
		t.Fatalf("missing lot want ErrLotNotFound got %v", err)
	}
}

func TestValidateLots(t *testing.T) {
	svc, db := setupInventoryServiceTest(t)
	active := createTestLot(t, db, 10, constants.LotStatusActive)
	closed := createTestLot(t, db, 10, constants.LotStatusClosed)

	if _, err := svc.ValidateLots([]LotReservation{{LotID: active.ID, Quantity: 2}}); err != nil {
		t.Fatalf("valid reservation failed: %v", err)
	}
	if _, err := svc.ValidateLots([]LotReservation{{LotID: closed.ID, Quantity: 1}}); !errors.Is(err, ErrLotNotActive) {
		t.Fatalf("closed lot want ErrLotNotActive got %v", err)
	}
	if _, err := svc.ValidateLots([]LotReservation{{LotID: 999, Quantity: 1}}); !errors.Is(err, ErrLotNotFound) {
		t.Fatalf("missing lot want ErrLotNotFound got %v", err)
	}
	if _, err := svc.ValidateLots([]LotReservation{{LotID: active.ID, Quantity: 11}}); !errors.Is(err, ErrLotOutOfStock) {
		t.Fatalf("oversell want ErrLotOutOfStock got %v", err)
	}
	if _, err := svc.ValidateLots([]LotReservation{{LotID: active.ID, Quantity: 0}}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity want ErrInvalidQuantity got %v", err)
	}
}
