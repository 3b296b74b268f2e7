package service

import (
	"fmt"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"gorm.io/gorm"
)

// OutOfStockError 批次余量不足错误，携带剩余可售数量。
type OutOfStockError struct {
	LotID     uint
	Requested int
	Remaining int
}

// Error 实现 error 接口
func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("lot %d out of stock: requested %d, remaining %d", e.LotID, e.Requested, e.Remaining)
}

// Unwrap 支持 errors.Is(err, ErrLotOutOfStock)
func (e *OutOfStockError) Unwrap() error {
	return ErrLotOutOfStock
}

// LotReservation 单个批次的预占请求
type LotReservation struct {
	LotID    uint
	Quantity int
	Amount   models.Money
}

// InventoryService 批次库存服务
type InventoryService struct {
	lotRepo     repository.ProductLotRepository
	productRepo repository.ProductRepository
}

// NewInventoryService 创建批次库存服务
func NewInventoryService(lotRepo repository.ProductLotRepository, productRepo repository.ProductRepository) *InventoryService {
	return &InventoryService{lotRepo: lotRepo, productRepo: productRepo}
}

// ValidateLots 结算前校验全部批次：先全量校验，任一失败则不做任何扣减。
func (s *InventoryService) ValidateLots(reservations []LotReservation) ([]models.ProductLot, error) {
	lots := make([]models.ProductLot, 0, len(reservations))
	for _, item := range reservations {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		lot, err := s.lotRepo.GetByID(item.LotID)
		if err != nil {
			return nil, err
		}
		if lot == nil {
			return nil, fmt.Errorf("%w: lot %d", ErrLotNotFound, item.LotID)
		}
		if lot.Status != constants.LotStatusActive {
			return nil, fmt.Errorf("%w: lot %d status %s", ErrLotNotActive, item.LotID, lot.Status)
		}
		if lot.AvailableQuantity < item.Quantity {
			return nil, &OutOfStockError{LotID: item.LotID, Requested: item.Quantity, Remaining: lot.AvailableQuantity}
		}
		lots = append(lots, *lot)
	}
	return lots, nil
}

// ReserveTx 事务内条件扣减单个批次，失败时回读分类原因。
// 扣减后可售数量恰好归零则同事务内置为售罄，返回 true。
func (s *InventoryService) ReserveTx(tx *gorm.DB, item LotReservation) (bool, error) {
	if item.Quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	repo := s.lotRepo.WithTx(tx)

	affected, err := repo.ReserveQuantity(item.LotID, item.Quantity, item.Amount)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		lot, err := repo.GetByID(item.LotID)
		if err != nil {
			return false, err
		}
		if lot == nil {
			return false, fmt.Errorf("%w: lot %d", ErrLotNotFound, item.LotID)
		}
		if lot.Status != constants.LotStatusActive {
			return false, fmt.Errorf("%w: lot %d status %s", ErrLotNotActive, item.LotID, lot.Status)
		}
		return false, &OutOfStockError{LotID: item.LotID, Requested: item.Quantity, Remaining: lot.AvailableQuantity}
	}

	soldOut, err := repo.MarkSoldOutIfExhausted(item.LotID)
	if err != nil {
		return false, err
	}
	return soldOut > 0, nil
}

// ReleaseTx 事务内回补批次（订单取消或退款），售罄批次回补后重新开放。
func (s *InventoryService) ReleaseTx(tx *gorm.DB, item LotReservation) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	repo := s.lotRepo.WithTx(tx)

	affected, err := repo.ReleaseQuantity(item.LotID, item.Quantity, item.Amount)
	if err != nil {
		return err
	}
	if affected == 0 {
		// 回补失败说明已售数量与订单不符，记录后放弃而不是写出负数。
		logger.Warnw("lot_release_skipped", "lot_id", item.LotID, "quantity", item.Quantity)
		return nil
	}
	if _, err := repo.ReopenIfStocked(item.LotID); err != nil {
		return err
	}
	return nil
}

// Restock 补货：总产量与可售数量同步增加，售罄批次重新开放。
func (s *InventoryService) Restock(lotID uint, quantity int) (*models.ProductLot, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	lot, err := s.lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrLotNotFound
	}

	if _, err := s.lotRepo.AddYield(lotID, quantity); err != nil {
		return nil, err
	}
	if _, err := s.lotRepo.ReopenIfStocked(lotID); err != nil {
		return nil, err
	}
	return s.lotRepo.GetByID(lotID)
}
