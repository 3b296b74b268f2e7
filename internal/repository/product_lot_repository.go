package repository

import (
	"errors"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductLotRepository 预售批次数据访问接口
type ProductLotRepository interface {
	GetByID(id uint) (*models.ProductLot, error)
	GetByIDForUpdate(id uint) (*models.ProductLot, error)
	GetByLotCode(lotCode string) (*models.ProductLot, error)
	ListByIDs(ids []uint) ([]models.ProductLot, error)
	List(filter ProductLotListFilter) ([]models.ProductLot, int64, error)
	Create(lot *models.ProductLot) error
	Update(lot *models.ProductLot) error
	ReserveQuantity(lotID uint, quantity int, amount models.Money) (int64, error)
	ReleaseQuantity(lotID uint, quantity int, amount models.Money) (int64, error)
	MarkSoldOutIfExhausted(lotID uint) (int64, error)
	ReopenIfStocked(lotID uint) (int64, error)
	AddYield(lotID uint, quantity int) (int64, error)
	WithTx(tx *gorm.DB) ProductLotRepository
}

// GormProductLotRepository GORM 实现
type GormProductLotRepository struct {
	db *gorm.DB
}

// NewProductLotRepository 创建批次仓储
func NewProductLotRepository(db *gorm.DB) *GormProductLotRepository {
	return &GormProductLotRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductLotRepository) WithTx(tx *gorm.DB) ProductLotRepository {
	if tx == nil {
		return r
	}
	return &GormProductLotRepository{db: tx}
}

// GetByID 根据ID获取批次
func (r *GormProductLotRepository) GetByID(id uint) (*models.ProductLot, error) {
	if id == 0 {
		return nil, errors.New("invalid lot id")
	}
	var lot models.ProductLot
	if err := r.db.First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// GetByIDForUpdate 根据ID加锁获取批次
func (r *GormProductLotRepository) GetByIDForUpdate(id uint) (*models.ProductLot, error) {
	if id == 0 {
		return nil, errors.New("invalid lot id")
	}
	var lot models.ProductLot
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// GetByLotCode 根据批次编号获取批次
func (r *GormProductLotRepository) GetByLotCode(lotCode string) (*models.ProductLot, error) {
	if lotCode == "" {
		return nil, nil
	}
	var lot models.ProductLot
	if err := r.db.Where("lot_code = ?", lotCode).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// ListByIDs 批量获取批次
func (r *GormProductLotRepository) ListByIDs(ids []uint) ([]models.ProductLot, error) {
	if len(ids) == 0 {
		return []models.ProductLot{}, nil
	}
	var lots []models.ProductLot
	if err := r.db.Where("id IN ?", ids).Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// List 分页查询批次
func (r *GormProductLotRepository) List(filter ProductLotListFilter) ([]models.ProductLot, int64, error) {
	query := r.db.Model(&models.ProductLot{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var lots []models.ProductLot
	if err := query.Order("id desc").Find(&lots).Error; err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// Create 创建批次
func (r *GormProductLotRepository) Create(lot *models.ProductLot) error {
	if lot == nil {
		return errors.New("lot is nil")
	}
	return r.db.Create(lot).Error
}

// Update 更新批次
func (r *GormProductLotRepository) Update(lot *models.ProductLot) error {
	if lot == nil {
		return errors.New("lot is nil")
	}
	return r.db.Save(lot).Error
}

// ReserveQuantity 条件扣减可售数量（仅在批次在售且余量充足时生效）
// available_quantity 与 sold_quantity 同步增减，保持与 total_yield 的守恒。
func (r *GormProductLotRepository) ReserveQuantity(lotID uint, quantity int, amount models.Money) (int64, error) {
	if lotID == 0 || quantity <= 0 {
		return 0, errors.New("invalid lot reserve params")
	}
	result := r.db.Model(&models.ProductLot{}).
		Where("id = ? AND status = ? AND available_quantity >= ?", lotID, constants.LotStatusActive, quantity).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity - ?", quantity),
			"sold_quantity":      gorm.Expr("sold_quantity + ?", quantity),
			"total_revenue":      gorm.Expr("total_revenue + ?", amount.Decimal),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseQuantity 回补可售数量（取消或退款时的反向操作）
func (r *GormProductLotRepository) ReleaseQuantity(lotID uint, quantity int, amount models.Money) (int64, error) {
	if lotID == 0 || quantity <= 0 {
		return 0, errors.New("invalid lot release params")
	}
	result := r.db.Model(&models.ProductLot{}).
		Where("id = ? AND sold_quantity >= ?", lotID, quantity).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity + ?", quantity),
			"sold_quantity":      gorm.Expr("sold_quantity - ?", quantity),
			"total_revenue":      gorm.Expr("total_revenue - ?", amount.Decimal),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkSoldOutIfExhausted 可售数量恰好归零时置为售罄
func (r *GormProductLotRepository) MarkSoldOutIfExhausted(lotID uint) (int64, error) {
	if lotID == 0 {
		return 0, errors.New("invalid lot id")
	}
	result := r.db.Model(&models.ProductLot{}).
		Where("id = ? AND status = ? AND available_quantity = 0", lotID, constants.LotStatusActive).
		Update("status", constants.LotStatusSoldOut)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReopenIfStocked 售罄批次回补后重新开放
func (r *GormProductLotRepository) ReopenIfStocked(lotID uint) (int64, error) {
	if lotID == 0 {
		return 0, errors.New("invalid lot id")
	}
	result := r.db.Model(&models.ProductLot{}).
		Where("id = ? AND status = ? AND available_quantity > 0", lotID, constants.LotStatusSoldOut).
		Update("status", constants.LotStatusActive)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AddYield 补货，total_yield 与 available_quantity 同步增加
func (r *GormProductLotRepository) AddYield(lotID uint, quantity int) (int64, error) {
	if lotID == 0 || quantity <= 0 {
		return 0, errors.New("invalid lot restock params")
	}
	result := r.db.Model(&models.ProductLot{}).
		Where("id = ?", lotID).
		Updates(map[string]interface{}{
			"total_yield":        gorm.Expr("total_yield + ?", quantity),
			"available_quantity": gorm.Expr("available_quantity + ?", quantity),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
