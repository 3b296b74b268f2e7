package repository

import (
	"errors"
	"strings"

	"github.com/harvestlink/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 预售商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.PreorderProduct, int64, error)
	GetBySlug(slug string, onlyActive bool) (*models.PreorderProduct, error)
	GetByID(id uint) (*models.PreorderProduct, error)
	ListByIDs(ids []uint) ([]models.PreorderProduct, error)
	Create(product *models.PreorderProduct) error
	Update(product *models.PreorderProduct) error
	Delete(id uint) error
	CountBySlug(slug string, excludeID *uint) (int64, error)
	AddRevenue(productID uint, amount models.Money) (int64, error)
	AdjustActiveLotCount(productID uint, delta int) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.PreorderProduct, int64, error) {
	var products []models.PreorderProduct

	query := r.db.Model(&models.PreorderProduct{})
	if filter.WithFarm {
		query = query.Preload("Farm")
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.FarmID != 0 {
		query = query.Where("farm_id = ?", filter.FarmID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"slug", "title", "description"})
		query = query.Where("("+condition+")", repeatLikeArgs("%"+search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// GetBySlug 根据 slug 获取商品
func (r *GormProductRepository) GetBySlug(slug string, onlyActive bool) (*models.PreorderProduct, error) {
	query := r.db.Preload("Farm").Where("slug = ?", slug)
	if onlyActive {
		query = query.Where("is_active = ?", true)
		query = query.Preload("Lots", func(db *gorm.DB) *gorm.DB {
			return db.Where("status IN ?", []string{"active", "sold_out"}).Order("id ASC")
		})
	} else {
		query = query.Preload("Lots", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	}

	var product models.PreorderProduct
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.PreorderProduct, error) {
	var product models.PreorderProduct
	if err := r.db.Preload("Farm").
		Preload("Lots", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.PreorderProduct, error) {
	if len(ids) == 0 {
		return []models.PreorderProduct{}, nil
	}
	var products []models.PreorderProduct
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.PreorderProduct) error {
	return r.db.Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.PreorderProduct) error {
	return r.db.Save(product).Error
}

// Delete 删除商品
func (r *GormProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.PreorderProduct{}, id).Error
}

// CountBySlug 统计 slug 数量
func (r *GormProductRepository) CountBySlug(slug string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.PreorderProduct{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AddRevenue 累加商品销售额（汇总统计，尽力维护）
func (r *GormProductRepository) AddRevenue(productID uint, amount models.Money) (int64, error) {
	if productID == 0 {
		return 0, errors.New("invalid product id")
	}
	result := r.db.Model(&models.PreorderProduct{}).
		Where("id = ?", productID).
		Update("total_revenue", gorm.Expr("total_revenue + ?", amount.Decimal))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AdjustActiveLotCount 调整在售批次计数（汇总统计，尽力维护）
func (r *GormProductRepository) AdjustActiveLotCount(productID uint, delta int) (int64, error) {
	if productID == 0 || delta == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.PreorderProduct{}).
		Where("id = ?", productID).
		Update("active_lot_count", gorm.Expr("active_lot_count + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
