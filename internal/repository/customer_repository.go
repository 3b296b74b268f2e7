package repository

import (
	"errors"
	"time"

	"github.com/harvestlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	GetByEmail(email string) (*models.Customer, error)
	GetByID(id uint) (*models.Customer, error)
	GetByIDForUpdate(id uint) (*models.Customer, error)
	ListByIDs(ids []uint) ([]models.Customer, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
	SetReferralAttribution(id uint, referrerID uint, codeUsed string, referredAt time.Time) (int64, error)
	LockReferral(id uint) (int64, error)
	WithTx(tx *gorm.DB) CustomerRepository
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) CustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByEmail 根据邮箱获取客户
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Where("email = ?", email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByID 根据 ID 获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByIDForUpdate 根据 ID 加锁获取客户
func (r *GormCustomerRepository) GetByIDForUpdate(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// ListByIDs 批量获取客户
func (r *GormCustomerRepository) ListByIDs(ids []uint) ([]models.Customer, error) {
	if len(ids) == 0 {
		return []models.Customer{}, nil
	}
	var customers []models.Customer
	if err := r.db.Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// Update 更新客户
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// List 客户列表
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})

	if filter.Keyword != "" {
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"email", "display_name"})
		query = query.Where("("+condition+")", repeatLikeArgs("%"+filter.Keyword+"%", argCount)...)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ReferrerID != 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
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

	var customers []models.Customer
	if err := query.Order("id DESC").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// SetReferralAttribution 写入归因字段（仅未锁定客户生效）
func (r *GormCustomerRepository) SetReferralAttribution(id uint, referrerID uint, codeUsed string, referredAt time.Time) (int64, error) {
	if id == 0 || referrerID == 0 {
		return 0, errors.New("invalid referral attribution params")
	}
	result := r.db.Model(&models.Customer{}).
		Where("id = ? AND referral_locked = ?", id, false).
		Updates(map[string]interface{}{
			"referrer_id":          referrerID,
			"referral_code_used":   codeUsed,
			"is_referred_customer": true,
			"referred_at":          referredAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// LockReferral 锁定归因（仅已有推荐人的客户生效）
func (r *GormCustomerRepository) LockReferral(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid customer id")
	}
	result := r.db.Model(&models.Customer{}).
		Where("id = ? AND referral_locked = ? AND referrer_id IS NOT NULL", id, false).
		Update("referral_locked", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
