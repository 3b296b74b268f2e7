package repository

import (
	"errors"

	"github.com/harvestlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoyaltyRepository 积分数据访问接口
type LoyaltyRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LoyaltyRepository
	GetAccountByCustomerID(customerID uint) (*models.LoyaltyAccount, error)
	GetAccountByCustomerIDForUpdate(customerID uint) (*models.LoyaltyAccount, error)
	CreateAccount(account *models.LoyaltyAccount) error
	UpdateAccount(account *models.LoyaltyAccount) error
	CreateTransaction(txn *models.LoyaltyTransaction) error
	GetTransactionByOrderAndType(orderID uint, txnType string) (*models.LoyaltyTransaction, error)
	ListTransactions(filter LoyaltyTxnListFilter) ([]models.LoyaltyTransaction, int64, error)
}

// GormLoyaltyRepository GORM 积分仓储
type GormLoyaltyRepository struct {
	db *gorm.DB
}

// NewLoyaltyRepository 创建积分仓储
func NewLoyaltyRepository(db *gorm.DB) *GormLoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLoyaltyRepository) WithTx(tx *gorm.DB) LoyaltyRepository {
	if tx == nil {
		return r
	}
	return &GormLoyaltyRepository{db: tx}
}

// Transaction 执行事务
func (r *GormLoyaltyRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetAccountByCustomerID 按客户ID获取积分账户
func (r *GormLoyaltyRepository) GetAccountByCustomerID(customerID uint) (*models.LoyaltyAccount, error) {
	if customerID == 0 {
		return nil, nil
	}
	var account models.LoyaltyAccount
	if err := r.db.Where("customer_id = ?", customerID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByCustomerIDForUpdate 按客户ID加锁获取积分账户
func (r *GormLoyaltyRepository) GetAccountByCustomerIDForUpdate(customerID uint) (*models.LoyaltyAccount, error) {
	if customerID == 0 {
		return nil, nil
	}
	var account models.LoyaltyAccount
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount 创建积分账户
func (r *GormLoyaltyRepository) CreateAccount(account *models.LoyaltyAccount) error {
	return r.db.Create(account).Error
}

// UpdateAccount 更新积分账户
func (r *GormLoyaltyRepository) UpdateAccount(account *models.LoyaltyAccount) error {
	return r.db.Save(account).Error
}

// CreateTransaction 创建积分流水
func (r *GormLoyaltyRepository) CreateTransaction(txn *models.LoyaltyTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByOrderAndType 按订单与类型查询积分流水（幂等去重用）
func (r *GormLoyaltyRepository) GetTransactionByOrderAndType(orderID uint, txnType string) (*models.LoyaltyTransaction, error) {
	if orderID == 0 || txnType == "" {
		return nil, nil
	}
	var txn models.LoyaltyTransaction
	if err := r.db.Where("order_id = ? AND type = ?", orderID, txnType).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询积分流水
func (r *GormLoyaltyRepository) ListTransactions(filter LoyaltyTxnListFilter) ([]models.LoyaltyTransaction, int64, error) {
	query := r.db.Model(&models.LoyaltyTransaction{})
	if filter.AccountID != 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.LoyaltyTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
