package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/harvestlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 推荐返佣数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	GetMemberByID(id uint) (*models.ReferralMember, error)
	GetMemberByIDForUpdate(id uint) (*models.ReferralMember, error)
	GetMemberByCustomerID(customerID uint) (*models.ReferralMember, error)
	GetMemberByCode(code string) (*models.ReferralMember, error)
	CreateMember(member *models.ReferralMember) error
	UpdateMember(member *models.ReferralMember) error
	UpdateMemberStatus(id uint, status string, updatedAt time.Time) error
	IncrementReferredCustomers(id uint) error
	ListMembers(filter ReferralMemberListFilter) ([]models.ReferralMember, int64, error)

	CreateEvent(event *models.ReferralEvent) error
	GetEventByID(id uint) (*models.ReferralEvent, error)
	GetEventByMemberAndOrder(memberID, orderID uint) (*models.ReferralEvent, error)
	GetEventByMemberAndOrderForUpdate(memberID, orderID uint) (*models.ReferralEvent, error)
	GetEventByOrderForUpdate(orderID uint) (*models.ReferralEvent, error)
	UpdateEvent(event *models.ReferralEvent) error
	ListEvents(filter ReferralEventListFilter) ([]models.ReferralEvent, int64, error)

	CreateLog(log *models.CommissionLog) error
	ListLogs(filter CommissionLogListFilter) ([]models.CommissionLog, int64, error)
}

// GormReferralRepository GORM 推荐返佣仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐返佣仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetMemberByID 按ID获取推荐人
func (r *GormReferralRepository) GetMemberByID(id uint) (*models.ReferralMember, error) {
	if id == 0 {
		return nil, nil
	}
	var member models.ReferralMember
	if err := r.db.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetMemberByIDForUpdate 按ID加锁获取推荐人
func (r *GormReferralRepository) GetMemberByIDForUpdate(id uint) (*models.ReferralMember, error) {
	if id == 0 {
		return nil, nil
	}
	var member models.ReferralMember
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetMemberByCustomerID 按客户ID获取推荐人
func (r *GormReferralRepository) GetMemberByCustomerID(customerID uint) (*models.ReferralMember, error) {
	if customerID == 0 {
		return nil, nil
	}
	var member models.ReferralMember
	if err := r.db.Where("customer_id = ?", customerID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetMemberByCode 按推荐码获取推荐人（大小写不敏感）
func (r *GormReferralRepository) GetMemberByCode(code string) (*models.ReferralMember, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var member models.ReferralMember
	if err := r.db.Where("UPPER(referral_code) = ?", normalized).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// CreateMember 创建推荐人档案
func (r *GormReferralRepository) CreateMember(member *models.ReferralMember) error {
	return r.db.Create(member).Error
}

// UpdateMember 更新推荐人档案
func (r *GormReferralRepository) UpdateMember(member *models.ReferralMember) error {
	return r.db.Save(member).Error
}

// UpdateMemberStatus 更新推荐人状态
func (r *GormReferralRepository) UpdateMemberStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralMember{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// IncrementReferredCustomers 累计推荐客户数加一
func (r *GormReferralRepository) IncrementReferredCustomers(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralMember{}).
		Where("id = ?", id).
		Update("total_referred_customers", gorm.Expr("total_referred_customers + 1")).Error
}

// ListMembers 查询推荐人列表
func (r *GormReferralRepository) ListMembers(filter ReferralMemberListFilter) ([]models.ReferralMember, int64, error) {
	query := r.db.Model(&models.ReferralMember{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("referral_members.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"referral_members.referral_code", "referral_members.user_email"})
		query = query.Where("("+condition+")", repeatLikeArgs("%"+keyword+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ReferralMember
	if err := query.Order("referral_members.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateEvent 创建佣金事件
func (r *GormReferralRepository) CreateEvent(event *models.ReferralEvent) error {
	return r.db.Create(event).Error
}

// GetEventByID 按ID获取佣金事件
func (r *GormReferralRepository) GetEventByID(id uint) (*models.ReferralEvent, error) {
	if id == 0 {
		return nil, nil
	}
	var event models.ReferralEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetEventByMemberAndOrder 按推荐人与订单获取佣金事件
func (r *GormReferralRepository) GetEventByMemberAndOrder(memberID, orderID uint) (*models.ReferralEvent, error) {
	if memberID == 0 || orderID == 0 {
		return nil, nil
	}
	var event models.ReferralEvent
	if err := r.db.Where("referral_member_id = ? AND order_id = ?", memberID, orderID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetEventByMemberAndOrderForUpdate 按推荐人与订单加锁获取佣金事件
func (r *GormReferralRepository) GetEventByMemberAndOrderForUpdate(memberID, orderID uint) (*models.ReferralEvent, error) {
	if memberID == 0 || orderID == 0 {
		return nil, nil
	}
	var event models.ReferralEvent
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referral_member_id = ? AND order_id = ?", memberID, orderID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetEventByOrderForUpdate 按订单加锁获取佣金事件
func (r *GormReferralRepository) GetEventByOrderForUpdate(orderID uint) (*models.ReferralEvent, error) {
	if orderID == 0 {
		return nil, nil
	}
	var event models.ReferralEvent
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// UpdateEvent 更新佣金事件
func (r *GormReferralRepository) UpdateEvent(event *models.ReferralEvent) error {
	return r.db.Save(event).Error
}

// ListEvents 查询佣金事件列表
func (r *GormReferralRepository) ListEvents(filter ReferralEventListFilter) ([]models.ReferralEvent, int64, error) {
	query := r.db.Model(&models.ReferralEvent{})
	if filter.ReferralMemberID != 0 {
		query = query.Where("referral_events.referral_member_id = ?", filter.ReferralMemberID)
	}
	if filter.OrderID != 0 {
		query = query.Where("referral_events.order_id = ?", filter.OrderID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("referral_events.status = ?", status)
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		query = query.Where("referral_events.event_type = ?", eventType)
	}
	if period := strings.TrimSpace(filter.PeriodMonth); period != "" {
		query = query.Where("referral_events.period_month = ?", period)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("referral_events.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("referral_events.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ReferralEvent
	if err := query.Order("referral_events.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateLog 创建佣金流水（只追加）
func (r *GormReferralRepository) CreateLog(log *models.CommissionLog) error {
	return r.db.Create(log).Error
}

// ListLogs 查询佣金流水列表
func (r *GormReferralRepository) ListLogs(filter CommissionLogListFilter) ([]models.CommissionLog, int64, error) {
	query := r.db.Model(&models.CommissionLog{})
	if filter.ReferralMemberID != 0 {
		query = query.Where("referral_member_id = ?", filter.ReferralMemberID)
	}
	if changeType := strings.TrimSpace(filter.ChangeType); changeType != "" {
		query = query.Where("change_type = ?", changeType)
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

	var rows []models.CommissionLog
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
