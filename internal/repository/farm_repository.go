package repository

import (
	"errors"

	"github.com/harvestlink/internal/models"

	"gorm.io/gorm"
)

// FarmRepository 农场数据访问接口
type FarmRepository interface {
	GetByID(id uint) (*models.Farm, error)
	GetBySlug(slug string) (*models.Farm, error)
	List(page, pageSize int, onlyActive bool) ([]models.Farm, int64, error)
	Create(farm *models.Farm) error
	Update(farm *models.Farm) error
}

// GormFarmRepository GORM 实现
type GormFarmRepository struct {
	db *gorm.DB
}

// NewFarmRepository 创建农场仓库
func NewFarmRepository(db *gorm.DB) *GormFarmRepository {
	return &GormFarmRepository{db: db}
}

// GetByID 根据 ID 获取农场
func (r *GormFarmRepository) GetByID(id uint) (*models.Farm, error) {
	var farm models.Farm
	if err := r.db.First(&farm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &farm, nil
}

// GetBySlug 根据 slug 获取农场
func (r *GormFarmRepository) GetBySlug(slug string) (*models.Farm, error) {
	if slug == "" {
		return nil, nil
	}
	var farm models.Farm
	if err := r.db.Where("slug = ?", slug).First(&farm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &farm, nil
}

// List 农场列表
func (r *GormFarmRepository) List(page, pageSize int, onlyActive bool) ([]models.Farm, int64, error) {
	query := r.db.Model(&models.Farm{})
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var farms []models.Farm
	if err := query.Order("id ASC").Find(&farms).Error; err != nil {
		return nil, 0, err
	}
	return farms, total, nil
}

// Create 创建农场
func (r *GormFarmRepository) Create(farm *models.Farm) error {
	return r.db.Create(farm).Error
}

// Update 更新农场
func (r *GormFarmRepository) Update(farm *models.Farm) error {
	return r.db.Save(farm).Error
}
