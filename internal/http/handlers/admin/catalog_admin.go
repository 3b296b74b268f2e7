package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateFarmRequest 创建农场请求
type CreateFarmRequest struct {
	Slug         string `json:"slug" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Region       string `json:"region"`
	ContactEmail string `json:"contact_email"`
	Description  string `json:"description"`
	IsActive     *bool  `json:"is_active"`
}

// CreateFarm 创建农场 (Admin)
func (h *Handler) CreateFarm(c *gin.Context) {
	var req CreateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	exist, err := h.FarmRepo.GetBySlug(slug)
	if err != nil {
		respondError(c, response.CodeInternal, "创建农场失败", err)
		return
	}
	if exist != nil {
		respondError(c, response.CodeBadRequest, "农场标识已存在", nil)
		return
	}

	farm := &models.Farm{
		Slug:         slug,
		Name:         strings.TrimSpace(req.Name),
		Region:       strings.TrimSpace(req.Region),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		Description:  req.Description,
		IsActive:     true,
	}
	if req.IsActive != nil {
		farm.IsActive = *req.IsActive
	}
	if err := h.FarmRepo.Create(farm); err != nil {
		respondError(c, response.CodeInternal, "创建农场失败", err)
		return
	}

	response.Success(c, farm)
}

// UpdateFarmRequest 更新农场请求
type UpdateFarmRequest struct {
	Name         *string `json:"name"`
	Region       *string `json:"region"`
	ContactEmail *string `json:"contact_email"`
	Description  *string `json:"description"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateFarm 更新农场 (Admin)
func (h *Handler) UpdateFarm(c *gin.Context) {
	farmID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	farm, err := h.FarmRepo.GetByID(farmID)
	if err != nil {
		respondError(c, response.CodeInternal, "更新农场失败", err)
		return
	}
	if farm == nil {
		respondError(c, response.CodeNotFound, "农场不存在", nil)
		return
	}

	if req.Name != nil {
		farm.Name = strings.TrimSpace(*req.Name)
	}
	if req.Region != nil {
		farm.Region = strings.TrimSpace(*req.Region)
	}
	if req.ContactEmail != nil {
		farm.ContactEmail = strings.TrimSpace(*req.ContactEmail)
	}
	if req.Description != nil {
		farm.Description = *req.Description
	}
	if req.IsActive != nil {
		farm.IsActive = *req.IsActive
	}
	if err := h.FarmRepo.Update(farm); err != nil {
		respondError(c, response.CodeInternal, "更新农场失败", err)
		return
	}

	response.Success(c, farm)
}

// GetAdminFarms 获取农场列表 (Admin)
func (h *Handler) GetAdminFarms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	farms, total, err := h.FarmRepo.List(page, pageSize, false)
	if err != nil {
		respondError(c, response.CodeInternal, "获取农场列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, farms, pagination)
}

// CreateProductRequest 创建预售商品请求
type CreateProductRequest struct {
	FarmID      uint     `json:"farm_id" binding:"required"`
	Slug        string   `json:"slug" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Unit        string   `json:"unit"`
	UnitPrice   float64  `json:"unit_price" binding:"required"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
}

// CreateAdminProduct 创建预售商品 (Admin)
func (h *Handler) CreateAdminProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	if req.UnitPrice <= 0 {
		respondError(c, response.CodeBadRequest, "单价必须大于 0", nil)
		return
	}

	farm, err := h.FarmRepo.GetByID(req.FarmID)
	if err != nil {
		respondError(c, response.CodeInternal, "创建商品失败", err)
		return
	}
	if farm == nil {
		respondError(c, response.CodeBadRequest, "农场不存在", nil)
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	count, err := h.ProductRepo.CountBySlug(slug, nil)
	if err != nil {
		respondError(c, response.CodeInternal, "创建商品失败", err)
		return
	}
	if count > 0 {
		respondError(c, response.CodeBadRequest, "商品标识已存在", nil)
		return
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "box"
	}
	product := &models.PreorderProduct{
		FarmID:      req.FarmID,
		Slug:        slug,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Unit:        unit,
		UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(req.UnitPrice)),
		Images:      req.Images,
		Tags:        req.Tags,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := h.ProductRepo.Create(product); err != nil {
		respondError(c, response.CodeInternal, "创建商品失败", err)
		return
	}

	response.Success(c, product)
}

// UpdateProductRequest 更新预售商品请求
type UpdateProductRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Unit        *string   `json:"unit"`
	UnitPrice   *float64  `json:"unit_price"`
	Images      *[]string `json:"images"`
	Tags        *[]string `json:"tags"`
	IsActive    *bool     `json:"is_active"`
}

// UpdateAdminProduct 更新预售商品 (Admin)
func (h *Handler) UpdateAdminProduct(c *gin.Context) {
	productID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	product, err := h.ProductRepo.GetByID(productID)
	if err != nil {
		respondError(c, response.CodeInternal, "更新商品失败", err)
		return
	}
	if product == nil {
		respondError(c, response.CodeNotFound, "商品不存在", nil)
		return
	}

	if req.Title != nil {
		product.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice <= 0 {
			respondError(c, response.CodeBadRequest, "单价必须大于 0", nil)
			return
		}
		product.UnitPrice = models.NewMoneyFromDecimal(decimal.NewFromFloat(*req.UnitPrice))
	}
	if req.Images != nil {
		product.Images = *req.Images
	}
	if req.Tags != nil {
		product.Tags = *req.Tags
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := h.ProductRepo.Update(product); err != nil {
		respondError(c, response.CodeInternal, "更新商品失败", err)
		return
	}

	response.Success(c, product)
}

// GetAdminProducts 获取预售商品列表 (Admin)
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	farmID, _ := strconv.Atoi(c.Query("farm_id"))

	products, total, err := h.ProductRepo.List(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		FarmID:   uint(farmID),
		Search:   strings.TrimSpace(c.Query("search")),
		WithFarm: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取商品列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}
