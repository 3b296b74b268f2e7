package public

import (
	"strconv"
	"strings"

	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetFarms 获取农场列表
func (h *Handler) GetFarms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	farms, total, err := h.FarmRepo.List(page, pageSize, true)
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

// GetFarm 获取农场详情
func (h *Handler) GetFarm(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	farm, err := h.FarmRepo.GetBySlug(slug)
	if err != nil {
		respondError(c, response.CodeInternal, "获取农场详情失败", err)
		return
	}
	if farm == nil || !farm.IsActive {
		respondError(c, response.CodeNotFound, "农场不存在", nil)
		return
	}

	response.Success(c, farm)
}

// GetProducts 获取预售商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	farmID, _ := strconv.Atoi(c.Query("farm_id"))
	search := c.Query("search")

	products, total, err := h.ProductRepo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		FarmID:     uint(farmID),
		Search:     search,
		OnlyActive: true,
		WithFarm:   true,
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

// GetProduct 获取预售商品详情（含批次）
func (h *Handler) GetProduct(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	product, err := h.ProductRepo.GetBySlug(slug, true)
	if err != nil {
		respondError(c, response.CodeInternal, "获取商品详情失败", err)
		return
	}
	if product == nil {
		respondError(c, response.CodeNotFound, "商品不存在", nil)
		return
	}

	response.Success(c, product)
}
