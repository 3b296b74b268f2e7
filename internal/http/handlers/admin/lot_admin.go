package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/harvestlink/internal/constants"
	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"
	"github.com/harvestlink/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateLotRequest 创建预售批次请求
type CreateLotRequest struct {
	ProductID  uint   `json:"product_id" binding:"required"`
	LotCode    string `json:"lot_code" binding:"required"`
	TotalYield int    `json:"total_yield" binding:"required"`
	Status     string `json:"status"`
	HarvestAt  string `json:"harvest_at"`
}

// CreateLot 创建预售批次 (Admin)
func (h *Handler) CreateLot(c *gin.Context) {
	var req CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	if req.TotalYield <= 0 {
		respondError(c, response.CodeBadRequest, "总产量必须大于 0", nil)
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = constants.LotStatusActive
	}
	if status != constants.LotStatusPending && status != constants.LotStatusActive {
		respondError(c, response.CodeBadRequest, "批次状态取值无效", nil)
		return
	}

	product, err := h.ProductRepo.GetByID(req.ProductID)
	if err != nil {
		respondError(c, response.CodeInternal, "创建批次失败", err)
		return
	}
	if product == nil {
		respondError(c, response.CodeBadRequest, "商品不存在", nil)
		return
	}

	lotCode := strings.ToUpper(strings.TrimSpace(req.LotCode))
	exist, err := h.LotRepo.GetByLotCode(lotCode)
	if err != nil {
		respondError(c, response.CodeInternal, "创建批次失败", err)
		return
	}
	if exist != nil {
		respondError(c, response.CodeBadRequest, "批次编号已存在", nil)
		return
	}

	lot := &models.ProductLot{
		ProductID:         req.ProductID,
		LotCode:           lotCode,
		TotalYield:        req.TotalYield,
		AvailableQuantity: req.TotalYield,
		Status:            status,
	}
	if strings.TrimSpace(req.HarvestAt) != "" {
		harvestAt, err := time.Parse("2006-01-02", strings.TrimSpace(req.HarvestAt))
		if err != nil {
			respondError(c, response.CodeBadRequest, "采收时间格式无效", nil)
			return
		}
		lot.HarvestAt = &harvestAt
	}
	if err := h.LotRepo.Create(lot); err != nil {
		respondError(c, response.CodeInternal, "创建批次失败", err)
		return
	}
	if lot.Status == constants.LotStatusActive {
		if _, err := h.ProductRepo.AdjustActiveLotCount(lot.ProductID, 1); err != nil {
			requestLog(c).Warnw("lot_active_count_adjust_failed", "lot_id", lot.ID, "error", err)
		}
	}

	response.Success(c, lot)
}

// RestockLotRequest 批次补货请求
type RestockLotRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// RestockLot 批次补货 (Admin)
func (h *Handler) RestockLot(c *gin.Context) {
	lotID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req RestockLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	lot, err := h.InventoryService.Restock(lotID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLotNotFound):
			respondError(c, response.CodeNotFound, "批次不存在", nil)
		case errors.Is(err, service.ErrInvalidQuantity):
			respondError(c, response.CodeBadRequest, "补货数量必须大于 0", nil)
		default:
			respondError(c, response.CodeInternal, "批次补货失败", err)
		}
		return
	}

	response.Success(c, lot)
}

// UpdateLotStatusRequest 更新批次状态请求
type UpdateLotStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateLotStatus 启停预售批次 (Admin)
func (h *Handler) UpdateLotStatus(c *gin.Context) {
	lotID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateLotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	status := strings.TrimSpace(req.Status)
	if status != constants.LotStatusPending && status != constants.LotStatusActive && status != constants.LotStatusClosed {
		respondError(c, response.CodeBadRequest, "批次状态取值无效", nil)
		return
	}

	lot, err := h.LotRepo.GetByID(lotID)
	if err != nil {
		respondError(c, response.CodeInternal, "更新批次状态失败", err)
		return
	}
	if lot == nil {
		respondError(c, response.CodeNotFound, "批次不存在", nil)
		return
	}
	if lot.Status == status {
		response.Success(c, lot)
		return
	}
	// 售罄状态由库存扣减自动维护，仅当补货后才会重开。
	if lot.Status == constants.LotStatusSoldOut && status == constants.LotStatusActive {
		respondError(c, response.CodeBadRequest, "售罄批次需补货后才能重新开放", nil)
		return
	}

	wasActive := lot.Status == constants.LotStatusActive
	lot.Status = status
	if err := h.LotRepo.Update(lot); err != nil {
		respondError(c, response.CodeInternal, "更新批次状态失败", err)
		return
	}

	delta := 0
	if wasActive && status != constants.LotStatusActive {
		delta = -1
	} else if !wasActive && status == constants.LotStatusActive {
		delta = 1
	}
	if delta != 0 {
		if _, err := h.ProductRepo.AdjustActiveLotCount(lot.ProductID, delta); err != nil {
			requestLog(c).Warnw("lot_active_count_adjust_failed", "lot_id", lot.ID, "error", err)
		}
	}

	response.Success(c, lot)
}

// GetAdminLots 获取批次列表 (Admin)
func (h *Handler) GetAdminLots(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	productID, _ := strconv.Atoi(c.Query("product_id"))

	lots, total, err := h.LotRepo.List(repository.ProductLotListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProductID: uint(productID),
		Status:    strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取批次列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, lots, pagination)
}

// GetAdminLot 获取批次详情 (Admin)
func (h *Handler) GetAdminLot(c *gin.Context) {
	lotID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	lot, err := h.LotRepo.GetByID(lotID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取批次详情失败", err)
		return
	}
	if lot == nil {
		respondError(c, response.CodeNotFound, "批次不存在", nil)
		return
	}

	response.Success(c, lot)
}
