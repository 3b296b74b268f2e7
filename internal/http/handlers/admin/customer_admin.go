package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/harvestlink/internal/cache"
	"github.com/harvestlink/internal/constants"
	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/repository"
	"github.com/harvestlink/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminCustomers 获取客户列表 (Admin)
func (h *Handler) GetAdminCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	referrerID, _ := strconv.Atoi(c.Query("referrer_id"))

	customers, total, err := h.CustomerRepo.List(repository.CustomerListFilter{
		Page:       page,
		PageSize:   pageSize,
		Keyword:    strings.TrimSpace(c.Query("keyword")),
		Status:     strings.TrimSpace(c.Query("status")),
		ReferrerID: uint(referrerID),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取客户列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, customers, pagination)
}

// GetAdminCustomer 获取客户详情 (Admin)
func (h *Handler) GetAdminCustomer(c *gin.Context) {
	customerID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	customer, err := h.CustomerRepo.GetByID(customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取客户详情失败", err)
		return
	}
	if customer == nil {
		respondError(c, response.CodeNotFound, "客户不存在", nil)
		return
	}

	response.Success(c, customer)
}

// UpdateCustomerStatusRequest 更新客户状态请求
type UpdateCustomerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateCustomerStatus 启停客户账号 (Admin)
func (h *Handler) UpdateCustomerStatus(c *gin.Context) {
	customerID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCustomerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	status := strings.TrimSpace(req.Status)
	if status != constants.CustomerStatusActive && status != constants.CustomerStatusDisabled {
		respondError(c, response.CodeBadRequest, "状态取值无效", nil)
		return
	}

	customer, err := h.CustomerRepo.GetByID(customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "更新客户状态失败", err)
		return
	}
	if customer == nil {
		respondError(c, response.CodeNotFound, "客户不存在", nil)
		return
	}
	if customer.Status == status {
		response.Success(c, customer)
		return
	}

	customer.Status = status
	if err := h.CustomerRepo.Update(customer); err != nil {
		respondError(c, response.CodeInternal, "更新客户状态失败", err)
		return
	}
	// 刷新认证态缓存，禁用立即对已签发 token 生效。
	if err := cache.SetCustomerAuthState(c.Request.Context(), cache.BuildCustomerAuthState(customer)); err != nil {
		requestLog(c).Warnw("customer_auth_state_refresh_failed", "customer_id", customer.ID, "error", err)
	}

	response.Success(c, customer)
}

// AdjustLoyaltyRequest 积分调整请求
type AdjustLoyaltyRequest struct {
	Points int64  `json:"points" binding:"required"`
	Remark string `json:"remark"`
}

// AdjustCustomerLoyalty 管理员调整客户积分 (Admin)
func (h *Handler) AdjustCustomerLoyalty(c *gin.Context) {
	customerID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req AdjustLoyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	customer, err := h.CustomerRepo.GetByID(customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "调整积分失败", err)
		return
	}
	if customer == nil {
		respondError(c, response.CodeNotFound, "客户不存在", nil)
		return
	}

	account, err := h.LoyaltyService.AdminAdjust(customerID, req.Points, strings.TrimSpace(req.Remark))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoyaltyAccountNotFound):
			respondError(c, response.CodeBadRequest, "客户尚无积分账户", nil)
		case errors.Is(err, service.ErrInvalidQuantity):
			respondError(c, response.CodeBadRequest, "积分调整数值无效", nil)
		default:
			respondError(c, response.CodeInternal, "调整积分失败", err)
		}
		return
	}

	response.Success(c, account)
}
