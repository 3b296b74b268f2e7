package admin

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/repository"
	"github.com/harvestlink/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminOrders 获取订单列表 (Admin)
func (h *Handler) GetAdminOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	customerID, _ := strconv.Atoi(c.Query("customer_id"))
	referrerID, _ := strconv.Atoi(c.Query("referrer_id"))

	orders, total, err := h.OrderRepo.ListAdmin(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		CustomerID:    uint(customerID),
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		OrderNo:       strings.TrimSpace(c.Query("order_no")),
		ReferrerID:    uint(referrerID),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取订单列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, orders, pagination)
}

// GetAdminOrder 获取订单详情 (Admin)
func (h *Handler) GetAdminOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderRepo.GetByID(orderID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取订单详情失败", err)
		return
	}
	if order == nil {
		respondError(c, response.CodeNotFound, "订单不存在", nil)
		return
	}

	response.Success(c, order)
}

// RefundOrderRequest 订单退款请求
type RefundOrderRequest struct {
	Reason string `json:"reason"`
}

// RefundOrder 订单退款：回滚批次库存并冲正推荐佣金 (Admin)
func (h *Handler) RefundOrder(c *gin.Context) {
	orderID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req RefundOrderRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.SettlementService.HandleOrderRefunded(orderID, strings.TrimSpace(req.Reason)); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "订单不存在", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "订单状态不允许退款", nil)
		default:
			respondError(c, response.CodeInternal, "订单退款失败", err)
		}
		return
	}

	order, err := h.OrderRepo.GetByID(orderID)
	if err != nil || order == nil {
		response.Success(c, gin.H{"refunded": true})
		return
	}

	response.Success(c, order)
}
