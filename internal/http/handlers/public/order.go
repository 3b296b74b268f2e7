package public

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

// CheckoutItemRequest 下单条目
type CheckoutItemRequest struct {
	LotID    uint `json:"lot_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required"`
}

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	Items        []CheckoutItemRequest `json:"items" binding:"required"`
	ReferralCode string                `json:"referral_code"`
	Remark       string                `json:"remark"`
}

// CreateOrder 创建预售订单
func (h *Handler) CreateOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	items := make([]service.CheckoutItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CheckoutItemInput{
			LotID:    item.LotID,
			Quantity: item.Quantity,
		})
	}

	order, err := h.SettlementService.PlaceOrder(service.CheckoutInput{
		CustomerID:   customerID,
		Items:        items,
		ReferralCode: req.ReferralCode,
		Remark:       req.Remark,
		ClientIP:     c.ClientIP(),
	})
	if err != nil {
		respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "创建订单失败")
		return
	}

	response.Success(c, order)
}

// PayOrder 确认支付并触发结算
func (h *Handler) PayOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.OrderRepo.GetByIDAndCustomer(orderID, customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取订单失败", err)
		return
	}
	if order == nil {
		respondError(c, response.CodeNotFound, "订单不存在", nil)
		return
	}

	if err := h.SettlementService.MarkOrderPaid(order.ID); err != nil {
		respondWithMappedError(c, err, orderAccessErrorRules, response.CodeInternal, "订单结算失败")
		return
	}

	settled, err := h.OrderRepo.GetByID(order.ID)
	if err != nil || settled == nil {
		response.Success(c, gin.H{"paid": true})
		return
	}
	response.Success(c, settled)
}

// GetMyOrders 获取我的订单列表
func (h *Handler) GetMyOrders(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))

	orders, total, err := h.OrderRepo.ListByCustomer(repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		Status:     status,
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

// GetMyOrder 获取我的订单详情
func (h *Handler) GetMyOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.OrderRepo.GetByIDAndCustomer(orderID, customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取订单失败", err)
		return
	}
	if order == nil {
		respondError(c, response.CodeNotFound, "订单不存在", nil)
		return
	}

	response.Success(c, order)
}

// CancelMyOrder 取消待支付订单
func (h *Handler) CancelMyOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.SettlementService.CancelOrder(orderID, customerID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "订单不存在", nil)
			return
		}
		respondWithMappedError(c, err, orderAccessErrorRules, response.CodeInternal, "取消订单失败")
		return
	}

	response.Success(c, gin.H{"canceled": true})
}

func parseOrderID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return 0, false
	}
	return uint(id), true
}
