package public

import (
	"strconv"
	"strings"

	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetLoyaltyAccount 获取我的积分账户
func (h *Handler) GetLoyaltyAccount(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	account, err := h.LoyaltyService.GetAccount(customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取积分账户失败", err)
		return
	}

	response.Success(c, account)
}

// GetLoyaltyTransactions 获取我的积分流水
func (h *Handler) GetLoyaltyTransactions(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	account, err := h.LoyaltyService.GetAccount(customerID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取积分账户失败", err)
		return
	}
	if account.ID == 0 {
		response.SuccessWithPage(c, []interface{}{}, response.Pagination{Page: 1, PageSize: 20})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	txns, total, err := h.LoyaltyService.ListTransactions(repository.LoyaltyTxnListFilter{
		Page:      page,
		PageSize:  pageSize,
		AccountID: account.ID,
		Type:      strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取积分流水失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, txns, pagination)
}
