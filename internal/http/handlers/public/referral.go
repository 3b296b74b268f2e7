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

// ReferralEnrollRequest 开通推荐人请求
type ReferralEnrollRequest struct {
	Code string `json:"code"`
}

// EnrollReferral 开通推荐人档案
func (h *Handler) EnrollReferral(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	// 请求体可省略，省略时自动生成推荐码。
	var req ReferralEnrollRequest
	_ = c.ShouldBindJSON(&req)

	member, err := h.ReferralService.EnrollMember(service.EnrollInput{
		CustomerID: customerID,
		Code:       req.Code,
	})
	if err != nil {
		respondWithMappedError(c, err, referralEnrollErrorRules, response.CodeInternal, "开通推荐人失败")
		return
	}

	response.Success(c, member)
}

// GetReferralDashboard 获取我的推荐人概览
func (h *Handler) GetReferralDashboard(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	member, err := h.ReferralService.GetMemberByCustomerID(customerID)
	if err != nil {
		if errors.Is(err, service.ErrReferralMemberNotFound) {
			respondError(c, response.CodeNotFound, "尚未开通推荐人", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取推荐人信息失败", err)
		return
	}

	response.Success(c, gin.H{
		"member": member,
		"summary": gin.H{
			"referral_code":            member.ReferralCode,
			"current_month_revenue":    member.CurrentMonthRevenue,
			"revenue_month":            member.RevenueMonth,
			"total_referral_revenue":   member.TotalReferralRevenue,
			"unpaid_commission":        member.UnpaidCommission,
			"total_referred_customers": member.TotalReferredCustomers,
		},
	})
}

// GetReferralEvents 获取我的佣金事件列表
func (h *Handler) GetReferralEvents(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	member, err := h.ReferralService.GetMemberByCustomerID(customerID)
	if err != nil {
		if errors.Is(err, service.ErrReferralMemberNotFound) {
			respondError(c, response.CodeNotFound, "尚未开通推荐人", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取推荐人信息失败", err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	events, total, err := h.ReferralService.ListEvents(repository.ReferralEventListFilter{
		Page:             page,
		PageSize:         pageSize,
		ReferralMemberID: member.ID,
		Status:           strings.TrimSpace(c.Query("status")),
		PeriodMonth:      strings.TrimSpace(c.Query("period_month")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取佣金事件失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, events, pagination)
}

// GetReferralLogs 获取我的佣金流水
func (h *Handler) GetReferralLogs(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	member, err := h.ReferralService.GetMemberByCustomerID(customerID)
	if err != nil {
		if errors.Is(err, service.ErrReferralMemberNotFound) {
			respondError(c, response.CodeNotFound, "尚未开通推荐人", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取推荐人信息失败", err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	logs, total, err := h.ReferralService.ListLogs(repository.CommissionLogListFilter{
		Page:             page,
		PageSize:         pageSize,
		ReferralMemberID: member.ID,
		ChangeType:       strings.TrimSpace(c.Query("change_type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取佣金流水失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, logs, pagination)
}
