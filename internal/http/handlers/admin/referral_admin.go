package admin

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"
	"github.com/harvestlink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetReferralSetting 获取推荐返佣配置
func (h *Handler) GetReferralSetting(c *gin.Context) {
	setting, err := h.SettingService.GetReferralSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "获取返佣配置失败", err)
		return
	}
	response.Success(c, setting)
}

// UpdateReferralSettingRequest 更新返佣配置请求
type UpdateReferralSettingRequest struct {
	Enabled bool                        `json:"enabled"`
	Tiers   []ReferralTierConfigPayload `json:"tiers" binding:"required"`
}

// ReferralTierConfigPayload 佣金档位配置
type ReferralTierConfigPayload struct {
	MinRevenue  float64 `json:"min_revenue"`
	MaxRevenue  float64 `json:"max_revenue"`
	RatePercent float64 `json:"rate"`
}

// UpdateReferralSetting 更新推荐返佣配置
func (h *Handler) UpdateReferralSetting(c *gin.Context) {
	var req UpdateReferralSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	tiers := make([]service.CommissionTierBand, 0, len(req.Tiers))
	for _, tier := range req.Tiers {
		tiers = append(tiers, service.CommissionTierBand{
			MinRevenue:  tier.MinRevenue,
			MaxRevenue:  tier.MaxRevenue,
			RatePercent: tier.RatePercent,
		})
	}

	setting, err := h.SettingService.UpdateReferralSetting(service.ReferralSetting{
		Enabled: req.Enabled,
		Tiers:   tiers,
	})
	if err != nil {
		if errors.Is(err, service.ErrReferralConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "更新返佣配置失败", err)
		return
	}

	response.Success(c, setting)
}

// GetReferralMembers 获取推荐人列表 (Admin)
func (h *Handler) GetReferralMembers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	members, total, err := h.ReferralService.ListMembers(repository.ReferralMemberListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取推荐人列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, members, pagination)
}

// UpdateReferralMemberStatusRequest 更新推荐人状态请求
type UpdateReferralMemberStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateReferralMemberStatus 启停推荐人 (Admin)
func (h *Handler) UpdateReferralMemberStatus(c *gin.Context) {
	memberID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateReferralMemberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.ReferralService.UpdateMemberStatus(memberID, req.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrReferralMemberNotFound):
			respondError(c, response.CodeNotFound, "推荐人不存在", nil)
		case errors.Is(err, service.ErrReferralConfigInvalid):
			respondError(c, response.CodeBadRequest, "状态取值无效", nil)
		default:
			respondError(c, response.CodeInternal, "更新推荐人状态失败", err)
		}
		return
	}

	response.Success(c, gin.H{"updated": true})
}

// UpdateReferralMemberRateRequest 调整推荐人费率请求
type UpdateReferralMemberRateRequest struct {
	SeederRankBonus   *float64 `json:"seeder_rank_bonus"`
	CustomRate        *float64 `json:"custom_rate"`
	CustomRateEnabled *bool    `json:"custom_rate_enabled"`
}

// UpdateReferralMemberRate 调整推荐人等级加成与自定义费率 (Admin)
func (h *Handler) UpdateReferralMemberRate(c *gin.Context) {
	memberID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req UpdateReferralMemberRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	input := service.UpdateMemberRateInput{
		MemberID:          memberID,
		CustomRateEnabled: req.CustomRateEnabled,
	}
	if req.SeederRankBonus != nil {
		if *req.SeederRankBonus < 0 || *req.SeederRankBonus > 100 {
			respondError(c, response.CodeBadRequest, "等级加成取值无效", nil)
			return
		}
		bonus := models.NewMoneyFromDecimal(decimal.NewFromFloat(*req.SeederRankBonus))
		input.SeederRankBonus = &bonus
	}
	if req.CustomRate != nil {
		if *req.CustomRate < 0 || *req.CustomRate > 100 {
			respondError(c, response.CodeBadRequest, "自定义费率取值无效", nil)
			return
		}
		rate := models.NewMoneyFromDecimal(decimal.NewFromFloat(*req.CustomRate))
		input.CustomRate = &rate
	}

	member, err := h.ReferralService.UpdateMemberRate(input)
	if err != nil {
		if errors.Is(err, service.ErrReferralMemberNotFound) {
			respondError(c, response.CodeNotFound, "推荐人不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "调整推荐人费率失败", err)
		return
	}

	response.Success(c, member)
}

// GetAdminReferralEvents 获取佣金事件列表 (Admin)
func (h *Handler) GetAdminReferralEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	memberID, _ := strconv.Atoi(c.Query("member_id"))
	orderID, _ := strconv.Atoi(c.Query("order_id"))

	events, total, err := h.ReferralService.ListEvents(repository.ReferralEventListFilter{
		Page:             page,
		PageSize:         pageSize,
		ReferralMemberID: uint(memberID),
		OrderID:          uint(orderID),
		Status:           strings.TrimSpace(c.Query("status")),
		EventType:        strings.TrimSpace(c.Query("event_type")),
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

// GetAdminCommissionLogs 获取佣金流水列表 (Admin)
func (h *Handler) GetAdminCommissionLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	memberID, _ := strconv.Atoi(c.Query("member_id"))

	logs, total, err := h.ReferralService.ListLogs(repository.CommissionLogListFilter{
		Page:             page,
		PageSize:         pageSize,
		ReferralMemberID: uint(memberID),
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

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "路径参数无效", nil)
		return 0, false
	}
	return uint(id), true
}
