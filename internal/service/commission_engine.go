package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CommissionParams 佣金计算入参
type CommissionParams struct {
	OrderAmount        decimal.Decimal
	MonthRevenueBefore decimal.Decimal
	Tiers              []CommissionTierBand
	SeederRankBonus    decimal.Decimal
	CustomRate         decimal.Decimal
	CustomRateEnabled  bool
}

// CommissionResult 佣金计算结果
type CommissionResult struct {
	NewMonthRevenue decimal.Decimal
	TierLabel       string
	RatePercent     decimal.Decimal
	Amount          decimal.Decimal
}

// CalculateCommission 计算单笔订单佣金。
// 档位按计入本单后的月销售额匹配左闭右开区间；自定义费率启用时整体取代档位费率与等级加成。
func CalculateCommission(params CommissionParams) (CommissionResult, error) {
	newMonthRevenue := params.MonthRevenueBefore.Add(params.OrderAmount)

	var rate decimal.Decimal
	var tierLabel string
	if params.CustomRateEnabled {
		rate = params.CustomRate
		tierLabel = "custom"
	} else {
		tier, ok := matchCommissionTier(params.Tiers, newMonthRevenue)
		if !ok {
			return CommissionResult{}, fmt.Errorf("%w: month revenue %s", ErrCommissionTierMissing, newMonthRevenue.StringFixed(2))
		}
		rate = decimal.NewFromFloat(tier.RatePercent).Add(params.SeederRankBonus)
		tierLabel = commissionTierLabel(tier)
	}

	amount := params.OrderAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	return CommissionResult{
		NewMonthRevenue: newMonthRevenue,
		TierLabel:       tierLabel,
		RatePercent:     rate,
		Amount:          amount,
	}, nil
}

// matchCommissionTier 匹配 [MinRevenue, MaxRevenue) 区间，MaxRevenue <= 0 视为无上限。
func matchCommissionTier(tiers []CommissionTierBand, revenue decimal.Decimal) (CommissionTierBand, bool) {
	for _, tier := range tiers {
		min := decimal.NewFromFloat(tier.MinRevenue)
		if revenue.LessThan(min) {
			continue
		}
		if tier.MaxRevenue <= 0 {
			return tier, true
		}
		max := decimal.NewFromFloat(tier.MaxRevenue)
		if revenue.LessThan(max) {
			return tier, true
		}
	}
	return CommissionTierBand{}, false
}

func commissionTierLabel(tier CommissionTierBand) string {
	if tier.MaxRevenue <= 0 {
		return fmt.Sprintf("[%.2f,+inf)", tier.MinRevenue)
	}
	return fmt.Sprintf("[%.2f,%.2f)", tier.MinRevenue, tier.MaxRevenue)
}
