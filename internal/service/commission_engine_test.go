package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func standardTestTiers() []CommissionTierBand {
	return []CommissionTierBand{
		{MinRevenue: 0, MaxRevenue: 10000, RatePercent: 2},
		{MinRevenue: 10000, MaxRevenue: 0, RatePercent: 3},
	}
}

func TestCalculateCommissionMatchesPostOrderRevenue(t *testing.T) {
	// 本单计入后跨过档位边界，应按新档位费率计算。
	result, err := CalculateCommission(CommissionParams{
		OrderAmount:        decimal.NewFromInt(500),
		MonthRevenueBefore: decimal.NewFromInt(9800),
		Tiers:              standardTestTiers(),
	})
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	if !result.NewMonthRevenue.Equal(decimal.NewFromInt(10300)) {
		t.Fatalf("new month revenue want 10300 got %s", result.NewMonthRevenue)
	}
	if result.TierLabel != "[10000.00,+inf)" {
		t.Fatalf("tier label want [10000.00,+inf) got %s", result.TierLabel)
	}
	if !result.RatePercent.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("rate want 3 got %s", result.RatePercent)
	}
	if !result.Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("amount want 15 got %s", result.Amount)
	}
}

func TestCalculateCommissionLowTier(t *testing.T) {
	result, err := CalculateCommission(CommissionParams{
		OrderAmount:        decimal.NewFromInt(100),
		MonthRevenueBefore: decimal.Zero,
		Tiers:              standardTestTiers(),
	})
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	if result.TierLabel != "[0.00,10000.00)" {
		t.Fatalf("tier label want [0.00,10000.00) got %s", result.TierLabel)
	}
	if !result.Amount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("amount want 2 got %s", result.Amount)
	}
}

func TestCalculateCommissionSeederRankBonus(t *testing.T) {
	result, err := CalculateCommission(CommissionParams{
		OrderAmount:        decimal.NewFromInt(1000),
		MonthRevenueBefore: decimal.Zero,
		Tiers:              standardTestTiers(),
		SeederRankBonus:    decimal.NewFromFloat(1.5),
	})
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	if !result.RatePercent.Equal(decimal.NewFromFloat(3.5)) {
		t.Fatalf("rate want 3.5 got %s", result.RatePercent)
	}
	if !result.Amount.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("amount want 35 got %s", result.Amount)
	}
}

func TestCalculateCommissionCustomRateReplacesTier(t *testing.T) {
	// 自定义费率启用时整体取代档位费率与等级加成。
	result, err := CalculateCommission(CommissionParams{
		OrderAmount:        decimal.NewFromInt(1000),
		MonthRevenueBefore: decimal.NewFromInt(50000),
		Tiers:              standardTestTiers(),
		SeederRankBonus:    decimal.NewFromInt(2),
		CustomRate:         decimal.NewFromInt(10),
		CustomRateEnabled:  true,
	})
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	if result.TierLabel != "custom" {
		t.Fatalf("tier label want custom got %s", result.TierLabel)
	}
	if !result.RatePercent.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("rate want 10 got %s", result.RatePercent)
	}
	if !result.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("amount want 100 got %s", result.Amount)
	}
}

func TestCalculateCommissionNoMatchingTier(t *testing.T) {
	_, err := CalculateCommission(CommissionParams{
		OrderAmount:        decimal.NewFromInt(500),
		MonthRevenueBefore: decimal.NewFromInt(2000),
		Tiers: []CommissionTierBand{
			{MinRevenue: 0, MaxRevenue: 1000, RatePercent: 2},
		},
	})
	if !errors.Is(err, ErrCommissionTierMissing) {
		t.Fatalf("want ErrCommissionTierMissing got %v", err)
	}
}

func TestCalculateCommissionRoundsToCents(t *testing.T) {
	result, err := CalculateCommission(CommissionParams{
		OrderAmount:        decimal.NewFromFloat(33.33),
		MonthRevenueBefore: decimal.Zero,
		Tiers:              standardTestTiers(),
	})
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	// 33.33 * 2% = 0.6666，四舍五入到分。
	if !result.Amount.Equal(decimal.NewFromFloat(0.67)) {
		t.Fatalf("amount want 0.67 got %s", result.Amount)
	}
}

func TestMatchCommissionTierBoundaries(t *testing.T) {
	tiers := standardTestTiers()

	tier, ok := matchCommissionTier(tiers, decimal.NewFromInt(10000))
	if !ok {
		t.Fatalf("boundary revenue should match unbounded tier")
	}
	if tier.RatePercent != 3 {
		t.Fatalf("boundary should land in upper tier, got rate %v", tier.RatePercent)
	}

	tier, ok = matchCommissionTier(tiers, decimal.NewFromFloat(9999.99))
	if !ok {
		t.Fatalf("revenue below boundary should match lower tier")
	}
	if tier.RatePercent != 2 {
		t.Fatalf("below boundary should land in lower tier, got rate %v", tier.RatePercent)
	}
}
