package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
)

const (
	referralRateMin      = 0
	referralRateMax      = 100
	referralTiersMaxSize = 20
)

// CommissionTierBand 佣金档位区间，按 [MinRevenue, MaxRevenue) 匹配月销售额。
// MaxRevenue <= 0 表示上不封顶。
type CommissionTierBand struct {
	MinRevenue  float64 `json:"min_revenue"`
	MaxRevenue  float64 `json:"max_revenue"`
	RatePercent float64 `json:"rate"`
}

// ReferralSetting 推荐返佣配置
type ReferralSetting struct {
	Enabled bool                 `json:"enabled"`
	Tiers   []CommissionTierBand `json:"tiers"`
}

// ReferralDefaultSetting 默认推荐返佣配置（单一全区间档位）
func ReferralDefaultSetting() ReferralSetting {
	return NormalizeReferralSetting(ReferralSetting{
		Enabled: false,
		Tiers: []CommissionTierBand{
			{MinRevenue: 0, MaxRevenue: 0, RatePercent: 0},
		},
	})
}

// NormalizeReferralSetting 归一化推荐返佣配置
func NormalizeReferralSetting(setting ReferralSetting) ReferralSetting {
	tiers := make([]CommissionTierBand, 0, len(setting.Tiers))
	for _, tier := range setting.Tiers {
		tier.MinRevenue = roundReferralDecimal(tier.MinRevenue)
		tier.MaxRevenue = roundReferralDecimal(tier.MaxRevenue)
		tier.RatePercent = roundReferralDecimal(tier.RatePercent)
		if tier.MinRevenue < 0 {
			tier.MinRevenue = 0
		}
		if tier.MaxRevenue < 0 {
			tier.MaxRevenue = 0
		}
		if tier.RatePercent < referralRateMin {
			tier.RatePercent = referralRateMin
		}
		if tier.RatePercent > referralRateMax {
			tier.RatePercent = referralRateMax
		}
		tiers = append(tiers, tier)
		if len(tiers) >= referralTiersMaxSize {
			break
		}
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinRevenue < tiers[j].MinRevenue
	})
	setting.Tiers = tiers
	return setting
}

// ValidateReferralSetting 校验推荐返佣配置：档位需从 0 起步、首尾相接、末档上不封顶。
func ValidateReferralSetting(setting ReferralSetting) error {
	normalized := NormalizeReferralSetting(setting)
	if len(normalized.Tiers) == 0 {
		return fmt.Errorf("%w: 至少配置一个佣金档位", ErrReferralConfigInvalid)
	}
	if normalized.Tiers[0].MinRevenue != 0 {
		return fmt.Errorf("%w: 首个档位必须从 0 开始", ErrReferralConfigInvalid)
	}
	for i, tier := range normalized.Tiers {
		last := i == len(normalized.Tiers)-1
		if last {
			if tier.MaxRevenue > 0 {
				return fmt.Errorf("%w: 末档必须上不封顶", ErrReferralConfigInvalid)
			}
			continue
		}
		if tier.MaxRevenue <= tier.MinRevenue {
			return fmt.Errorf("%w: 档位上限必须大于下限", ErrReferralConfigInvalid)
		}
		if tier.MaxRevenue != normalized.Tiers[i+1].MinRevenue {
			return fmt.Errorf("%w: 档位区间必须连续且不重叠", ErrReferralConfigInvalid)
		}
	}
	return nil
}

// ReferralSettingToMap 将推荐返佣配置转换为 settings 存储结构
func ReferralSettingToMap(setting ReferralSetting) map[string]interface{} {
	normalized := NormalizeReferralSetting(setting)
	tiers := make([]interface{}, 0, len(normalized.Tiers))
	for _, tier := range normalized.Tiers {
		tiers = append(tiers, map[string]interface{}{
			"min_revenue": tier.MinRevenue,
			"max_revenue": tier.MaxRevenue,
			"rate":        tier.RatePercent,
		})
	}
	return map[string]interface{}{
		"enabled": normalized.Enabled,
		"tiers":   tiers,
	}
}

func referralSettingFromJSON(raw models.JSON, fallback ReferralSetting) ReferralSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if tiersRaw, ok := raw["tiers"]; ok {
		if list, ok := tiersRaw.([]interface{}); ok {
			tiers := make([]CommissionTierBand, 0, len(list))
			for _, itemRaw := range list {
				itemMap, ok := itemRaw.(map[string]interface{})
				if !ok {
					continue
				}
				var tier CommissionTierBand
				if parsed, err := parseSettingFloat(itemMap["min_revenue"]); err == nil {
					tier.MinRevenue = parsed
				}
				if parsed, err := parseSettingFloat(itemMap["max_revenue"]); err == nil {
					tier.MaxRevenue = parsed
				}
				if parsed, err := parseSettingFloat(itemMap["rate"]); err == nil {
					tier.RatePercent = parsed
				}
				tiers = append(tiers, tier)
			}
			if len(tiers) > 0 {
				result.Tiers = tiers
			}
		}
	}

	return NormalizeReferralSetting(result)
}

func normalizeReferralSettingMap(value map[string]interface{}) models.JSON {
	setting := referralSettingFromJSON(models.JSON(value), ReferralDefaultSetting())
	return models.JSON(ReferralSettingToMap(setting))
}

// GetReferralSetting 获取推荐返佣设置（优先 settings，空时回退默认）
func (s *SettingService) GetReferralSetting() (ReferralSetting, error) {
	fallback := ReferralDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyReferralConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return referralSettingFromJSON(value, fallback), nil
}

// UpdateReferralSetting 更新推荐返佣设置
func (s *SettingService) UpdateReferralSetting(setting ReferralSetting) (ReferralSetting, error) {
	normalized := NormalizeReferralSetting(setting)
	if err := ValidateReferralSetting(normalized); err != nil {
		return ReferralDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyReferralConfig, ReferralSettingToMap(normalized)); err != nil {
		return ReferralDefaultSetting(), err
	}
	return normalized, nil
}

func roundReferralDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}
