package service

import (
	"errors"
	"time"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ledgerMaxAttempts   = 3
	ledgerRetryBackoff  = 100 * time.Millisecond
	ledgerTriggerSystem = "order_settlement"
)

// CommissionLedger 佣金账本服务，负责入账与冲销的原子落库。
type CommissionLedger struct {
	referralRepo repository.ReferralRepository
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	settingSvc   *SettingService
}

// NewCommissionLedger 创建佣金账本服务
func NewCommissionLedger(
	referralRepo repository.ReferralRepository,
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	settingSvc *SettingService,
) *CommissionLedger {
	return &CommissionLedger{
		referralRepo: referralRepo,
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		settingSvc:   settingSvc,
	}
}

// ApplyEarnInput 佣金入账输入
type ApplyEarnInput struct {
	MemberID    uint
	OrderID     uint
	CustomerID  uint
	OrderAmount models.Money
	EventType   string
	FirstOrder  bool
}

// ApplyEarn 佣金入账：同一事务内写事件、推荐人余额、流水与订单结算标记。
// 瞬时存储错误做有限重试，业务性失败（无匹配档位、重复入账）直接返回。
func (l *CommissionLedger) ApplyEarn(input ApplyEarnInput) (*models.ReferralEvent, error) {
	setting, err := l.settingSvc.GetReferralSetting()
	if err != nil {
		return nil, err
	}

	var event *models.ReferralEvent
	var lastErr error
	for attempt := 1; attempt <= ledgerMaxAttempts; attempt++ {
		event, lastErr = l.applyEarnOnce(input, setting)
		if lastErr == nil {
			return event, nil
		}
		if isLedgerBusinessError(lastErr) {
			return nil, lastErr
		}
		logger.Warnw("commission_apply_retry",
			"order_id", input.OrderID,
			"member_id", input.MemberID,
			"attempt", attempt,
			"error", lastErr,
		)
		time.Sleep(ledgerRetryBackoff * time.Duration(attempt))
	}
	return nil, lastErr
}

func (l *CommissionLedger) applyEarnOnce(input ApplyEarnInput, setting ReferralSetting) (*models.ReferralEvent, error) {
	var created *models.ReferralEvent

	err := l.referralRepo.Transaction(func(tx *gorm.DB) error {
		repo := l.referralRepo.WithTx(tx)

		member, err := repo.GetMemberByIDForUpdate(input.MemberID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrReferralMemberNotFound
		}
		if member.Status != constants.ReferralMemberStatusActive {
			return ErrReferralMemberSuspended
		}

		existing, err := repo.GetEventByMemberAndOrder(input.MemberID, input.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrCommissionDuplicate
		}

		now := time.Now()
		period := now.Format("2006-01")

		// 月销售额按月惰性清零：跨月后首笔入账前归零。
		monthRevenueBefore := member.CurrentMonthRevenue.Decimal
		if member.RevenueMonth != period {
			monthRevenueBefore = decimal.Zero
		}

		result, err := CalculateCommission(CommissionParams{
			OrderAmount:        input.OrderAmount.Decimal,
			MonthRevenueBefore: monthRevenueBefore,
			Tiers:              setting.Tiers,
			SeederRankBonus:    member.SeederRankBonus.Decimal,
			CustomRate:         member.CustomCommissionRate.Decimal,
			CustomRateEnabled:  member.CustomRateEnabled,
		})
		if err != nil {
			return err
		}

		event := &models.ReferralEvent{
			ReferralMemberID: member.ID,
			OrderID:          input.OrderID,
			CustomerID:       input.CustomerID,
			EventType:        input.EventType,
			OrderAmount:      input.OrderAmount,
			CommissionTier:   result.TierLabel,
			CommissionRate:   models.NewMoneyFromDecimal(result.RatePercent),
			CommissionAmount: models.NewMoneyFromDecimal(result.Amount),
			Status:           constants.ReferralEventStatusCalculated,
			PeriodMonth:      period,
		}
		if err := repo.CreateEvent(event); err != nil {
			return err
		}

		balanceBefore := member.UnpaidCommission.Decimal
		balanceAfter := balanceBefore.Add(result.Amount)

		member.UnpaidCommission = models.NewMoneyFromDecimal(balanceAfter)
		member.TotalReferralRevenue = models.NewMoneyFromDecimal(member.TotalReferralRevenue.Decimal.Add(input.OrderAmount.Decimal))
		member.CurrentMonthRevenue = models.NewMoneyFromDecimal(result.NewMonthRevenue)
		member.RevenueMonth = period
		if err := repo.UpdateMember(member); err != nil {
			return err
		}

		eventID := event.ID
		orderID := input.OrderID
		if err := repo.CreateLog(&models.CommissionLog{
			ReferralMemberID: member.ID,
			EventID:          &eventID,
			OrderID:          &orderID,
			ChangeType:       constants.CommissionChangeEarned,
			AffectedAmount:   models.NewMoneyFromDecimal(result.Amount),
			BalanceBefore:    models.NewMoneyFromDecimal(balanceBefore),
			BalanceAfter:     models.NewMoneyFromDecimal(balanceAfter),
			TriggeredBy:      ledgerTriggerSystem,
			Reason:           "commission earned",
		}); err != nil {
			return err
		}

		affected, err := l.orderRepo.WithTx(tx).MarkCommissionCalculated(input.OrderID, member.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCommissionDuplicate
		}

		// 首单佣金成功后永久锁定客户归因。
		if input.FirstOrder {
			if _, err := l.customerRepo.WithTx(tx).LockReferral(input.CustomerID); err != nil {
				return err
			}
		}

		created = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReverseResult 佣金冲销结果
type ReverseResult struct {
	Reversed bool
	Event    *models.ReferralEvent
}

// ReverseEarn 佣金冲销：未入账或已冲销的订单为无害空操作。
// 余额不足以全额扣回时夹逼到零并记录差额。
func (l *CommissionLedger) ReverseEarn(orderID uint, reason string) (ReverseResult, error) {
	var result ReverseResult

	err := l.referralRepo.Transaction(func(tx *gorm.DB) error {
		repo := l.referralRepo.WithTx(tx)

		event, err := repo.GetEventByOrderForUpdate(orderID)
		if err != nil {
			return err
		}
		if event == nil || event.Status == constants.ReferralEventStatusReversed {
			result = ReverseResult{Reversed: false}
			return nil
		}

		member, err := repo.GetMemberByIDForUpdate(event.ReferralMemberID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrReferralMemberNotFound
		}

		now := time.Now()
		event.Status = constants.ReferralEventStatusReversed
		event.ReversedAt = &now
		event.ReverseReason = reason
		if err := repo.UpdateEvent(event); err != nil {
			return err
		}

		balanceBefore := member.UnpaidCommission.Decimal
		deduction := event.CommissionAmount.Decimal
		if deduction.GreaterThan(balanceBefore) {
			logger.Warnw("commission_reverse_clamped",
				"order_id", orderID,
				"member_id", member.ID,
				"balance", balanceBefore.StringFixed(2),
				"commission", deduction.StringFixed(2),
			)
			deduction = balanceBefore
		}
		balanceAfter := balanceBefore.Sub(deduction)

		member.UnpaidCommission = models.NewMoneyFromDecimal(balanceAfter)
		if err := repo.UpdateMember(member); err != nil {
			return err
		}

		eventID := event.ID
		orderRef := orderID
		if err := repo.CreateLog(&models.CommissionLog{
			ReferralMemberID: member.ID,
			EventID:          &eventID,
			OrderID:          &orderRef,
			ChangeType:       constants.CommissionChangeReversed,
			AffectedAmount:   models.NewMoneyFromDecimal(deduction),
			BalanceBefore:    models.NewMoneyFromDecimal(balanceBefore),
			BalanceAfter:     models.NewMoneyFromDecimal(balanceAfter),
			TriggeredBy:      ledgerTriggerSystem,
			Reason:           reason,
		}); err != nil {
			return err
		}

		result = ReverseResult{Reversed: true, Event: event}
		return nil
	})
	if err != nil {
		return ReverseResult{}, err
	}
	return result, nil
}

func isLedgerBusinessError(err error) bool {
	return errors.Is(err, ErrCommissionTierMissing) ||
		errors.Is(err, ErrCommissionDuplicate) ||
		errors.Is(err, ErrReferralMemberNotFound) ||
		errors.Is(err, ErrReferralMemberSuspended)
}
