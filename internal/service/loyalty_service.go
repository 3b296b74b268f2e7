package service

import (
	"time"

	"github.com/harvestlink/internal/config"
	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoyaltyService 积分服务，订单结算后按金额折算积分入账。
type LoyaltyService struct {
	cfg         *config.LoyaltyConfig
	loyaltyRepo repository.LoyaltyRepository
}

// NewLoyaltyService 创建积分服务
func NewLoyaltyService(cfg *config.LoyaltyConfig, loyaltyRepo repository.LoyaltyRepository) *LoyaltyService {
	return &LoyaltyService{
		cfg:         cfg,
		loyaltyRepo: loyaltyRepo,
	}
}

// AwardPoints 按订单金额发放积分，同一订单只发放一次。
func (s *LoyaltyService) AwardPoints(customerID, orderID uint, amount models.Money) error {
	if s.cfg != nil && !s.cfg.Enabled {
		return nil
	}
	points := s.resolvePoints(amount)
	if points <= 0 {
		return nil
	}

	return s.loyaltyRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.loyaltyRepo.WithTx(tx)

		existing, err := repo.GetTransactionByOrderAndType(orderID, constants.LoyaltyTxnTypeOrderAward)
		if err != nil {
			return err
		}
		if existing != nil {
			logger.Infow("loyalty_award_skipped_duplicate", "order_id", orderID, "customer_id", customerID)
			return nil
		}

		account, err := repo.GetAccountByCustomerIDForUpdate(customerID)
		if err != nil {
			return err
		}
		if account == nil {
			account = &models.LoyaltyAccount{CustomerID: customerID}
			if err := repo.CreateAccount(account); err != nil {
				return err
			}
		}

		balanceBefore := account.PointsBalance
		account.PointsBalance += points
		account.TotalEarned += points
		if err := repo.UpdateAccount(account); err != nil {
			return err
		}

		orderRef := orderID
		return repo.CreateTransaction(&models.LoyaltyTransaction{
			AccountID:     account.ID,
			OrderID:       &orderRef,
			Type:          constants.LoyaltyTxnTypeOrderAward,
			Points:        points,
			BalanceBefore: balanceBefore,
			BalanceAfter:  account.PointsBalance,
			Remark:        "order settled",
			CreatedAt:     time.Now(),
		})
	})
}

// AdminAdjust 管理员手工调整积分，正数加负数减，余额不足时拒绝。
func (s *LoyaltyService) AdminAdjust(customerID uint, points int64, remark string) (*models.LoyaltyAccount, error) {
	if points == 0 {
		return nil, ErrInvalidQuantity
	}

	var adjusted *models.LoyaltyAccount
	err := s.loyaltyRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.loyaltyRepo.WithTx(tx)

		account, err := repo.GetAccountByCustomerIDForUpdate(customerID)
		if err != nil {
			return err
		}
		if account == nil {
			if points < 0 {
				return ErrLoyaltyAccountNotFound
			}
			account = &models.LoyaltyAccount{CustomerID: customerID}
			if err := repo.CreateAccount(account); err != nil {
				return err
			}
		}
		if points < 0 && account.PointsBalance+points < 0 {
			return ErrInvalidQuantity
		}

		balanceBefore := account.PointsBalance
		account.PointsBalance += points
		if points > 0 {
			account.TotalEarned += points
		}
		if err := repo.UpdateAccount(account); err != nil {
			return err
		}

		if err := repo.CreateTransaction(&models.LoyaltyTransaction{
			AccountID:     account.ID,
			Type:          constants.LoyaltyTxnTypeAdminAdjust,
			Points:        points,
			BalanceBefore: balanceBefore,
			BalanceAfter:  account.PointsBalance,
			Remark:        remark,
			CreatedAt:     time.Now(),
		}); err != nil {
			return err
		}
		adjusted = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

// GetAccount 查询积分账户，不存在时返回零值账户。
func (s *LoyaltyService) GetAccount(customerID uint) (*models.LoyaltyAccount, error) {
	account, err := s.loyaltyRepo.GetAccountByCustomerID(customerID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return &models.LoyaltyAccount{CustomerID: customerID}, nil
	}
	return account, nil
}

// ListTransactions 查询积分流水
func (s *LoyaltyService) ListTransactions(filter repository.LoyaltyTxnListFilter) ([]models.LoyaltyTransaction, int64, error) {
	return s.loyaltyRepo.ListTransactions(filter)
}

func (s *LoyaltyService) resolvePoints(amount models.Money) int64 {
	perUnit := decimal.NewFromInt(1)
	if s.cfg != nil && s.cfg.PointsPerUnit > 0 {
		perUnit = decimal.NewFromFloat(s.cfg.PointsPerUnit)
	}
	return amount.Decimal.Mul(perUnit).Floor().IntPart()
}
