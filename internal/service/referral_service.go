package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"gorm.io/gorm"
)

const referralCodeLength = 8

// ReferralService 推荐归因服务
type ReferralService struct {
	referralRepo repository.ReferralRepository
	customerRepo repository.CustomerRepository
}

// NewReferralService 创建推荐归因服务
func NewReferralService(
	referralRepo repository.ReferralRepository,
	customerRepo repository.CustomerRepository,
) *ReferralService {
	return &ReferralService{
		referralRepo: referralRepo,
		customerRepo: customerRepo,
	}
}

// EnrollInput 推荐人开通输入
type EnrollInput struct {
	CustomerID uint
	Code       string
}

// EnrollMember 为客户开通推荐人档案，推荐码缺省时自动生成。
func (s *ReferralService) EnrollMember(input EnrollInput) (*models.ReferralMember, error) {
	customer, err := s.customerRepo.GetByID(input.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	existing, err := s.referralRepo.GetMemberByCustomerID(input.CustomerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReferralMemberExists
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		code, err = s.generateUniqueCode()
		if err != nil {
			return nil, err
		}
	} else {
		conflict, err := s.referralRepo.GetMemberByCode(code)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, ErrReferralCodeExists
		}
	}

	now := time.Now()
	member := &models.ReferralMember{
		CustomerID:   customer.ID,
		ReferralCode: code,
		UserEmail:    customer.Email,
		Status:       constants.ReferralMemberStatusActive,
		RevenueMonth: now.Format("2006-01"),
	}
	if err := s.referralRepo.CreateMember(member); err != nil {
		return nil, err
	}
	return member, nil
}

// GetMemberByCustomerID 查询客户的推荐人档案
func (s *ReferralService) GetMemberByCustomerID(customerID uint) (*models.ReferralMember, error) {
	member, err := s.referralRepo.GetMemberByCustomerID(customerID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrReferralMemberNotFound
	}
	return member, nil
}

// ResolveReferrer 解析订单应归属的推荐人。
// 已锁定客户始终返回既有推荐人并忽略新码；未锁定但已有归因的沿用既有归因；
// 否则按推荐码归因（大小写不敏感，仅限在业推荐人，禁止自推）。
func (s *ReferralService) ResolveReferrer(customer *models.Customer, referralCode string) (*models.ReferralMember, error) {
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	if customer.ReferralLocked || customer.ReferrerID != nil {
		if customer.ReferrerID == nil {
			return nil, nil
		}
		member, err := s.referralRepo.GetMemberByID(*customer.ReferrerID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			logger.Warnw("referrer_missing_for_attributed_customer",
				"customer_id", customer.ID,
				"referrer_id", *customer.ReferrerID,
			)
			return nil, nil
		}
		return member, nil
	}

	code := strings.TrimSpace(referralCode)
	if code == "" {
		return nil, nil
	}

	member, err := s.referralRepo.GetMemberByCode(code)
	if err != nil {
		return nil, err
	}
	if member == nil {
		logger.Infow("referral_code_unknown", "customer_id", customer.ID, "code", code)
		return nil, nil
	}
	if member.Status != constants.ReferralMemberStatusActive {
		logger.Infow("referral_code_inactive", "customer_id", customer.ID, "member_id", member.ID)
		return nil, nil
	}
	if strings.EqualFold(strings.TrimSpace(member.UserEmail), strings.TrimSpace(customer.Email)) ||
		member.CustomerID == customer.ID {
		logger.Infow("referral_self_rejected", "customer_id", customer.ID, "member_id", member.ID)
		return nil, nil
	}

	now := time.Now()
	affected, err := s.customerRepo.SetReferralAttribution(customer.ID, member.ID, member.ReferralCode, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// 并发下别的请求抢先归因，沿用已落库的归因结果。
		refreshed, err := s.customerRepo.GetByID(customer.ID)
		if err != nil {
			return nil, err
		}
		if refreshed == nil || refreshed.ReferrerID == nil {
			return nil, nil
		}
		*customer = *refreshed
		return s.referralRepo.GetMemberByID(*refreshed.ReferrerID)
	}
	if err := s.referralRepo.IncrementReferredCustomers(member.ID); err != nil {
		return nil, err
	}

	referrerID := member.ID
	customer.ReferrerID = &referrerID
	customer.ReferralCodeUsed = member.ReferralCode
	customer.IsReferredCustomer = true
	customer.ReferredAt = &now
	return member, nil
}

// LockAttributionTx 事务内锁定客户归因，首单佣金成功后调用，锁定后不可再变。
func (s *ReferralService) LockAttributionTx(tx *gorm.DB, customerID uint) error {
	_, err := s.customerRepo.WithTx(tx).LockReferral(customerID)
	return err
}

// UpdateMemberStatus 更新推荐人状态
func (s *ReferralService) UpdateMemberStatus(memberID uint, status string) error {
	status = strings.TrimSpace(status)
	if status != constants.ReferralMemberStatusActive && status != constants.ReferralMemberStatusSuspended {
		return fmt.Errorf("%w: status %s", ErrReferralConfigInvalid, status)
	}
	member, err := s.referralRepo.GetMemberByID(memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrReferralMemberNotFound
	}
	return s.referralRepo.UpdateMemberStatus(memberID, status, time.Now())
}

// UpdateMemberRateInput 推荐人费率调整输入
type UpdateMemberRateInput struct {
	MemberID          uint
	SeederRankBonus   *models.Money
	CustomRate        *models.Money
	CustomRateEnabled *bool
}

// UpdateMemberRate 调整推荐人等级加成与自定义费率
func (s *ReferralService) UpdateMemberRate(input UpdateMemberRateInput) (*models.ReferralMember, error) {
	member, err := s.referralRepo.GetMemberByID(input.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrReferralMemberNotFound
	}

	if input.SeederRankBonus != nil {
		member.SeederRankBonus = *input.SeederRankBonus
	}
	if input.CustomRate != nil {
		member.CustomCommissionRate = *input.CustomRate
	}
	if input.CustomRateEnabled != nil {
		member.CustomRateEnabled = *input.CustomRateEnabled
	}
	if err := s.referralRepo.UpdateMember(member); err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembers 查询推荐人列表
func (s *ReferralService) ListMembers(filter repository.ReferralMemberListFilter) ([]models.ReferralMember, int64, error) {
	return s.referralRepo.ListMembers(filter)
}

// ListEvents 查询佣金事件列表
func (s *ReferralService) ListEvents(filter repository.ReferralEventListFilter) ([]models.ReferralEvent, int64, error) {
	return s.referralRepo.ListEvents(filter)
}

// ListLogs 查询佣金流水列表
func (s *ReferralService) ListLogs(filter repository.CommissionLogListFilter) ([]models.CommissionLog, int64, error) {
	return s.referralRepo.ListLogs(filter)
}

func (s *ReferralService) generateUniqueCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := randReferralCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := s.referralRepo.GetMemberByCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate referral code: too many collisions")
}

// randReferralCode 生成大写字母数字推荐码，去除易混淆字符。
func randReferralCode(length int) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	result := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = alphabet[n.Int64()]
	}
	return string(result), nil
}
