package service

import "errors"

// 服务层哨兵错误，handler 依据 errors.Is 映射响应码。
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrCustomerDisabled   = errors.New("customer disabled")
	ErrCustomerNotFound   = errors.New("customer not found")

	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")

	ErrProductNotAvailable = errors.New("product not available")
	ErrSlugExists          = errors.New("slug already exists")

	ErrLotNotFound      = errors.New("product lot not found")
	ErrLotNotActive     = errors.New("product lot not active")
	ErrLotOutOfStock    = errors.New("product lot out of stock")
	ErrInvalidOrderItem = errors.New("invalid order item")
	ErrInvalidQuantity  = errors.New("invalid quantity")

	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStatusInvalid = errors.New("order status invalid")
	ErrOrderUpdateFailed  = errors.New("order update failed")

	ErrReferralMemberNotFound  = errors.New("referral member not found")
	ErrReferralMemberExists    = errors.New("referral member already exists")
	ErrReferralMemberSuspended = errors.New("referral member suspended")
	ErrReferralCodeExists      = errors.New("referral code already exists")
	ErrSelfReferral            = errors.New("self referral not allowed")
	ErrCommissionTierMissing   = errors.New("no commission tier matches revenue")
	ErrCommissionDuplicate     = errors.New("commission already recorded for order")
	ErrReferralConfigInvalid   = errors.New("referral config invalid")

	ErrLoyaltyAccountNotFound = errors.New("loyalty account not found")

	ErrConfigInvalid = errors.New("config invalid")
)
