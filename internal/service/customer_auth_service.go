package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/harvestlink/internal/cache"
	"github.com/harvestlink/internal/config"
	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CustomerAuthService 客户认证服务
type CustomerAuthService struct {
	cfg          *config.Config
	customerRepo repository.CustomerRepository
	referralSvc  *ReferralService
}

// NewCustomerAuthService 创建客户认证服务
func NewCustomerAuthService(cfg *config.Config, customerRepo repository.CustomerRepository, referralSvc *ReferralService) *CustomerAuthService {
	return &CustomerAuthService{
		cfg:          cfg,
		customerRepo: customerRepo,
		referralSvc:  referralSvc,
	}
}

// CustomerJWTClaims 客户 JWT 声明
type CustomerJWTClaims struct {
	CustomerID   uint   `json:"customer_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateCustomerJWT 生成客户 JWT Token
func (s *CustomerAuthService) GenerateCustomerJWT(customer *models.Customer, expireHours int) (string, time.Time, error) {
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = resolveCustomerJWTExpireHours(s.cfg.CustomerJWT)
	}
	expiresAt := time.Now().Add(time.Duration(resolvedHours) * time.Hour)
	claims := CustomerJWTClaims{
		CustomerID:   customer.ID,
		Email:        customer.Email,
		TokenVersion: customer.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.CustomerJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseCustomerJWT 解析客户 JWT Token
func (s *CustomerAuthService) ParseCustomerJWT(tokenString string) (*CustomerJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &CustomerJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.CustomerJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomerJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// RegisterInput 客户注册输入
type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	Phone        string
	ReferralCode string
}

// Register 客户注册，携带推荐码时在注册即完成归因。
func (s *CustomerAuthService) Register(input RegisterInput) (*models.Customer, string, time.Time, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, "", time.Time{}, err
	}

	exist, err := s.customerRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exist != nil {
		return nil, "", time.Time{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = resolveNicknameFromEmail(normalized)
	}
	customer := &models.Customer{
		Email:        normalized,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: string(hashedPassword),
		DisplayName:  displayName,
		Status:       constants.CustomerStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.customerRepo.Create(customer); err != nil {
		return nil, "", time.Time{}, err
	}

	if s.referralSvc != nil && strings.TrimSpace(input.ReferralCode) != "" {
		if _, err := s.referralSvc.ResolveReferrer(customer, input.ReferralCode); err != nil {
			return nil, "", time.Time{}, err
		}
	}

	token, expiresAt, err := s.GenerateCustomerJWT(customer, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	customer.LastLoginAt = &now
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetCustomerAuthState(context.Background(), cache.BuildCustomerAuthState(customer))

	return customer, token, expiresAt, nil
}

// Login 客户登录
func (s *CustomerAuthService) Login(email, password string) (*models.Customer, string, time.Time, error) {
	return s.LoginWithRememberMe(email, password, false)
}

// LoginWithRememberMe 客户登录（支持记住我）
func (s *CustomerAuthService) LoginWithRememberMe(email, password string, rememberMe bool) (*models.Customer, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	customer, err := s.customerRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if customer == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if strings.ToLower(customer.Status) != constants.CustomerStatusActive {
		return nil, "", time.Time{}, ErrCustomerDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	expireHours := resolveCustomerJWTExpireHours(s.cfg.CustomerJWT)
	if rememberMe {
		expireHours = resolveRememberMeExpireHours(s.cfg.CustomerJWT)
	}
	token, expiresAt, err := s.GenerateCustomerJWT(customer, expireHours)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	customer.LastLoginAt = &now
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetCustomerAuthState(context.Background(), cache.BuildCustomerAuthState(customer))

	return customer, token, expiresAt, nil
}

// ChangePassword 登录态修改密码
func (s *CustomerAuthService) ChangePassword(customerID uint, oldPassword, newPassword string) error {
	if customerID == 0 {
		return ErrNotFound
	}

	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidPassword
	}

	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	customer.PasswordHash = string(hashedPassword)
	now := time.Now()
	customer.UpdatedAt = now
	customer.TokenVersion++
	customer.TokenInvalidBefore = &now
	if err := s.customerRepo.Update(customer); err != nil {
		return err
	}
	_ = cache.SetCustomerAuthState(context.Background(), cache.BuildCustomerAuthState(customer))
	return nil
}

// UpdateProfile 更新客户资料
func (s *CustomerAuthService) UpdateProfile(customerID uint, displayName, phone *string) (*models.Customer, error) {
	if customerID == 0 {
		return nil, ErrNotFound
	}

	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrNotFound
	}

	updated := false
	if displayName != nil {
		trimmed := strings.TrimSpace(*displayName)
		if trimmed != "" {
			customer.DisplayName = trimmed
			updated = true
		}
	}
	if phone != nil {
		customer.Phone = strings.TrimSpace(*phone)
		updated = true
	}
	if !updated {
		return customer, nil
	}

	customer.UpdatedAt = time.Now()
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetCustomerByID 获取客户信息
func (s *CustomerAuthService) GetCustomerByID(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	return s.customerRepo.GetByID(id)
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) (string, error) {
	return normalizeEmail(email)
}

func resolveCustomerJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

func resolveRememberMeExpireHours(cfg config.JWTConfig) int {
	if cfg.RememberMeExpireHours <= 0 {
		return resolveCustomerJWTExpireHours(cfg)
	}
	return cfg.RememberMeExpireHours
}

func resolveNicknameFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}
