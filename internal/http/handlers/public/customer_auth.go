package public

import (
	"errors"

	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/service"

	"github.com/gin-gonic/gin"
)

// CustomerRegisterRequest 注册请求
type CustomerRegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"`
}

// CustomerRegister 客户注册
func (h *Handler) CustomerRegister(c *gin.Context) {
	var req CustomerRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	customer, token, expiresAt, err := h.CustomerAuthService.Register(service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		Phone:        req.Phone,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "邮箱格式无效", nil)
		case errors.Is(err, service.ErrEmailTaken):
			respondError(c, response.CodeBadRequest, "邮箱已被注册", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, response.CodeBadRequest, "密码强度不足", nil)
		default:
			respondError(c, response.CodeInternal, "注册失败", err)
		}
		return
	}

	response.Success(c, gin.H{
		"customer":   buildCustomerProfile(customer),
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// CustomerLoginRequest 登录请求
type CustomerLoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// CustomerLogin 客户登录
func (h *Handler) CustomerLogin(c *gin.Context) {
	var req CustomerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	customer, token, expiresAt, err := h.CustomerAuthService.LoginWithRememberMe(req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeBadRequest, "邮箱或密码错误", nil)
		case errors.Is(err, service.ErrCustomerDisabled):
			respondError(c, response.CodeForbidden, "账号已被禁用", nil)
		default:
			respondError(c, response.CodeInternal, "登录失败", err)
		}
		return
	}

	response.Success(c, gin.H{
		"customer":   buildCustomerProfile(customer),
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// CustomerMe 获取当前客户资料
func (h *Handler) CustomerMe(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	customer, err := h.CustomerAuthService.GetCustomerByID(customerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "客户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取客户信息失败", err)
		return
	}
	if customer == nil {
		respondError(c, response.CodeNotFound, "客户不存在", nil)
		return
	}

	response.Success(c, buildCustomerProfile(customer))
}

// CustomerChangePasswordRequest 修改密码请求
type CustomerChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// CustomerChangePassword 客户修改密码
func (h *Handler) CustomerChangePassword(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req CustomerChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.CustomerAuthService.ChangePassword(customerID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "客户不存在", nil)
		case errors.Is(err, service.ErrInvalidPassword):
			respondError(c, response.CodeBadRequest, "原密码错误", nil)
		case errors.Is(err, service.ErrWeakPassword):
			respondError(c, response.CodeBadRequest, "新密码强度不足", nil)
		default:
			respondError(c, response.CodeInternal, "修改密码失败", err)
		}
		return
	}

	response.Success(c, gin.H{"changed": true})
}

// CustomerUpdateProfileRequest 更新资料请求
type CustomerUpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

// CustomerUpdateProfile 更新客户资料
func (h *Handler) CustomerUpdateProfile(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}

	var req CustomerUpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	customer, err := h.CustomerAuthService.UpdateProfile(customerID, req.DisplayName, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "客户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "更新资料失败", err)
		return
	}

	response.Success(c, buildCustomerProfile(customer))
}

func buildCustomerProfile(customer *models.Customer) gin.H {
	if customer == nil {
		return gin.H{}
	}
	return gin.H{
		"id":                   customer.ID,
		"email":                customer.Email,
		"phone":                customer.Phone,
		"display_name":         customer.DisplayName,
		"status":               customer.Status,
		"referrer_id":          customer.ReferrerID,
		"referral_locked":      customer.ReferralLocked,
		"referral_code_used":   customer.ReferralCodeUsed,
		"is_referred_customer": customer.IsReferredCustomer,
		"referred_at":          customer.ReferredAt,
		"last_login_at":        customer.LastLoginAt,
		"created_at":           customer.CreatedAt,
	}
}
