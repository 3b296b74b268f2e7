package router

import (
	"fmt"
	"strings"

	"github.com/harvestlink/internal/cache"
	"github.com/harvestlink/internal/config"
	adminhandlers "github.com/harvestlink/internal/http/handlers/admin"
	publichandlers "github.com/harvestlink/internal/http/handlers/public"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按客户端/管理端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "hl"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/farms", publicHandler.GetFarms)
			public.GET("/farms/:slug", publicHandler.GetFarm)
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:slug", publicHandler.GetProduct)
		}

		// 客户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.CustomerRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.CustomerLogin)
		}

		// 客户接口（需鉴权）
		customer := apiV1.Group("")
		customer.Use(CustomerJWTAuthMiddleware(cfg.CustomerJWT.SecretKey, c.CustomerRepo))
		{
			customer.GET("/me", publicHandler.CustomerMe)
			customer.PUT("/me/profile", publicHandler.CustomerUpdateProfile)
			customer.PUT("/me/password", publicHandler.CustomerChangePassword)

			customer.POST("/orders", publicHandler.CreateOrder)
			customer.GET("/orders", publicHandler.GetMyOrders)
			customer.GET("/orders/:id", publicHandler.GetMyOrder)
			customer.POST("/orders/:id/pay", publicHandler.PayOrder)
			customer.POST("/orders/:id/cancel", publicHandler.CancelMyOrder)

			customer.POST("/referral/enroll", publicHandler.EnrollReferral)
			customer.GET("/referral/dashboard", publicHandler.GetReferralDashboard)
			customer.GET("/referral/events", publicHandler.GetReferralEvents)
			customer.GET("/referral/logs", publicHandler.GetReferralLogs)

			customer.GET("/loyalty/account", publicHandler.GetLoyaltyAccount)
			customer.GET("/loyalty/transactions", publicHandler.GetLoyaltyTransactions)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.GET("/me", adminHandler.AdminMe)
				authorized.PUT("/password", adminHandler.AdminChangePassword)

				// 农场与商品管理
				authorized.GET("/farms", adminHandler.GetAdminFarms)
				authorized.POST("/farms", adminHandler.CreateFarm)
				authorized.PUT("/farms/:id", adminHandler.UpdateFarm)
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.POST("/products", adminHandler.CreateAdminProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateAdminProduct)

				// 批次管理
				authorized.GET("/lots", adminHandler.GetAdminLots)
				authorized.GET("/lots/:id", adminHandler.GetAdminLot)
				authorized.POST("/lots", adminHandler.CreateLot)
				authorized.POST("/lots/:id/restock", adminHandler.RestockLot)
				authorized.PATCH("/lots/:id/status", adminHandler.UpdateLotStatus)

				// 订单管理
				authorized.GET("/orders", adminHandler.GetAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.POST("/orders/:id/refund", adminHandler.RefundOrder)

				// 推荐返佣管理
				authorized.GET("/referral/setting", adminHandler.GetReferralSetting)
				authorized.PUT("/referral/setting", adminHandler.UpdateReferralSetting)
				authorized.GET("/referral/members", adminHandler.GetReferralMembers)
				authorized.PATCH("/referral/members/:id/status", adminHandler.UpdateReferralMemberStatus)
				authorized.PATCH("/referral/members/:id/rate", adminHandler.UpdateReferralMemberRate)
				authorized.GET("/referral/events", adminHandler.GetAdminReferralEvents)
				authorized.GET("/referral/logs", adminHandler.GetAdminCommissionLogs)

				// 客户管理
				authorized.GET("/customers", adminHandler.GetAdminCustomers)
				authorized.GET("/customers/:id", adminHandler.GetAdminCustomer)
				authorized.PATCH("/customers/:id/status", adminHandler.UpdateCustomerStatus)
				authorized.POST("/customers/:id/loyalty/adjust", adminHandler.AdjustCustomerLoyalty)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
