package provider

import (
	"github.com/harvestlink/internal/bridge"
	"github.com/harvestlink/internal/cache"
	"github.com/harvestlink/internal/config"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/queue"
	"github.com/harvestlink/internal/repository"
	"github.com/harvestlink/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo    repository.AdminRepository
	CustomerRepo repository.CustomerRepository
	FarmRepo     repository.FarmRepository
	ProductRepo  repository.ProductRepository
	LotRepo      repository.ProductLotRepository
	OrderRepo    repository.OrderRepository
	ReferralRepo repository.ReferralRepository
	LoyaltyRepo  repository.LoyaltyRepository
	SettingRepo  repository.SettingRepository

	// Services
	AuthService         *service.AuthService
	CustomerAuthService *service.CustomerAuthService
	EmailService        *service.EmailService
	SettingService      *service.SettingService
	InventoryService    *service.InventoryService
	ReferralService     *service.ReferralService
	CommissionLedger    *service.CommissionLedger
	LoyaltyService      *service.LoyaltyService
	NotificationService *service.NotificationService
	SettlementService   *service.SettlementService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.FarmRepo = repository.NewFarmRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.LotRepo = repository.NewProductLotRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.LoyaltyRepo = repository.NewLoyaltyRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.InventoryService = service.NewInventoryService(c.LotRepo, c.ProductRepo)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.CustomerRepo)
	c.CustomerAuthService = service.NewCustomerAuthService(c.Config, c.CustomerRepo, c.ReferralService)
	c.CommissionLedger = service.NewCommissionLedger(c.ReferralRepo, c.OrderRepo, c.CustomerRepo, c.SettingService)
	c.LoyaltyService = service.NewLoyaltyService(&c.Config.Loyalty, c.LoyaltyRepo)
	c.NotificationService = service.NewNotificationService()

	// 结算后置钩子走队列，worker 侧消费后再调积分与通知服务。
	hooks := &bridge.Hooks{
		Loyalty:  bridge.NewQueueLoyaltyAwarder(c.QueueClient),
		Notifier: bridge.NewQueueNotifier(c.QueueClient),
	}
	c.SettlementService = service.NewSettlementService(
		c.OrderRepo,
		c.CustomerRepo,
		c.ProductRepo,
		c.LotRepo,
		c.InventoryService,
		c.ReferralService,
		c.CommissionLedger,
		c.SettingService,
		c.QueueClient,
		hooks,
	)
}
