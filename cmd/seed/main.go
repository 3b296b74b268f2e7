package main

import (
	"fmt"
	"time"

	"github.com/harvestlink/internal/config"
	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/logger"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"
	"github.com/harvestlink/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加农场
	farms := []models.Farm{
		{
			Slug:         "sunrise-valley",
			Name:         "日出谷生态农场",
			Region:       "云南 大理",
			ContactEmail: "hello@sunrise-valley.example.com",
			Description:  "高原生态种植，主打有机蓝莓与车厘子预售。",
			IsActive:     true,
		},
		{
			Slug:         "green-creek",
			Name:         "绿溪家庭农场",
			Region:       "山东 烟台",
			ContactEmail: "contact@green-creek.example.com",
			Description:  "三代果农，苹果与大樱桃产地直发。",
			IsActive:     true,
		},
		{
			Slug:         "misty-tea-hill",
			Name:         "雾岭茶园",
			Region:       "福建 武夷山",
			ContactEmail: "tea@misty-hill.example.com",
			Description:  "春茶限量预售，采摘后 48 小时内发货。",
			IsActive:     true,
		},
	}

	for _, farm := range farms {
		var existing models.Farm
		if err := models.DB.Where("slug = ?", farm.Slug).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&farm).Error; err != nil {
				stdLog.Printf("Failed to create farm %s: %v", farm.Slug, err)
			} else {
				stdLog.Printf("Created farm: %s", farm.Slug)
			}
		} else {
			stdLog.Printf("Farm already exists: %s", farm.Slug)
		}
	}

	// 获取农场ID
	farmIDs := map[string]uint{}
	var farmList []models.Farm
	if err := models.DB.Where("slug IN ?", []string{"sunrise-valley", "green-creek", "misty-tea-hill"}).Find(&farmList).Error; err != nil {
		stdLog.Printf("Failed to load farms: %v", err)
	}
	for _, farm := range farmList {
		farmIDs[farm.Slug] = farm.ID
	}

	// 添加预售商品
	products := []models.PreorderProduct{
		{
			FarmID:      farmIDs["sunrise-valley"],
			Slug:        "organic-blueberry",
			Title:       "高原有机蓝莓",
			Description: "当季现摘现发，单果 18mm+，冷链直达。",
			Unit:        "box",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(68.00)),
			Images:      models.StringArray([]string{"https://images.unsplash.com/photo-1498557850523-fd3d118b962e?w=800"}),
			Tags:        models.StringArray([]string{"有机", "冷链", "当季"}),
			IsActive:    true,
		},
		{
			FarmID:      farmIDs["green-creek"],
			Slug:        "yantai-cherry",
			Title:       "烟台大樱桃",
			Description: "美早品种，果径 28mm+，树上熟透再采摘。",
			Unit:        "box",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(128.00)),
			Images:      models.StringArray([]string{"https://images.unsplash.com/photo-1528821128474-27f963b062bf?w=800"}),
			Tags:        models.StringArray([]string{"产地直发", "当季"}),
			IsActive:    true,
		},
		{
			FarmID:      farmIDs["misty-tea-hill"],
			Slug:        "spring-rock-tea",
			Title:       "武夷春茶（限量）",
			Description: "明前头采，限量 200 份，采摘后 48 小时内发货。",
			Unit:        "piece",
			UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(299.00)),
			Images:      models.StringArray([]string{"https://images.unsplash.com/photo-1563822249366-3efb23b8e0c9?w=800"}),
			Tags:        models.StringArray([]string{"限量", "春茶"}),
			IsActive:    true,
		},
	}

	for _, product := range products {
		if product.FarmID == 0 {
			continue
		}
		var existing models.PreorderProduct
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
		}
	}

	// 获取商品ID
	productIDs := map[string]uint{}
	var productList []models.PreorderProduct
	if err := models.DB.Where("slug IN ?", []string{"organic-blueberry", "yantai-cherry", "spring-rock-tea"}).Find(&productList).Error; err != nil {
		stdLog.Printf("Failed to load products: %v", err)
	}
	for _, product := range productList {
		productIDs[product.Slug] = product.ID
	}

	// 添加预售批次
	productRepo := repository.NewProductRepository(models.DB)
	harvestAt := time.Now().AddDate(0, 0, 14)
	lots := []models.ProductLot{
		{
			ProductID:         productIDs["organic-blueberry"],
			LotCode:           "BLU-2026-W36",
			TotalYield:        500,
			AvailableQuantity: 500,
			Status:            constants.LotStatusActive,
			HarvestAt:         &harvestAt,
		},
		{
			ProductID:         productIDs["yantai-cherry"],
			LotCode:           "CHE-2026-W36",
			TotalYield:        300,
			AvailableQuantity: 300,
			Status:            constants.LotStatusActive,
			HarvestAt:         &harvestAt,
		},
		{
			ProductID:         productIDs["spring-rock-tea"],
			LotCode:           "TEA-2026-SPRING",
			TotalYield:        200,
			AvailableQuantity: 200,
			Status:            constants.LotStatusActive,
			HarvestAt:         &harvestAt,
		},
	}

	for _, lot := range lots {
		if lot.ProductID == 0 {
			continue
		}
		var existing models.ProductLot
		if err := models.DB.Where("lot_code = ?", lot.LotCode).First(&existing).Error; err != nil {
			if err := models.DB.Create(&lot).Error; err != nil {
				stdLog.Printf("Failed to create lot %s: %v", lot.LotCode, err)
			} else {
				stdLog.Printf("Created lot: %s", lot.LotCode)
				if _, err := productRepo.AdjustActiveLotCount(lot.ProductID, 1); err != nil {
					stdLog.Printf("Failed to adjust active lot count for product %d: %v", lot.ProductID, err)
				}
			}
		} else {
			stdLog.Printf("Lot already exists: %s", lot.LotCode)
		}
	}

	// 添加演示客户（demo@harvestlink.dev / Harvest#2026）
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("Harvest#2026"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash demo password: %v", err)
	}
	customers := []models.Customer{
		{
			Email:        "demo@harvestlink.dev",
			PasswordHash: string(passwordHash),
			DisplayName:  "演示客户",
			Status:       constants.CustomerStatusActive,
		},
		{
			Email:        "seeder@harvestlink.dev",
			PasswordHash: string(passwordHash),
			DisplayName:  "演示推荐人",
			Status:       constants.CustomerStatusActive,
		},
	}

	for _, customer := range customers {
		var existing models.Customer
		if err := models.DB.Where("email = ?", customer.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&customer).Error; err != nil {
				stdLog.Printf("Failed to create customer %s: %v", customer.Email, err)
			} else {
				stdLog.Printf("Created customer: %s", customer.Email)
			}
		} else {
			stdLog.Printf("Customer already exists: %s", customer.Email)
		}
	}

	// 为演示推荐人开通推荐档案
	var seederCustomer models.Customer
	if err := models.DB.Where("email = ?", "seeder@harvestlink.dev").First(&seederCustomer).Error; err == nil {
		var existingMember models.ReferralMember
		if err := models.DB.Where("customer_id = ?", seederCustomer.ID).First(&existingMember).Error; err != nil {
			member := models.ReferralMember{
				CustomerID:   seederCustomer.ID,
				ReferralCode: "HARVEST2026",
				UserEmail:    seederCustomer.Email,
				Status:       constants.ReferralMemberStatusActive,
				RevenueMonth: time.Now().Format("2006-01"),
			}
			if err := models.DB.Create(&member).Error; err != nil {
				stdLog.Printf("Failed to create referral member: %v", err)
			} else {
				stdLog.Printf("Created referral member: %s", member.ReferralCode)
			}
		} else {
			stdLog.Printf("Referral member already exists: %s", existingMember.ReferralCode)
		}
	}

	// 初始化默认返佣档位配置
	settingRepo := repository.NewSettingRepository(models.DB)
	settingService := service.NewSettingService(settingRepo)
	if existing, err := settingRepo.GetByKey(constants.SettingKeyReferralConfig); err != nil {
		stdLog.Printf("Failed to load referral setting: %v", err)
	} else if existing == nil {
		if _, err := settingService.UpdateReferralSetting(service.ReferralSetting{
			Enabled: true,
			Tiers: []service.CommissionTierBand{
				{MinRevenue: 0, MaxRevenue: 5000, RatePercent: 2},
				{MinRevenue: 5000, MaxRevenue: 20000, RatePercent: 3},
				{MinRevenue: 20000, MaxRevenue: 0, RatePercent: 5},
			},
		}); err != nil {
			stdLog.Printf("Failed to init referral setting: %v", err)
		} else {
			stdLog.Printf("Initialized default referral tier setting")
		}
	} else {
		stdLog.Printf("Referral setting already configured")
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Farms")
	fmt.Println("- 3 Preorder products")
	fmt.Println("- 3 Active lots")
	fmt.Println("- 2 Demo customers (demo@harvestlink.dev / Harvest#2026)")
	fmt.Println("- 1 Referral member (HARVEST2026)")
	fmt.Println("- Default referral tier setting")
}
