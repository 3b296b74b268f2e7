package repository

import "time"

// ProductListFilter 查询预售商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	FarmID     uint
	Search     string
	OnlyActive bool
	WithFarm   bool
}

// ProductLotListFilter 查询批次列表的过滤条件
type ProductLotListFilter struct {
	Page        int
	PageSize    int
	ProductID   uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	CustomerID    uint
	Status        string
	PaymentStatus string
	OrderNo       string
	ReferrerID    uint
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// CustomerListFilter 查询客户列表的过滤条件
type CustomerListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	ReferrerID  uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReferralMemberListFilter 查询推荐人列表的过滤条件
type ReferralMemberListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Status   string
}

// ReferralEventListFilter 查询佣金事件列表的过滤条件
type ReferralEventListFilter struct {
	Page             int
	PageSize         int
	ReferralMemberID uint
	OrderID          uint
	Status           string
	EventType        string
	PeriodMonth      string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// CommissionLogListFilter 查询佣金流水列表的过滤条件
type CommissionLogListFilter struct {
	Page             int
	PageSize         int
	ReferralMemberID uint
	ChangeType       string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// LoyaltyTxnListFilter 查询积分流水列表的过滤条件
type LoyaltyTxnListFilter struct {
	Page      int
	PageSize  int
	AccountID uint
	Type      string
}
