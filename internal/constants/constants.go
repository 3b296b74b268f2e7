package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
	OrderStatusRefunded       = "refunded"
)

// 支付状态常量
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// 预售批次状态常量
const (
	LotStatusPending = "pending"
	LotStatusActive  = "active"
	LotStatusSoldOut = "sold_out"
	LotStatusClosed  = "closed"
)

// 推荐成员状态常量
const (
	ReferralMemberStatusActive    = "active"
	ReferralMemberStatusSuspended = "suspended"
)

// 推荐佣金事件类型常量
const (
	ReferralEventTypeFirstPurchase      = "first_purchase"
	ReferralEventTypeSubsequentPurchase = "subsequent_purchase"
)

// 推荐佣金事件状态常量
const (
	ReferralEventStatusCalculated = "calculated"
	ReferralEventStatusReversed   = "reversed"
)

// 佣金流水变更类型常量
const (
	CommissionChangeEarned   = "commission_earned"
	CommissionChangeReversed = "commission_reversed"
)

// 积分交易类型常量
const (
	LoyaltyTxnTypeOrderAward  = "order_award"
	LoyaltyTxnTypeAdminAdjust = "admin_adjust"
)

// 客户状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusDisabled = "disabled"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskLoyaltyAward         = "loyalty:award"
	TaskNotificationDispatch = "notification:dispatch"
	TaskOrderSettledEmail    = "order:settled_email"
	TaskOrderTimeoutCancel   = "order:timeout_cancel"
)

// 通知事件常量
const (
	NotificationEventOrderSettled       = "order_settled"
	NotificationEventCommissionEarned   = "commission_earned"
	NotificationEventCommissionReversed = "commission_reversed"
	NotificationEventLotSoldOut         = "lot_sold_out"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "hl"
)

// 设置键常量
const (
	SettingKeySiteConfig     = "site_config"
	SettingKeyReferralConfig = "referral_config"
	SettingKeyOrderConfig    = "order_config"
)

// 设置字段常量
const (
	SettingFieldPaymentExpireMinutes = "payment_expire_minutes"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)
