package order

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// 订单生命周期状态。DELIVERED 和 CANCELLED 为终态，进入后不允许任何迁移。
const (
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

// ValidStatus 是否为已知状态
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal 是否为终态
func IsTerminal(s string) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order 订单模型。OrderNo 在创建时一次性分配且全局唯一；
// 金额恒满足 Total == Subtotal + ShippingTotal，单位为分。
type Order struct {
	ID      int64  `gorm:"primaryKey"`
	OrderNo string `gorm:"size:32;uniqueIndex;not null"`
	// UserID 为 0 表示匿名下单，归属以联系电话为准
	UserID int64 `gorm:"index"`

	CustomerName string `gorm:"size:64;not null"`
	Phone        string `gorm:"size:32;index;not null"`
	Email        string `gorm:"size:128"`
	Address      string `gorm:"size:256"`

	Status        string `gorm:"size:16;index;not null"`
	PaymentMethod string `gorm:"size:32"`
	Mode          string `gorm:"size:16"` // delivery / pickup
	Currency      string `gorm:"size:8"`

	Subtotal      int64 `gorm:"not null"`
	ShippingTotal int64 `gorm:"not null"`
	Total         int64 `gorm:"not null"`

	// 状态变更审计
	StatusUpdatedBy int64
	StatusUpdatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// OrderItem 订单行，购买时的不可变快照。
// UnitPrice 取下单时刻的商品价格，后续调价不影响已有订单；
// Total 恒等于 UnitPrice * Qty。行随订单级联删除。
type OrderItem struct {
	ID        int64  `gorm:"primaryKey"`
	OrderID   int64  `gorm:"index;not null"`
	ProductID int64  `gorm:"index;not null"`
	Title     string `gorm:"size:128;not null"` // 商品名快照
	UnitPrice int64  `gorm:"not null"`          // 分
	Qty       int64  `gorm:"not null"`
	Total     int64  `gorm:"not null"`
	CreatedAt time.Time
}

// Sequence 订单号发号器的计数行，整个系统只有一行（name 唯一）。
// 并发下单时对该行加锁自增，保证不会发出重复订单号。
type Sequence struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;uniqueIndex;not null"`
	Value int64  `gorm:"not null"`
}

// Summary 状态变更后返回给调用方的订单摘要
type Summary struct {
	ID              int64      `json:"id"`
	OrderNo         string     `json:"order_no"`
	Status          string     `json:"status"`
	Total           int64      `json:"total"`
	StatusUpdatedBy int64      `json:"status_updated_by"`
	StatusUpdatedAt *time.Time `json:"status_updated_at"`
}

// Summary 生成摘要
func (o *Order) Summary() *Summary {
	return &Summary{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		Status:          o.Status,
		Total:           o.Total,
		StatusUpdatedBy: o.StatusUpdatedBy,
		StatusUpdatedAt: o.StatusUpdatedAt,
	}
}

// Repository 订单仓储接口。
// 带 tx 参数的方法必须在调用方的事务内执行。
type Repository interface {
	// Create 在事务内同时落库订单头和所有订单行
	Create(ctx context.Context, tx *gorm.DB, o *Order) error
	// LockByID 对订单行加行锁后读取，不存在时返回 gorm.ErrRecordNotFound
	LockByID(ctx context.Context, tx *gorm.DB, id int64) (*Order, error)
	// LockByIDs 批量加锁读取，缺失的 id 不在结果中
	LockByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*Order, error)
	// SaveStatus 持久化状态与审计字段
	SaveStatus(ctx context.Context, tx *gorm.DB, o *Order) error
	// ItemsByOrderID 读取订单行
	ItemsByOrderID(ctx context.Context, tx *gorm.DB, orderID int64) ([]*OrderItem, error)
	// DeleteWithItems 硬删除订单及其订单行（级联）
	DeleteWithItems(ctx context.Context, tx *gorm.DB, ids []int64) error

	GetByID(ctx context.Context, id int64) (*Order, error)
	// GetByPhoneAndNo 凭 (电话, 订单号) 查小票，无锁读
	GetByPhoneAndNo(ctx context.Context, phone, orderNo string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
}

// SequenceRepository 订单号发号接口
type SequenceRepository interface {
	// NextOrderNo 在调用方事务内取下一个订单号，并发调用保证互不重复
	NextOrderNo(ctx context.Context, tx *gorm.DB) (string, error)
}
