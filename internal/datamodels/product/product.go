package product

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// 商品状态
const (
	StatusOffline = 0 // 下架，不可购买
	StatusOnline  = 1 // 在售
)

// Product 商品模型。Stock 是库存的唯一权威计数，
// 只允许通过仓储的原子扣减/回补操作修改，任何时候不为负。
type Product struct {
	ID          int64     `gorm:"primaryKey"`
	Title       string    `gorm:"size:128;not null"`
	Description string    `gorm:"size:512"`
	Price       int64     `gorm:"not null"` // 分
	Stock       int64     `gorm:"not null"`
	Category    string    `gorm:"size:32;index"`
	Status      int       `gorm:"index"` // 0:下架 1:在售
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sellable 是否可售
func (p *Product) Sellable() bool {
	return p.Status == StatusOnline
}

// Repository 商品仓储接口。
// 带 tx 参数的方法必须在调用方的事务内执行，锁和扣减的生效范围即该事务。
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListOnline(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error

	// LockForUpdate 对给定商品行加行锁并返回其中在售的部分；
	// 缺失的 id 视为不可购买，由调用方处理。
	LockForUpdate(ctx context.Context, tx *gorm.DB, ids []int64) ([]*Product, error)
	// DecrementStock 条件扣减：仅当 stock >= qty 时生效，返回是否扣成功。
	DecrementStock(ctx context.Context, tx *gorm.DB, id, qty int64) (bool, error)
	// IncrementStock 无条件回补库存；商品已被删除时静默跳过。
	IncrementStock(ctx context.Context, tx *gorm.DB, id, qty int64) error
}
