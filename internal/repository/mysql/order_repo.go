package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/goshop/internal/datamodels/order"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

// Create 同一事务内落库订单头与全部订单行（gorm 关联写入）
func (r *orderRepo) Create(ctx context.Context, tx *gorm.DB, o *order.Order) error {
	return tx.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) LockByID(ctx context.Context, tx *gorm.DB, id int64) (*order.Order, error) {
	var o order.Order
	if err := forUpdate(tx.WithContext(ctx)).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) LockByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*order.Order, error) {
	var list []*order.Order
	if err := forUpdate(tx.WithContext(ctx)).
		Where("id IN ?", ids).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SaveStatus 只更新状态与审计字段，避免覆盖其它列
func (r *orderRepo) SaveStatus(ctx context.Context, tx *gorm.DB, o *order.Order) error {
	return tx.WithContext(ctx).
		Model(o).
		Select("status", "status_updated_by", "status_updated_at").
		Updates(map[string]interface{}{
			"status":            o.Status,
			"status_updated_by": o.StatusUpdatedBy,
			"status_updated_at": o.StatusUpdatedAt,
		}).Error
}

func (r *orderRepo) ItemsByOrderID(ctx context.Context, tx *gorm.DB, orderID int64) ([]*order.OrderItem, error) {
	var items []*order.OrderItem
	if err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteWithItems 硬删除订单及订单行。先删行再删头，同一事务内级联。
func (r *orderRepo) DeleteWithItems(ctx context.Context, tx *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).
		Where("order_id IN ?", ids).
		Delete(&order.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&order.Order{}).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByPhoneAndNo 小票查询：两个条件同时进 WHERE，无锁读
func (r *orderRepo) GetByPhoneAndNo(ctx context.Context, phone, orderNo string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("phone = ? AND order_no = ?", phone, orderNo).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
