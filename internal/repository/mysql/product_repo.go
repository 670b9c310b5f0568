package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/goshop/internal/datamodels/product"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储（库存台账）
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) ListOnline(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Where("status = ?", product.StatusOnline).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&product.Product{}, id).Error
}

// LockForUpdate 对给定商品行加行锁，只返回在售商品。
// 锁随调用方事务一起释放；缺失的 id 由调用方判定为不可购买。
func (r *productRepo) LockForUpdate(ctx context.Context, tx *gorm.DB, ids []int64) ([]*product.Product, error) {
	var list []*product.Product
	if err := forUpdate(tx.WithContext(ctx)).
		Where("id IN ? AND status = ?", ids, product.StatusOnline).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// DecrementStock 条件扣减库存：UPDATE ... WHERE stock >= qty。
// 单条 UPDATE 自身是原子的，即使没有行锁也不会把库存扣成负数，
// 与 LockForUpdate 搭配构成双保险。
func (r *productRepo) DecrementStock(ctx context.Context, tx *gorm.DB, id, qty int64) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&product.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock 无条件回补库存（取消订单的补偿动作）。
// 商品已被删除时影响行数为 0，静默跳过，不让外层事务失败。
func (r *productRepo) IncrementStock(ctx context.Context, tx *gorm.DB, id, qty int64) error {
	return tx.WithContext(ctx).
		Model(&product.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
