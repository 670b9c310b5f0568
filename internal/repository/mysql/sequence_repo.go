package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/goshop/internal/datamodels/order"
)

const orderNoSequence = "order_no"

type sequenceRepo struct {
	db *gorm.DB
}

// NewSequenceRepository 创建订单号发号器
func NewSequenceRepository(db *gorm.DB) order.SequenceRepository {
	return &sequenceRepo{db: db}
}

// NextOrderNo 在调用方事务内发下一个订单号。
// 对计数行加行锁后自增，两个同时提交的事务会在这里串行化，
// 不可能发出相同的号。绝不能用 count(*)+1 之类的读后写替代。
func (r *sequenceRepo) NextOrderNo(ctx context.Context, tx *gorm.DB) (string, error) {
	var seq order.Sequence
	err := forUpdate(tx.WithContext(ctx)).
		Where("name = ?", orderNoSequence).
		First(&seq).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		// 首次使用时创建计数行；并发首创撞唯一索引的一方会失败回滚，
		// 由调用方整单重试
		seq = order.Sequence{Name: orderNoSequence, Value: 0}
		if err := tx.WithContext(ctx).Create(&seq).Error; err != nil {
			return "", err
		}
	}

	seq.Value++
	if err := tx.WithContext(ctx).
		Model(&order.Sequence{}).
		Where("id = ?", seq.ID).
		UpdateColumn("value", seq.Value).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("SO%09d", seq.Value), nil
}
