package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/events"
)

// StatusService 订单状态机：校验并应用生命周期迁移，
// 取消订单时在同一事务内把订单行的数量回补到商品库存。
type StatusService struct {
	db          *gorm.DB
	productRepo product.Repository
	orderRepo   order.Repository
	emitter     events.Emitter
	cfg         *config.OrderConfig
}

// NewStatusService 创建状态机服务
func NewStatusService(
	db *gorm.DB,
	productRepo product.Repository,
	orderRepo order.Repository,
	emitter events.Emitter,
	cfg *config.OrderConfig,
) *StatusService {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &StatusService{
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		emitter:     emitter,
		cfg:         cfg,
	}
}

// UpdateStatus 变更订单状态。同一订单的并发变更靠订单行锁串行化，
// 不同订单互不阻塞。终态订单拒绝任何迁移。
func (s *StatusService) UpdateStatus(ctx context.Context, orderID int64, next string, actorID int64) (*order.Summary, error) {
	if !order.ValidStatus(next) {
		GetMonitor().RecordValidationError()
		return nil, NewValidationError("未知的订单状态: %s", next)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout())
	defer cancel()

	var sum *order.Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁定目标订单行，读当前状态
		o, err := s.orderRepo.LockByID(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "订单", ID: orderID}
			}
			return err
		}

		// 2) 终态不允许再迁移
		if order.IsTerminal(o.Status) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}

		prev := o.Status
		now := time.Now()
		o.Status = next
		o.StatusUpdatedBy = actorID
		o.StatusUpdatedAt = &now
		if err := s.orderRepo.SaveStatus(ctx, tx, o); err != nil {
			return err
		}

		// 3) 补偿规则：首次进入 CANCELLED 时回补全部订单行的库存。
		//    prev 已是 CANCELLED 的情况到不了这里（终态已拒绝），
		//    这层判断保证回补永远不会对同一订单执行两次。
		if prev != order.StatusCancelled && next == order.StatusCancelled {
			items, err := s.orderRepo.ItemsByOrderID(ctx, tx, o.ID)
			if err != nil {
				return err
			}
			var restocked int64
			for _, it := range items {
				if err := s.productRepo.IncrementStock(ctx, tx, it.ProductID, it.Qty); err != nil {
					return err
				}
				restocked += it.Qty
			}
			GetMonitor().RecordCancellation(restocked)
		}

		sum = o.Summary()
		return nil
	})
	if err != nil {
		if IsDomainErr(err) {
			zap.L().Warn("update order status rejected",
				zap.Int64("order_id", orderID),
				zap.String("next", next),
				zap.Error(err))
			return nil, err
		}
		GetMonitor().RecordDBError()
		zap.L().Error("update order status failed",
			zap.Int64("order_id", orderID),
			zap.String("next", next),
			zap.Error(err))
		return nil, &TransactionError{Op: "update-order-status", Err: err}
	}

	GetMonitor().RecordStatusUpdate()
	if err := s.emitter.Emit(ctx, events.EventUpdateOrderStatus); err != nil {
		GetMonitor().RecordNotifyError()
		zap.L().Warn("emit update-order-status failed", zap.Error(err))
	}
	return sum, nil
}

// DeleteOrder 硬删除单个订单。删除不回补库存（管理动作，非生命周期迁移）；
// 为避免误删在途订单悄悄弄丢库存，非终态订单默认拒绝删除，
// force 为 true 时放行并记告警日志。
func (s *StatusService) DeleteOrder(ctx context.Context, orderID int64, force bool) error {
	deleted, err := s.deleteOrders(ctx, []int64{orderID}, force, true)
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		return &NotFoundError{Resource: "订单", ID: orderID}
	}
	if err := s.emitter.Emit(ctx, events.EventDeleteOrder); err != nil {
		GetMonitor().RecordNotifyError()
		zap.L().Warn("emit delete-order failed", zap.Error(err))
	}
	return nil
}

// DeleteOrders 批量硬删除，返回实际删除的订单 id。
// 缺失的 id 直接跳过；非终态且未 force 的订单也会被跳过。
func (s *StatusService) DeleteOrders(ctx context.Context, ids []int64, force bool) ([]int64, error) {
	if len(ids) == 0 {
		return nil, NewValidationError("订单 id 列表不能为空")
	}
	deleted, err := s.deleteOrders(ctx, ids, force, false)
	if err != nil {
		return nil, err
	}
	if err := s.emitter.Emit(ctx, events.EventDeleteOrders); err != nil {
		GetMonitor().RecordNotifyError()
		zap.L().Warn("emit delete-orders failed", zap.Error(err))
	}
	return deleted, nil
}

// deleteOrders 删除的公共实现。strict 模式下（单删）遇到
// 非终态未 force 的订单直接报错，批量模式下只跳过。
func (s *StatusService) deleteOrders(ctx context.Context, ids []int64, force, strict bool) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout())
	defer cancel()

	var deleted []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.orderRepo.LockByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		target := make([]int64, 0, len(locked))
		for _, o := range locked {
			if !order.IsTerminal(o.Status) {
				if !force {
					if strict {
						return NewValidationError(
							"订单 %s 尚未完结（当前 %s），不能直接删除；确认要删请使用 force", o.OrderNo, o.Status)
					}
					continue
				}
				// 强删在途订单会让已扣库存永久丢失，留痕
				zap.L().Warn("force deleting live order, stock will not be restored",
					zap.String("order_no", o.OrderNo),
					zap.String("status", o.Status))
			}
			target = append(target, o.ID)
		}
		if len(target) == 0 {
			return nil
		}

		if err := s.orderRepo.DeleteWithItems(ctx, tx, target); err != nil {
			return err
		}
		deleted = target
		return nil
	})
	if err != nil {
		if IsDomainErr(err) {
			return nil, err
		}
		GetMonitor().RecordDBError()
		zap.L().Error("delete orders failed",
			zap.Int64s("ids", ids),
			zap.Error(err))
		return nil, &TransactionError{Op: "delete-orders", Err: err}
	}

	GetMonitor().RecordDeleted(int64(len(deleted)))
	return deleted, nil
}
