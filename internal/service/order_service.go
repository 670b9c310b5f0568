package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/events"
)

// 下单模式
const (
	ModeDelivery = "delivery" // 配送，收固定运费
	ModePickup   = "pickup"   // 自提，免运费
)

// OrderService 订单事务管理器：下单的原子编排
// （锁商品行 → 服务端定价 → 条件扣库存 → 发号 → 落库），
// 以及小票和订单列表等无锁读。
type OrderService struct {
	db          *gorm.DB
	productRepo product.Repository
	orderRepo   order.Repository
	seqRepo     order.SequenceRepository
	emitter     events.Emitter
	cfg         *config.OrderConfig
}

// NewOrderService 创建订单服务。emitter 由外部注入，传 events.Nop{} 表示不通知。
func NewOrderService(
	db *gorm.DB,
	productRepo product.Repository,
	orderRepo order.Repository,
	seqRepo order.SequenceRepository,
	emitter events.Emitter,
	cfg *config.OrderConfig,
) *OrderService {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &OrderService{
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		seqRepo:     seqRepo,
		emitter:     emitter,
		cfg:         cfg,
	}
}

// OrderItemInput 下单时的购买项
type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Qty       int64 `json:"qty"`
}

// CustomerInfo 收货联系信息
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// CreateOrderInput 下单入参。UserID 为 0 表示匿名下单。
type CreateOrderInput struct {
	UserID        int64
	Items         []OrderItemInput
	Customer      CustomerInfo
	PaymentMethod string
	Mode          string
}

// CreateOrderResult 下单结果
type CreateOrderResult struct {
	OrderNo string `json:"order_no"`
	Contact string `json:"contact"`
}

// CreateOrder 创建订单。整个流程在一个数据库事务内完成，
// 定价、扣库存、发号、落库要么全部生效要么全部回滚。
// 价格一律以锁定后的服务端价格为准，客户端报价不可信。
// 注意：没有幂等保证，同一请求提交两次会生成两个订单。
func (s *OrderService) CreateOrder(ctx context.Context, in *CreateOrderInput) (*CreateOrderResult, error) {
	// 0) 开事务前的纯校验，失败时不触碰任何数据库状态
	if len(in.Items) == 0 {
		GetMonitor().RecordValidationError()
		return nil, NewValidationError("订单至少要有一个商品")
	}
	for _, it := range in.Items {
		if it.Qty <= 0 {
			GetMonitor().RecordValidationError()
			return nil, NewValidationError("商品 %d 的购买数量必须大于 0", it.ProductID)
		}
	}
	if in.Customer.Name == "" || in.Customer.Phone == "" {
		GetMonitor().RecordValidationError()
		return nil, NewValidationError("收货人姓名和电话不能为空")
	}
	mode := in.Mode
	if mode == "" {
		mode = ModeDelivery
	}
	if mode != ModeDelivery && mode != ModePickup {
		GetMonitor().RecordValidationError()
		return nil, NewValidationError("未知的配送模式: %s", in.Mode)
	}

	// 限制持锁时长，锁等待超时整单干净回滚
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout())
	defer cancel()

	var result *CreateOrderResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁定全部引用的商品行
		ids := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}
		locked, err := s.productRepo.LockForUpdate(ctx, tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]*product.Product, len(locked))
		for _, p := range locked {
			byID[p.ID] = p
		}
		var missing []int64
		seen := make(map[int64]bool)
		for _, id := range ids {
			if byID[id] == nil && !seen[id] {
				missing = append(missing, id)
				seen[id] = true
			}
		}
		if len(missing) > 0 {
			return &NotAvailableError{ProductIDs: missing}
		}

		// 2) 用锁定后的服务端价格做快照并累计小计
		var subtotal int64
		items := make([]order.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			p := byID[it.ProductID]
			line := p.Price * it.Qty
			subtotal += line
			items = append(items, order.OrderItem{
				ProductID: p.ID,
				Title:     p.Title,
				UnitPrice: p.Price,
				Qty:       it.Qty,
				Total:     line,
			})
		}

		// 3) 逐项条件扣减，任何一项失败都让整个事务回滚，
		//    已扣过的项随回滚一并恢复
		for _, it := range in.Items {
			ok, err := s.productRepo.DecrementStock(ctx, tx, it.ProductID, it.Qty)
			if err != nil {
				return err
			}
			if !ok {
				return &InsufficientStockError{ProductTitle: byID[it.ProductID].Title}
			}
		}

		// 4) 运费与总价
		var shipping int64
		if mode == ModeDelivery {
			shipping = s.cfg.ShippingFeeCents
		}
		total := subtotal + shipping

		// 5) 同一事务内取唯一订单号
		orderNo, err := s.seqRepo.NextOrderNo(ctx, tx)
		if err != nil {
			return err
		}

		// 6) 落库订单头和全部订单行，初始状态 PENDING
		o := &order.Order{
			OrderNo:       orderNo,
			UserID:        in.UserID,
			CustomerName:  in.Customer.Name,
			Phone:         in.Customer.Phone,
			Email:         in.Customer.Email,
			Address:       in.Customer.Address,
			Status:        order.StatusPending,
			PaymentMethod: in.PaymentMethod,
			Mode:          mode,
			Currency:      s.cfg.Currency,
			Subtotal:      subtotal,
			ShippingTotal: shipping,
			Total:         total,
			Items:         items,
		}
		if err := s.orderRepo.Create(ctx, tx, o); err != nil {
			return err
		}

		result = &CreateOrderResult{OrderNo: orderNo, Contact: in.Customer.Phone}
		return nil
	})
	if err != nil {
		if IsDomainErr(err) {
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) {
				GetMonitor().RecordOversellRejected()
			}
			zap.L().Warn("create order rejected",
				zap.Int64("user_id", in.UserID),
				zap.Error(err))
			return nil, err
		}
		GetMonitor().RecordDBError()
		zap.L().Error("create order failed",
			zap.Int64("user_id", in.UserID),
			zap.Error(err))
		return nil, &TransactionError{Op: "create-order", Err: err}
	}

	GetMonitor().RecordOrderCreated()
	// 提交之后才通知，失败只记录，绝不影响下单结果
	if err := s.emitter.Emit(ctx, events.EventNewOrder); err != nil {
		GetMonitor().RecordNotifyError()
		zap.L().Warn("emit new-order failed", zap.Error(err))
	}
	return result, nil
}

// GetReceipt 凭 (电话, 订单号) 查小票。无锁读，查不到返回 (nil, nil)。
// 这种可猜测的口令式授权偏弱，路由层需配合限流，
// 更强的方案（签名回执令牌）由外部身份服务提供。
func (s *OrderService) GetReceipt(ctx context.Context, phone, orderNo string) (*order.Order, error) {
	if phone == "" || orderNo == "" {
		return nil, NewValidationError("电话和订单号不能为空")
	}
	o, err := s.orderRepo.GetByPhoneAndNo(ctx, phone, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		GetMonitor().RecordDBError()
		zap.L().Error("get receipt failed", zap.String("order_no", orderNo), zap.Error(err))
		return nil, &TransactionError{Op: "get-receipt", Err: err}
	}
	return o, nil
}

// ListByUser 查询指定用户的订单（含订单行）
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListRecent 查询最新的订单记录，供后台用
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.orderRepo.ListRecent(ctx, limit)
}
