package events

import "context"

// 事件名。只发裸事件名不带负载，监听方收到后自行回查最新状态，
// 不依赖事件内容。
const (
	EventNewOrder          = "new-order"
	EventUpdateOrderStatus = "update-order-status"
	EventDeleteOrder       = "delete-order"
	EventDeleteOrders      = "delete-orders"
)

// Emitter 事件通知接口。实现必须是尽力而为：
// 只在事务提交之后调用，失败不得影响主操作的结果。
// 以依赖注入的方式传给各服务，持久化逻辑不感知具体传输方式。
type Emitter interface {
	Emit(ctx context.Context, name string) error
}

// Nop 空实现，测试和不需要通知的场景使用
type Nop struct{}

func (Nop) Emit(ctx context.Context, name string) error { return nil }
