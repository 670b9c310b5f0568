package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/events"
)

// placeOrder 下一单并返回订单头
func placeOrder(t *testing.T, env *testEnv, items []OrderItemInput) *order.Order {
	t.Helper()
	result, err := env.orderSvc.CreateOrder(context.Background(), &CreateOrderInput{
		Items:    items,
		Customer: testCustomer(),
		Mode:     ModePickup,
	})
	require.NoError(t, err)
	var o order.Order
	require.NoError(t, env.db.Where("order_no = ?", result.OrderNo).First(&o).Error)
	return &o
}

func TestUpdateStatusRecordsAudit(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "白T恤", 4900, 10)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 1}})

	sum, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, order.StatusConfirmed, 7)
	require.NoError(t, err)
	require.Equal(t, order.StatusConfirmed, sum.Status)
	require.EqualValues(t, 7, sum.StatusUpdatedBy)
	require.NotNil(t, sum.StatusUpdatedAt)
	require.Contains(t, env.emitter.Events(), events.EventUpdateOrderStatus)
}

func TestUpdateStatusUnknownStatusRejected(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "白T恤", 4900, 10)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 1}})

	_, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, "PAID", 1)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestUpdateStatusNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.statusSvc.UpdateStatus(context.Background(), 9999, order.StatusConfirmed, 1)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUpdateStatusTerminalStatesAreFinal(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "白T恤", 4900, 10)

	for _, terminal := range []string{order.StatusDelivered, order.StatusCancelled} {
		o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 1}})
		_, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, terminal, 1)
		require.NoError(t, err)

		// 终态之后任何迁移都被拒绝
		for _, next := range []string{
			order.StatusPending, order.StatusConfirmed, order.StatusProcessing,
			order.StatusShipped, order.StatusDelivered, order.StatusCancelled,
		} {
			_, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, next, 1)
			var it *InvalidTransitionError
			require.ErrorAs(t, err, &it, "from=%s to=%s", terminal, next)
			require.Equal(t, terminal, it.From)
		}
	}
}

func TestCancelRestocksExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "连衣裙", 25900, 8)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 3}})
	require.EqualValues(t, 5, env.stockOf(t, p.ID))

	// 取消：qty=3 回补，5 -> 8
	_, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled, 1)
	require.NoError(t, err)
	require.EqualValues(t, 8, env.stockOf(t, p.ID))

	// 再取消：终态被拒，库存保持 8，绝不二次回补
	_, err = env.statusSvc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled, 1)
	var it *InvalidTransitionError
	require.ErrorAs(t, err, &it)
	require.EqualValues(t, 8, env.stockOf(t, p.ID))
}

func TestCancelMultiItemRestocksAllLines(t *testing.T) {
	env := newTestEnv(t)
	shirt := env.seedProduct(t, "白T恤", 4900, 10)
	scarf := env.seedProduct(t, "围巾", 8900, 6)
	o := placeOrder(t, env, []OrderItemInput{
		{ProductID: shirt.ID, Qty: 2},
		{ProductID: scarf.ID, Qty: 4},
	})
	require.EqualValues(t, 8, env.stockOf(t, shirt.ID))
	require.EqualValues(t, 2, env.stockOf(t, scarf.ID))

	_, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled, 1)
	require.NoError(t, err)
	require.EqualValues(t, 10, env.stockOf(t, shirt.ID))
	require.EqualValues(t, 6, env.stockOf(t, scarf.ID))
}

func TestCancelSkipsRestockForDeletedProduct(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "绝版款", 9900, 5)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 2}})

	// 商品从目录里被删掉后再取消，回补跳过但取消本身成功
	require.NoError(t, env.products.Delete(context.Background(), p.ID))

	sum, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled, 1)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, sum.Status)
}

func TestDeleteDoesNotRestock(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "白T恤", 4900, 10)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 4}})
	require.EqualValues(t, 6, env.stockOf(t, p.ID))

	// 强删在途订单：订单没了，库存保持不变
	require.NoError(t, env.statusSvc.DeleteOrder(context.Background(), o.ID, true))
	require.EqualValues(t, 6, env.stockOf(t, p.ID))

	var orders, items int64
	require.NoError(t, env.db.Model(&order.Order{}).Count(&orders).Error)
	require.NoError(t, env.db.Model(&order.OrderItem{}).Count(&items).Error)
	require.Zero(t, orders)
	require.Zero(t, items)
	require.Contains(t, env.emitter.Events(), events.EventDeleteOrder)
}

func TestDeleteCancelledOrderDoesNotRestockAgain(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "围巾", 8900, 5)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 2}})
	_, err := env.statusSvc.UpdateStatus(context.Background(), o.ID, order.StatusCancelled, 1)
	require.NoError(t, err)
	require.EqualValues(t, 5, env.stockOf(t, p.ID))

	// 已取消（终态），无需 force 即可删；删除不再动库存
	require.NoError(t, env.statusSvc.DeleteOrder(context.Background(), o.ID, false))
	require.EqualValues(t, 5, env.stockOf(t, p.ID))
}

func TestDeleteLiveOrderRefusedWithoutForce(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "白T恤", 4900, 10)
	o := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 1}})

	err := env.statusSvc.DeleteOrder(context.Background(), o.ID, false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	var count int64
	require.NoError(t, env.db.Model(&order.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDeleteOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.statusSvc.DeleteOrder(context.Background(), 12345, true)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDeleteOrdersBatchSkipsMissingAndLive(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "白T恤", 4900, 100)

	live := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 1}})
	done := placeOrder(t, env, []OrderItemInput{{ProductID: p.ID, Qty: 1}})
	_, err := env.statusSvc.UpdateStatus(context.Background(), done.ID, order.StatusDelivered, 1)
	require.NoError(t, err)

	// 批量：终态的删掉，在途的和不存在的跳过
	deleted, err := env.statusSvc.DeleteOrders(context.Background(), []int64{live.ID, done.ID, 9999}, false)
	require.NoError(t, err)
	require.Equal(t, []int64{done.ID}, deleted)
	require.Contains(t, env.emitter.Events(), events.EventDeleteOrders)

	var count int64
	require.NoError(t, env.db.Model(&order.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "在途订单必须还在")
}

func TestDeleteOrdersEmptyInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.statusSvc.DeleteOrders(context.Background(), nil, false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}
