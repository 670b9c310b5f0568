package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/repository/mysql"
)

// recordEmitter 记录提交后发出的事件名，供断言
type recordEmitter struct {
	mu    sync.Mutex
	names []string
	// fail 为 true 时模拟通知通道故障
	fail bool
}

func (r *recordEmitter) Emit(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("notify channel down")
	}
	r.names = append(r.names, name)
	return nil
}

func (r *recordEmitter) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

type testEnv struct {
	db        *gorm.DB
	orderSvc  *OrderService
	statusSvc *StatusService
	products  product.Repository
	emitter   *recordEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))

	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	seqRepo := mysql.NewSequenceRepository(db)
	emitter := &recordEmitter{}
	cfg := &config.OrderConfig{
		Currency:         "CNY",
		ShippingFeeCents: 800,
		TxTimeoutSeconds: 5,
	}

	return &testEnv{
		db:        db,
		orderSvc:  NewOrderService(db, productRepo, orderRepo, seqRepo, emitter, cfg),
		statusSvc: NewStatusService(db, productRepo, orderRepo, emitter, cfg),
		products:  productRepo,
		emitter:   emitter,
	}
}

func (e *testEnv) seedProduct(t *testing.T, title string, price, stock int64) *product.Product {
	t.Helper()
	p := &product.Product{
		Title:  title,
		Price:  price,
		Stock:  stock,
		Status: product.StatusOnline,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) stockOf(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := e.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func testCustomer() CustomerInfo {
	return CustomerInfo{
		Name:    "张三",
		Phone:   "13800000000",
		Email:   "zhangsan@example.com",
		Address: "上海市浦东新区",
	}
}
