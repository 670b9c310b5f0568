package mysql

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/goshop/internal/datamodels/order"
	"github.com/example/goshop/internal/datamodels/product"
)

// newTestDB 每个测试一个独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title string, price, stock int64) *product.Product {
	t.Helper()
	p := &product.Product{
		Title:  title,
		Price:  price,
		Stock:  stock,
		Status: product.StatusOnline,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestDecrementStockConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "白T恤", 4900, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		ok, err := repo.DecrementStock(ctx, tx, p.ID, 3)
		require.NoError(t, err)
		require.True(t, ok)

		// 剩 2，再扣 3 必须失败且库存不动
		ok, err = repo.DecrementStock(ctx, tx, p.ID, 3)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.Stock)
}

func TestDecrementStockNeverNegative(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, "帆布包", 12900, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		ok, err := repo.DecrementStock(ctx, tx, p.ID, 2)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Stock)
}

func TestIncrementStockMissingProductSkipped(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	// 商品不存在时回补静默跳过，不报错
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.IncrementStock(ctx, tx, 9999, 3)
	})
	require.NoError(t, err)
}

func TestLockForUpdateFiltersOffline(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	online := seedProduct(t, db, "在售", 100, 10)
	offline := &product.Product{Title: "下架", Price: 100, Stock: 10, Status: product.StatusOffline}
	require.NoError(t, db.Create(offline).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.LockForUpdate(ctx, tx, []int64{online.ID, offline.ID, 424242})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, online.ID, rows[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestNextOrderNoMonotoneAndUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 1; i <= 25; i++ {
		var no string
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			no, err = repo.NextOrderNo(ctx, tx)
			return err
		})
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("SO%09d", i), no)
		require.False(t, seen[no], "订单号重复: %s", no)
		seen[no] = true
	}
}

func TestOrderCreateAndCascadeDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	o := &order.Order{
		OrderNo:      "SO000000001",
		CustomerName: "张三",
		Phone:        "13800000000",
		Status:       order.StatusPending,
		Currency:     "CNY",
		Subtotal:     9800,
		Total:        9800,
		Items: []order.OrderItem{
			{ProductID: 1, Title: "白T恤", UnitPrice: 4900, Qty: 2, Total: 9800},
		},
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.Create(ctx, tx, o)
	}))
	require.NotZero(t, o.ID)
	require.NotZero(t, o.Items[0].ID)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.DeleteWithItems(ctx, tx, []int64{o.ID})
	}))

	var orders, items int64
	require.NoError(t, db.Model(&order.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&order.OrderItem{}).Count(&items).Error)
	require.Zero(t, orders)
	require.Zero(t, items, "订单行必须随订单级联删除")
}

func TestGetByPhoneAndNoRequiresBothKeys(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	o := &order.Order{
		OrderNo:      "SO000000007",
		CustomerName: "李四",
		Phone:        "13911112222",
		Status:       order.StatusPending,
		Items: []order.OrderItem{
			{ProductID: 1, Title: "围巾", UnitPrice: 8900, Qty: 1, Total: 8900},
		},
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.Create(ctx, tx, o)
	}))

	got, err := repo.GetByPhoneAndNo(ctx, "13911112222", "SO000000007")
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
	require.Len(t, got.Items, 1)

	// 电话对不上就查不到
	_, err = repo.GetByPhoneAndNo(ctx, "13900000000", "SO000000007")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
