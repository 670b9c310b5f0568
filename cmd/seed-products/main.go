package main

import (
	"context"
	"log"

	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/repository/mysql"
	"github.com/example/goshop/internal/service"
)

// 本地开发用：灌一批演示商品，方便直接跑通下单链路
func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	db := mysql.Init(&cfg.MySQL)
	productSvc := service.NewProductService(mysql.NewProductRepository(db))

	seeds := []*product.Product{
		{Title: "经典白T恤", Description: "纯棉基础款", Price: 4900, Stock: 100, Category: "men", Status: product.StatusOnline},
		{Title: "修身牛仔裤", Description: "弹力直筒", Price: 19900, Stock: 50, Category: "men", Status: product.StatusOnline},
		{Title: "法式连衣裙", Description: "碎花雪纺", Price: 25900, Stock: 30, Category: "women", Status: product.StatusOnline},
		{Title: "羊毛围巾", Description: "秋冬保暖", Price: 8900, Stock: 80, Category: "accessories", Status: product.StatusOnline},
		{Title: "限量帆布包", Description: "联名款", Price: 12900, Stock: 5, Category: "accessories", Status: product.StatusOnline},
	}

	ctx := context.Background()
	for _, p := range seeds {
		if err := productSvc.Create(ctx, p); err != nil {
			log.Fatalf("create product %q failed: %v", p.Title, err)
		}
		log.Printf("created product id=%d title=%s stock=%d", p.ID, p.Title, p.Stock)
	}
	log.Printf("done, %d products seeded", len(seeds))
}
