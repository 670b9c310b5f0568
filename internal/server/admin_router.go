package server

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/events"
	"github.com/example/goshop/internal/infra/mq"
	"github.com/example/goshop/internal/infra/redis"
	"github.com/example/goshop/internal/repository/mysql"
	"github.com/example/goshop/internal/service"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由。
// 端口通常是 8081，与前台 Web 服务分离；全部接口要求 staff/admin。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	seqRepo := mysql.NewSequenceRepository(db)

	emitter := events.NewRabbitMQEmitter(mqConn, cfg.RabbitMQ.EventQueue)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(db, productRepo, orderRepo, seqRepo, emitter, &cfg.Order)
	statusSvc := service.NewStatusService(db, productRepo, orderRepo, emitter, &cfg.Order)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring,
		time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api", requireStaff(cfg, tokenCache))

	// ---------- 订单管理 ----------

	// 最新订单列表
	api.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 20)
		list, err := orderSvc.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 变更订单状态（取消会在同一事务内回补库存）
	api.Put("/orders/{id:int64}/status", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		actorID := ctx.Values().GetInt64Default("user_id", 0)

		sum, err := statusSvc.UpdateStatus(ctx.Request().Context(), id, req.Status, actorID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": sum})
	})

	// 硬删除单个订单。不回补库存；非终态订单需 force=true
	api.Delete("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		force, _ := ctx.URLParamBool("force")

		if err := statusSvc.DeleteOrder(ctx.Request().Context(), id, force); err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"deleted": []int64{id}}})
	})

	// 批量硬删除
	api.Post("/orders/batch-delete", func(ctx iris.Context) {
		var req struct {
			IDs   []int64 `json:"ids"`
			Force bool    `json:"force"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}

		deleted, err := statusSvc.DeleteOrders(ctx.Request().Context(), req.IDs, req.Force)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"deleted": deleted,
			"count":   len(deleted),
		}})
	})

	// ---------- 商品 ----------

	// 全量商品列表（含下架），库存盘点用
	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 上架新商品
	api.Post("/products", func(ctx iris.Context) {
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := productSvc.Create(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 编辑商品（标题/价格/上下架等；库存不在此修改）
	api.Put("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p.ID = id
		if err := productSvc.Update(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 删除商品。已有订单的价格快照不受影响
	api.Delete("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := productSvc.Delete(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"deleted": id}})
	})

	// ---------- 监控 ----------

	api.Get("/stats", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": service.GetMonitor().GetStats()})
	})
}
