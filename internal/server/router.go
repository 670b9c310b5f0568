package server

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/events"
	"github.com/example/goshop/internal/infra/mq"
	"github.com/example/goshop/internal/infra/redis"
	"github.com/example/goshop/internal/middleware"
	"github.com/example/goshop/internal/repository/mysql"
	"github.com/example/goshop/internal/service"
)

// RegisterRoutes 注册前台（买家侧）HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
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

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring,
		time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// 在售商品列表
	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListOnline(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 下单。允许匿名：带了有效 token 就把订单归到该用户名下
	api.Post("/orders", func(ctx iris.Context) {
		var req struct {
			Items         []service.OrderItemInput `json:"items"`
			Customer      service.CustomerInfo     `json:"customer"`
			PaymentMethod string                   `json:"payment_method"`
			Mode          string                   `json:"mode"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}

		var userID int64
		claims, err := resolveClaims(cfg, tokenCache, ctx)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if claims != nil {
			userID = claims.UserID
		}

		result, err := orderSvc.CreateOrder(ctx.Request().Context(), &service.CreateOrderInput{
			UserID:        userID,
			Items:         req.Items,
			Customer:      req.Customer,
			PaymentMethod: req.PaymentMethod,
			Mode:          req.Mode,
		})
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": result})
	})

	// 我的订单（需要登录，只能看自己的）
	api.Get("/orders", requireAuth(cfg, tokenCache), func(ctx iris.Context) {
		userID := ctx.Values().GetInt64Default("user_id", 0)
		list, err := orderSvc.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": "系统繁忙，请稍后重试"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 小票查询：凭 (电话, 订单号)，弱口令接口，挂限流
	api.Get("/receipt", middleware.ReceiptRateLimit(), func(ctx iris.Context) {
		phone := ctx.URLParam("phone")
		orderNo := ctx.URLParam("order_no")
		o, err := orderSvc.GetReceipt(ctx.Request().Context(), phone, orderNo)
		if err != nil {
			writeError(ctx, err)
			return
		}
		if o == nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "订单不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})
}
