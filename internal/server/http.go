package server

import (
	"errors"
	"strings"

	"github.com/kataras/iris/v12"

	"github.com/example/goshop/internal/auth"
	"github.com/example/goshop/internal/config"
	"github.com/example/goshop/internal/service"
)

// httpStatus 领域错误到 HTTP 状态码的映射
func httpStatus(err error) int {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
		na *service.NotAvailableError
		is *service.InsufficientStockError
		it *service.InvalidTransitionError
		ae *service.AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		return iris.StatusBadRequest
	case errors.As(err, &nf):
		return iris.StatusNotFound
	case errors.As(err, &na), errors.As(err, &is), errors.As(err, &it):
		return iris.StatusConflict
	case errors.As(err, &ae):
		return iris.StatusForbidden
	}
	return iris.StatusInternalServerError
}

// writeError 以统一格式返回错误。TransactionError 的 Error() 已是
// 用户安全的提示语，原始原因只进日志。
func writeError(ctx iris.Context, err error) {
	code := httpStatus(err)
	ctx.StopWithJSON(code, iris.Map{"code": code, "msg": err.Error()})
}

// bearerToken 取 Authorization 头里的 token，兼容带/不带 Bearer 前缀
func bearerToken(ctx iris.Context) string {
	token := ctx.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

// resolveClaims 解析请求里的身份，优先走 Redis 缓存。
// 没带 token 时返回 (nil, nil)，由调用方决定是否放行匿名请求。
func resolveClaims(cfg *config.Config, cache *auth.TokenCache, ctx iris.Context) (*auth.Claims, error) {
	token := bearerToken(ctx)
	if token == "" {
		return nil, nil
	}

	reqCtx := ctx.Request().Context()
	if cache != nil {
		// 缓存故障退回正常解析
		if claims, ok, err := cache.Get(reqCtx, token); err == nil && ok {
			return claims, nil
		}
	}

	claims, err := auth.ParseToken(&cfg.JWT, token)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		_ = cache.Set(reqCtx, token, claims)
	}
	return claims, nil
}

// requireAuth 必须登录的接口中间件
func requireAuth(cfg *config.Config, cache *auth.TokenCache) iris.Handler {
	return func(ctx iris.Context) {
		claims, err := resolveClaims(cfg, cache, ctx)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if claims == nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("role", claims.Role)
		ctx.Next()
	}
}

// requireStaff 后台接口中间件：状态变更与删除只允许 staff/admin
func requireStaff(cfg *config.Config, cache *auth.TokenCache) iris.Handler {
	return func(ctx iris.Context) {
		claims, err := resolveClaims(cfg, cache, ctx)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if claims == nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		if !claims.IsStaff() {
			writeError(ctx, &service.AuthorizationError{Msg: "需要后台管理权限"})
			return
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("role", claims.Role)
		ctx.Next()
	}
}
