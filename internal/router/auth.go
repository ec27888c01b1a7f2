package router

import (
	"strings"

	"github.com/mall-next/internal/authz"
	"github.com/mall-next/internal/cache"
	"github.com/mall-next/internal/constants"
	"github.com/mall-next/internal/http/response"
	"github.com/mall-next/internal/i18n"
	"github.com/mall-next/internal/logger"
	"github.com/mall-next/internal/repository"
	"github.com/mall-next/internal/service"

	"github.com/gin-gonic/gin"
)

const operatorIsSuperKey = "operator_is_super"

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}

// bearerToken 取 Authorization: Bearer 令牌，失败时已写入响应
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		abortUnauthorized(c, "error.auth_header_missing")
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		abortUnauthorized(c, "error.auth_header_invalid")
		return "", false
	}
	return strings.TrimSpace(token), true
}

// UserJWTAuthMiddleware 校验买家令牌；令牌版本与账号状态优先读 Redis 快照
func UserJWTAuthMiddleware(secret string, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || users == nil {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := service.ParseUserJWT(secret, raw)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		ctx := c.Request.Context()
		state, hit := cache.UserAuthState(ctx, claims.UserID)
		if !hit {
			user, err := users.GetByID(claims.UserID)
			if err != nil || user == nil {
				abortUnauthorized(c, "error.token_invalid")
				return
			}
			active := strings.EqualFold(strings.TrimSpace(user.Status), constants.UserStatusActive)
			state = cache.AuthState{ID: user.ID, Active: active, TokenVersion: user.TokenVersion}
			_ = cache.RememberUser(ctx, user, active)
		}
		if !state.Active {
			abortUnauthorized(c, "error.user_disabled")
			return
		}
		if state.TokenVersion != claims.TokenVersion {
			abortUnauthorized(c, "error.token_revoked")
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Next()
	}
}

// OperatorJWTAuthMiddleware 校验运营端令牌
func OperatorJWTAuthMiddleware(secret string, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || users == nil {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := service.ParseOperatorJWT(secret, raw)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		ctx := c.Request.Context()
		state, hit := cache.OperatorAuthState(ctx, claims.OperatorID)
		if !hit {
			operator, err := users.GetOperatorByID(claims.OperatorID)
			if err != nil || operator == nil {
				abortUnauthorized(c, "error.token_invalid")
				return
			}
			state = cache.AuthState{ID: operator.ID, Active: true, TokenVersion: operator.TokenVersion, IsSuper: operator.IsSuper}
			_ = cache.RememberOperator(ctx, operator)
		}
		if state.TokenVersion != claims.TokenVersion {
			abortUnauthorized(c, "error.token_revoked")
			return
		}
		c.Set("operator_id", claims.OperatorID)
		c.Set("username", claims.Username)
		c.Set(operatorIsSuperKey, state.IsSuper)
		c.Next()
	}
}

// OperatorRBACMiddleware 按路由模板做 RBAC 判定，超级管理员直接放行
func OperatorRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(operatorIsSuperKey) {
			c.Next()
			return
		}
		operatorID := c.GetUint("operator_id")
		if authzService == nil || operatorID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		log := logger.Component("rbac", "operator_id", operatorID, "method", c.Request.Method, "route", route)

		allowed, err := authzService.EnforceOperator(operatorID, route, c.Request.Method)
		if err != nil {
			log.Errorw("operator_rbac_enforce_failed", "error", err)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			log.Warnw("operator_rbac_denied")
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}
