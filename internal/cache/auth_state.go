package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/mall-next/internal/models"
)

// 令牌失效依赖 token_version，快照过期前最多滞后这么久
const authStateTTL = 10 * time.Minute

// AuthState 鉴权快照，避免每个请求回表查询用户或操作员
type AuthState struct {
	ID           uint   `json:"id"`
	Active       bool   `json:"active"`
	TokenVersion uint64 `json:"token_version"`
	IsSuper      bool   `json:"is_super,omitempty"`
}

const (
	authKindUser     = "user"
	authKindOperator = "operator"
)

func authKey(kind string, id uint) string {
	return key("auth", kind, strconv.FormatUint(uint64(id), 10))
}

// UserAuthState 读取用户快照；缓存未启用、未命中或出错时 ok=false
func UserAuthState(ctx context.Context, userID uint) (AuthState, bool) {
	return loadAuthState(ctx, authKindUser, userID)
}

// OperatorAuthState 读取操作员快照
func OperatorAuthState(ctx context.Context, operatorID uint) (AuthState, bool) {
	return loadAuthState(ctx, authKindOperator, operatorID)
}

// RememberUser 写入用户快照
func RememberUser(ctx context.Context, user *models.User, active bool) error {
	if user == nil || user.ID == 0 {
		return nil
	}
	return setJSON(ctx, authKey(authKindUser, user.ID), AuthState{
		ID:           user.ID,
		Active:       active,
		TokenVersion: user.TokenVersion,
	}, authStateTTL)
}

// RememberOperator 写入操作员快照
func RememberOperator(ctx context.Context, operator *models.Operator) error {
	if operator == nil || operator.ID == 0 {
		return nil
	}
	return setJSON(ctx, authKey(authKindOperator, operator.ID), AuthState{
		ID:           operator.ID,
		Active:       true,
		TokenVersion: operator.TokenVersion,
		IsSuper:      operator.IsSuper,
	}, authStateTTL)
}

func loadAuthState(ctx context.Context, kind string, id uint) (AuthState, bool) {
	var state AuthState
	if id == 0 {
		return state, false
	}
	hit, err := getJSON(ctx, authKey(kind, id), &state)
	if err != nil || !hit {
		return AuthState{}, false
	}
	return state, true
}
