package service

import (
	"errors"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("token invalid")

// OperatorJWTClaims 运营账号 JWT 声明
type OperatorJWTClaims struct {
	OperatorID   uint   `json:"operator_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// AuthService 令牌签发与校验；账号登录由外部认证服务负责，这里只处理 HS256 令牌
type AuthService struct {
	operatorCfg config.JWTConfig
	userCfg     config.JWTConfig
	now         func() time.Time
}

// NewAuthService 创建令牌服务
func NewAuthService(operatorCfg, userCfg config.JWTConfig) *AuthService {
	return &AuthService{operatorCfg: operatorCfg, userCfg: userCfg, now: time.Now}
}

func registeredClaims(now time.Time, expireHours int) (jwt.RegisteredClaims, time.Time) {
	if expireHours <= 0 {
		expireHours = 24
	}
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}, expiresAt
}

// GenerateOperatorJWT 签发运营账号令牌
func (s *AuthService) GenerateOperatorJWT(operator *models.Operator) (string, time.Time, error) {
	if operator == nil || operator.ID == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	registered, expiresAt := registeredClaims(s.now(), s.operatorCfg.ExpireHours)
	claims := OperatorJWTClaims{
		OperatorID:       operator.ID,
		Username:         operator.Username,
		TokenVersion:     operator.TokenVersion,
		RegisteredClaims: registered,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.operatorCfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// GenerateUserJWT 签发用户令牌
func (s *AuthService) GenerateUserJWT(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	registered, expiresAt := registeredClaims(s.now(), s.userCfg.ExpireHours)
	claims := UserJWTClaims{
		UserID:           user.ID,
		Email:            user.Email,
		TokenVersion:     user.TokenVersion,
		RegisteredClaims: registered,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.userCfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseOperatorJWT 解析运营账号令牌
func ParseOperatorJWT(secret, tokenString string) (*OperatorJWTClaims, error) {
	claims := &OperatorJWTClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.OperatorID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseUserJWT 解析用户令牌
func ParseUserJWT(secret, tokenString string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func parseHS256(secret, tokenString string, claims jwt.Claims) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
