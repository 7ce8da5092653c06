package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"timetable-editor/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// 访问级别
const (
	AccessRead  = "read"
	AccessWrite = "write"
)

// Claims 上游登录服务签发的 JWT 声明
type Claims struct {
	UserID       string   `json:"id"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	AccessLevel  []string `json:"accessLevel"`
	UseTimetable string   `json:"useTimetable,omitempty"` // 用户默认编辑的时间表 ID
	jwtv5.RegisteredClaims
}

// CanWrite 是否具有写权限
func (c *Claims) CanWrite() bool {
	for _, a := range c.AccessLevel {
		if a == AccessWrite {
			return true
		}
	}
	return false
}

// Manager JWT 管理器
// 令牌由上游签发，本服务负责验签；GenerateToken 仅用于本地调试与测试
type Manager struct {
	secret []byte
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{secret: []byte(cfg.JWTSecret)}
}

// GenerateToken 按上游格式签发 Token
func (m *Manager) GenerateToken(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwtv5.RegisteredClaims{
		ID:        uuid.New().String(),
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
