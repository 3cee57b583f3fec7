package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// 操作人角色
const (
	RoleCoordinator = "coordinator" // 排班协调员：执行/回滚换班、人工覆盖
	RoleFaculty     = "faculty"     // 教员：发起换班、审批作答
	RoleFeed        = "feed"        // 优化器 / 预加载服务账号
)

// Claims 自定义 JWT 声明
// ActorID 写入所有变更的审计字段
type Claims struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
// 登录与凭证签发由外部身份服务负责；本服务只为服务账号签发 Token（rosterctl token）
type Manager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		tokenTTL: cfg.AccessTokenTTL,
	}
}

// GenerateToken 生成 Access Token；ttl <= 0 时使用配置的默认有效期
func (m *Manager) GenerateToken(actorID, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.tokenTTL
	}
	now := time.Now()
	claims := Claims{
		ActorID: actorID,
		Role:    role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   actorID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ActorID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
