package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/response"
)

// 认证中间件注入的上下文键
const (
	CtxActorID = "actor_id"
	CtxRole    = "role"
)

// MustGetActorID 从 Gin 上下文中安全提取 actor_id。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetActorID(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxActorID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, CtxRole)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
