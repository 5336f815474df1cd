package auth

import (
	"github.com/gin-gonic/gin"
)

// NoStore は認証レスポンスをキャッシュさせないためのミドルウェアです。
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

// Register は /auth 以下のルートを group に登録します。
func (h *Handler) Register(group *gin.RouterGroup) {
	authRoutes := group.Group("/auth", NoStore())
	{
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/logout", h.Logout)
	}
}
