package handler

import (
	"net/http"

	"compsystem/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, auth *service.AuthService, metrics http.Handler, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.MaxMultipartMemory = h.maxUpload

	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", h.Login)

		authed := api.Group("")
		authed.Use(SessionMiddleware(auth))
		{
			authed.POST("/auth/logout", h.Logout)
			authed.GET("/coupon/catalog", h.Catalog)

			compensation := authed.Group("/compensation")
			{
				compensation.POST("/create", h.CreateCompensation)
				compensation.GET("/card", h.GetCard)
				compensation.POST("/redeem", h.Redeem)
				compensation.GET("/list", h.ListCompensations)
				compensation.POST("/import", h.ImportCompensations)
				compensation.GET("/export", h.ExportCompensations)
			}
		}
	}

	r.GET("/metrics", gin.WrapH(metrics))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
