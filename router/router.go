package router

import (
	"Go_Share/internal/handler"
	"Go_Share/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	JWTSecret string
	Shares    *handler.ShareHandler
	Public    *handler.PublicHandler
	// Uploads serves the tus protocol with the /api/uploads prefix already stripped.
	Uploads http.Handler
	// Limiter throttles the anonymous routes per client IP; nil disables it.
	Limiter *utils.IPRateLimiter
}

// InitRouter builds API routes.
func InitRouter(d Deps) *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware())

	api := r.Group("/api")
	{
		auth := api.Group("")
		auth.Use(utils.AuthMiddleware(d.JWTSecret))

		share := auth.Group("/share")
		{
			share.POST("", d.Shares.Create)
			share.GET("", d.Shares.List)
			share.POST("/:id/deactivate", d.Shares.Deactivate)
			share.DELETE("/:id", d.Shares.Delete)
			share.GET("/:id/logs", d.Shares.AccessLogs)
		}

		public := api.Group("")
		if d.Limiter != nil {
			public.Use(d.Limiter.Middleware())
		}
		public.Use(utils.OptionalAuth(d.JWTSecret))

		s := public.Group("/s/:token")
		{
			s.GET("", d.Public.Probe)
			s.GET("/download", d.Public.Download)
			s.PUT("/content", d.Public.Edit)
		}

		if d.Uploads != nil {
			uploads := gin.WrapH(d.Uploads)
			public.Any("/uploads/*path", uploads)
		}
	}
	return r
}
