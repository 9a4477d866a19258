package router

import (
	"net/http"
	"strings"

	"github.com/tiffin-next/internal/cache"
	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/constants"
	publichandlers "github.com/tiffin-next/internal/http/handlers/public"
	"github.com/tiffin-next/internal/http/response"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/metrics"
	"github.com/tiffin-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = cache.Prefix()
	}
	cartRule := RateLimitRule{
		Name:          "cart",
		Prefix:        redisPrefix + ":rate:cart",
		WindowSeconds: cfg.Cart.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Cart.RateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}
	cartRateLimit := RateLimitMiddleware(cache.Client(), cartRule, KeyByCartSession)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(metrics.Middleware())
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	r.GET("/health", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		cart := apiV1.Group("/cart", CartSessionMiddleware())
		{
			cart.GET("", publicHandler.GetCart)
			cart.GET("/handoffs", publicHandler.ListHandoffs)
			cart.POST("/items", cartRateLimit, publicHandler.AddCartItem)
			cart.POST("/items/:line_key/increase", cartRateLimit, publicHandler.IncreaseCartItem)
			cart.POST("/items/:line_key/decrease", cartRateLimit, publicHandler.DecreaseCartItem)
			cart.DELETE("/items/:line_key", cartRateLimit, publicHandler.RemoveCartItem)
			cart.DELETE("", cartRateLimit, publicHandler.ClearCart)
			cart.POST("/checkout", cartRateLimit, publicHandler.Checkout)
			cart.POST("/logout", publicHandler.Logout)
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, response.Response{
			StatusCode: response.CodeNotFound,
			Msg:        "route not found",
			RequestID:  ctx.GetString(constants.ContextKeyRequestID),
		})
	})

	return r
}
