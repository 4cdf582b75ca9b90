package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/controllers"
	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/storage"
	"github.com/cppla/threadbbs/utils"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	DB      *gorm.DB
	Store   storage.Store
	Counter services.SequenceCounter
	// Sentry enables panic reporting through sentry-go.
	Sentry bool
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin logger init failed, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}
	if deps.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	// Attachments are streamed as-is.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/files/"})))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	users := services.NewUserDirectory(deps.DB)
	attachments := services.NewAttachmentManager(deps.DB, deps.Store)
	postService := services.NewPostService(deps.DB, deps.Counter, attachments)
	uploads := services.NewUploadReceiver(deps.Store, int64(cfg.MaxUploadMB)<<20)

	listCache := utils.NewPageCache(utils.GetRedis(), utils.PostListCachePrefix, time.Duration(cfg.ListCacheTTL)*time.Second)
	attachments.OnDeleted(func(ctx context.Context, _ *models.File) { listCache.Invalidate(ctx) })

	authController := controllers.NewAuthController(users)
	postController := controllers.NewPostController(services.NewPostLister(deps.DB), users, postService, uploads, listCache)
	fileController := controllers.NewFileController(attachments)
	statsController := controllers.NewStatsController(deps.DB)

	r.GET("/files/:storedName/:originalName", fileController.Download)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/posts/:id/stats", statsController.GetPostStats)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimit(cfg.RateLimitPerMinute))
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.DELETE("/posts/:id/attachment", postController.DeleteAttachment)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.DELETE("/comments/:commentId", postController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.Status(http.StatusNotFound)
	})

	return r
}
