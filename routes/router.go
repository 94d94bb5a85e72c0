package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/secureblog/server/config"
	"github.com/secureblog/server/controllers"
	"github.com/secureblog/server/middleware"
	"github.com/secureblog/server/upload"
	"github.com/secureblog/server/utils"
)

// SetupRouter wires middleware and routes into a gin engine.
func SetupRouter(db *gorm.DB, pipeline *upload.Pipeline) *gin.Engine {
	cfg := config.Get()

	gin.SetMode(ginMode(cfg.GinMode))
	r := gin.New()

	if accessLogger, err := utils.NewRollingFileLogger(
		cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress,
	); err == nil {
		r.Use(utils.Ginzap(accessLogger, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(accessLogger, true))
	} else {
		r.Use(gin.Recovery())
	}

	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(cfg.CSPPolicy))

	// Stored images are public once uploaded; names are unguessable.
	if strings.HasPrefix(cfg.PublicBaseURL, "/") {
		r.Static(cfg.PublicBaseURL, cfg.UploadRoot)
	}

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Scanners probe for an admin panel that does not exist here. Log the
	// attempt and answer with a bare 403 so the path looks uninteresting.
	r.Any("/admin/*path", func(ctx *gin.Context) {
		if utils.Security != nil {
			utils.Security.Warnf("admin probe %s %s from %s (ua=%q)",
				ctx.Request.Method, ctx.Request.URL.Path, ctx.ClientIP(), ctx.Request.UserAgent())
		}
		ctx.JSON(http.StatusForbidden, gin.H{"detail": "forbidden"})
	})

	postCtl := controllers.NewPostController(db)
	profileCtl := controllers.NewProfileController(db)
	uploadCtl := controllers.NewUploadController(db, pipeline)

	api := r.Group("/api/v1")

	// Public read surface.
	api.GET("/posts", postCtl.ListPosts)
	api.GET("/posts/:id", postCtl.GetPost)
	api.GET("/posts/:id/stats", postCtl.GetPostStats)
	api.GET("/categories", postCtl.ListCategories)
	api.GET("/users/:id", profileCtl.GetUserPublic)
	api.GET("/users/:id/posts", postCtl.ListUserPosts)
	api.GET("/user/by-username/:username", profileCtl.GetUserPublicByUsername)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	{
		authGroup.GET("/me", profileCtl.Me)
		authGroup.PATCH("/profile", profileCtl.UpdateProfile)
		authGroup.POST("/logout", profileCtl.Logout)
	}

	// Authenticated, rate-limited surface.
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	{
		protected.POST("/ckeditor/upload", uploadCtl.Upload)
		protected.GET("/ckeditor/browse", uploadCtl.Browse)

		protected.POST("/posts", postCtl.CreatePost)
		protected.PUT("/posts/:id", postCtl.UpdatePost)
		protected.DELETE("/posts/:id", postCtl.DeletePost)
		protected.GET("/users/me/posts", postCtl.ListMyPosts)
		protected.GET("/users/me/likes", postCtl.ListLikedPosts)

		protected.POST("/posts/:id/comments", postCtl.CreateComment)
		protected.DELETE("/comments/:commentId", postCtl.DeleteComment)
		protected.POST("/posts/:id/like", postCtl.ToggleLike)

		protected.POST("/categories", postCtl.CreateCategory)
	}

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}
