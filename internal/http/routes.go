package http

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/sujalbistaa/confesso/internal/auth"
	"github.com/sujalbistaa/confesso/internal/store"
	"github.com/sujalbistaa/confesso/internal/votes"
	"github.com/sujalbistaa/confesso/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, db *gorm.DB, hub *ws.Hub) {

	// --- Dependencies ---
	env := &Env{
		Contents: store.NewContentStore(db),
		Ledger:   votes.NewLedger(db),
		Auth:     auth.NewService(db, os.Getenv("JWT_SECRET")),
		Hub:      hub,
	}

	// --- Middleware ---
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token", "X-Voter-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				// An idle limiter has refilled; drop it to keep the map small.
				if v.Allow() {
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	// --- API Routes ---
	api := router.Group("/api")
	{
		api.GET("/posts", env.GetPosts)
		api.GET("/posts/:id", env.GetPost)
		api.POST("/posts", RateLimitMiddleware(limiter), env.CreatePost)
		api.POST("/posts/:id/vote", env.VoteOnPost)
		api.POST("/posts/:id/comments", RateLimitMiddleware(limiter), env.CreateComment)
		api.POST("/upload", RateLimitMiddleware(limiter), env.UploadImage)
		api.POST("/auth/register", env.Register)
		api.POST("/auth/login", env.Login)
		api.DELETE("/posts/:id", AdminAuthMiddleware(), env.DeletePost)
	}

	// --- WebSocket Route ---
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, c.Writer, c.Request)
	})

	// --- Uploaded media ---
	router.Static("/uploads", uploadDir)
}
