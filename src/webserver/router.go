package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/emberforge/realm-gov/src/config"
	"github.com/emberforge/realm-gov/src/gov"
)

func New(cfg config.Config, engine *gov.Engine, rdb *redis.Client) *gin.Engine {
	r := gin.Default()
	attachRoutes(r, cfg, engine, rdb)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, engine *gov.Engine, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(rdb, []byte(cfg.JWTSecret))
	propH := NewProposals(engine)
	voteH := NewVotes(engine)
	limiter := NewRateLimiter(30, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.GET("/proposals/:id", propH.Get)
		secured.GET("/communities/:id/proposals", propH.ListActive)
		secured.GET("/communities/:id/proposals/resolved", propH.ListResolved)

		mutating := secured.Group("")
		mutating.Use(RateLimitMiddleware(limiter))
		mutating.POST("/proposals", propH.Create)
		mutating.POST("/proposals/:id/votes", voteH.Cast)
		mutating.POST("/proposals/:id/fasttrack", propH.FastTrack)
	}

	admin := v1.Group("/admin")
	admin.Use(AdminMiddleware(cfg.AdminSecret))
	{
		admin.POST("/sweep", NewAdmin(engine).Sweep)
	}
}
