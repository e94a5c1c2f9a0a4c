package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bingoroom/bingo-backend/config"
	"github.com/bingoroom/bingo-backend/controllers"
	"github.com/bingoroom/bingo-backend/routes"
	"github.com/bingoroom/bingo-backend/services"
	"github.com/bingoroom/bingo-backend/utils/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// setupRouter initializes Gin routes and middleware
func setupRouter(engine *services.Engine) *gin.Engine {
	r := gin.Default()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})

	// WebSocket round channel endpoint
	r.GET("/ws/rounds/:round_id", services.WebSocketHandler(engine))

	return r
}

func main() {
	config.LoadEnv()
	defer logger.Sync()

	db := config.SetupDatabase()

	// Wire the round engine: gorm-backed store, per-round session registry,
	// draw cadence from config.
	store := services.NewGormStore(db)
	registry := services.NewRegistry()
	engine := services.NewEngine(store, registry, config.DrawInterval())
	controllers.Engine = engine

	// Sweep for rounds that cross their play time with nobody watching.
	stop := make(chan struct{})
	defer close(stop)
	go engine.RunScheduler(stop)

	router := setupRouter(engine)

	port := config.Port()
	log.Printf("🚀 Bingo backend listening on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("[FATAL] Failed to start server: %v", err)
	}
}
