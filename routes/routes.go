package routes

import (
	"github.com/bingoroom/bingo-backend/controllers"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ----------------------
	// User routes
	// ----------------------
	api.POST("/users", controllers.RegisterUser)
	api.GET("/users/:id", controllers.GetUser)
	api.PUT("/users/:id", controllers.UpdateProfile)

	// ----------------------
	// Round routes
	// ----------------------
	api.GET("/rounds", controllers.ListRounds)
	api.GET("/rounds/:id/status", controllers.RoundStatus)
	api.POST("/rounds/:id/register", controllers.RegisterForRound)
	api.GET("/rounds/:id/registration", controllers.CheckRegistration)

	// ----------------------
	// Card routes
	// ----------------------
	api.GET("/cards/generate", controllers.GenerateCard)
	api.GET("/rounds/:id/card", controllers.GetCard)
	api.POST("/rounds/:id/card", controllers.FinalizeCard)

	// ----------------------
	// Claim routes
	// ----------------------
	api.POST("/claims", controllers.SubmitClaim)

	// ----------------------
	// Wallet routes
	// ----------------------
	api.POST("/deposit", controllers.Deposit)
	api.POST("/withdraw", controllers.Withdraw)

	// ----------------------
	// Admin routes
	// ----------------------
	admin := api.Group("/admin")
	admin.POST("/rounds", controllers.CreateRound)
	admin.GET("/claims", controllers.ListPendingClaims)
	admin.PUT("/claims/:id", controllers.ResolveClaim)
}
