package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"taskhub-backend/core-service/handlers"
	"taskhub-backend/core-service/middleware"
	"taskhub-backend/shared/config"
	"taskhub-backend/shared/database"
	"taskhub-backend/shared/utils/cache"

	_ "taskhub-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Redis is optional: the auth middleware falls back to the database
	// when the actor cache is unavailable.
	if err := cache.InitCacheManager(); err != nil {
		log.Printf("⚠️ Redis unavailable, actor cache disabled: %v", err)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	db := database.GetDB()
	userHandler := handlers.NewUserHandler(db)
	taskHandler := handlers.NewTaskHandler(db)
	organizationHandler := handlers.NewOrganizationHandler(db)
	auditHandler := handlers.NewAuditHandler(db)

	api := router.Group("/api", middleware.AuthMiddleware())

	// User routes
	api.GET("/users", userHandler.GetUsers)
	api.GET("/users/:id", userHandler.GetUser)
	api.POST("/users", userHandler.CreateUser)
	api.PUT("/users/:id", userHandler.UpdateUser)
	api.DELETE("/users/:id", userHandler.DeleteUser)

	// Task routes
	api.GET("/tasks", taskHandler.GetTasks)
	api.GET("/tasks/my", taskHandler.GetMyTasks)
	api.GET("/tasks/user/:id", taskHandler.GetTasksByUser)
	api.GET("/tasks/:id", taskHandler.GetTask)
	api.POST("/tasks", taskHandler.CreateTask)
	api.PUT("/tasks/:id", taskHandler.UpdateTask)
	api.DELETE("/tasks/:id", taskHandler.DeleteTask)

	// Organization routes
	api.GET("/organizations/:id", organizationHandler.GetOrganization)
	api.PUT("/organizations/:id", organizationHandler.UpdateOrganization)

	// Audit log routes
	api.GET("/audit-logs", auditHandler.GetAuditLogs)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "core",
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Parse port from config URL
	port := strings.Split(cfg.CoreServiceURL, ":")[2]
	log.Printf("Core Service starting on port %s...", port)
	router.Run(":" + port)
}
