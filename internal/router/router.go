package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/coursewise/ragcore/internal/handler"
	"github.com/coursewise/ragcore/internal/middleware"
	"github.com/coursewise/ragcore/internal/services"
)

// NewRouter builds the gin engine and registers every endpoint against svc.
func NewRouter(svc *services.Services) *gin.Engine {
	r := gin.New()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	ragHandler := handler.NewRAGHandler(svc)
	conversationHandler := handler.NewConversationHandler(svc)
	cleanupHandler := handler.NewCleanupHandler(svc)

	v1 := r.Group("/api/v1")
	{
		RegisterRAGRoutes(v1, ragHandler)
		RegisterConversationRoutes(v1, conversationHandler)
		RegisterCleanupRoutes(v1, cleanupHandler)
	}

	return r
}

// RegisterRAGRoutes registers ingestion, collection, and document routes.
func RegisterRAGRoutes(r *gin.RouterGroup, h *handler.RAGHandler) {
	rag := r.Group("/rag")
	{
		rag.POST("/index", h.Index)
		rag.GET("/collections", h.ListCollections)
		rag.GET("/collections/:name", h.GetCollection)
		rag.DELETE("/collections/:name", h.DeleteCollection)
		rag.GET("/collections/:name/count", h.CollectionCount)
		rag.DELETE("/documents/course/:course_id", h.DeleteByCourse)
		rag.DELETE("/documents/material/:course_id/:course_material_id", h.DeleteByMaterial)
	}
}

// RegisterConversationRoutes registers chat and conversation routes.
func RegisterConversationRoutes(r *gin.RouterGroup, h *handler.ConversationHandler) {
	conv := r.Group("/conversation")
	{
		conv.POST("/chat", h.Chat)
		conv.DELETE("/conversations/:id", h.DeleteConversation)
		conv.GET("/engines", h.Engines)
		conv.GET("/health", h.Health)
	}
}

// RegisterCleanupRoutes registers the cleanup coordinator route.
func RegisterCleanupRoutes(r *gin.RouterGroup, h *handler.CleanupHandler) {
	cleanup := r.Group("/cleanup")
	{
		cleanup.POST("/course-material", h.CourseMaterial)
	}
}
