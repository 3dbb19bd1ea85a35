package handler

import (
	"net/http"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/services"
	"github.com/gin-gonic/gin"
)

// ConversationHandler serves the /conversation group: chat, conversation
// teardown, the engine catalog, and the health probe.
type ConversationHandler struct {
	svc *services.Services
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(svc *services.Services) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type chatRequestBody struct {
	ConversationID   string `json:"conversation_id" binding:"required"`
	Question         string `json:"question" binding:"required"`
	ChatEngineType   string `json:"chat_engine_type"`
	CourseID         string `json:"course_id"`
	CourseMaterialID string `json:"course_material_id"`
	CollectionName   string `json:"collection_name"`
}

// Chat handles POST /conversation/chat.
func (h *ConversationHandler) Chat(c *gin.Context) {
	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errors.NewBadRequestError("invalid request body: " + err.Error()))
		return
	}

	engineMode := domain.EngineRetrievalAugmented
	if body.ChatEngineType == string(domain.EngineDirect) {
		engineMode = domain.EngineDirect
	}

	collection := body.CollectionName
	if collection == "" {
		collection = h.svc.Config.Qdrant.DefaultCollection
	}

	unlock := h.svc.ConversationLocks.Lock(body.ConversationID)
	defer unlock()

	resp, err := h.svc.Orchestrator.Chat(c.Request.Context(), domain.ChatRequest{
		ConversationID:   body.ConversationID,
		Question:         body.Question,
		EngineMode:       engineMode,
		CourseID:         body.CourseID,
		CourseMaterialID: body.CourseMaterialID,
		CollectionName:   collection,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":          resp.Answer,
		"sources":         resp.Sources,
		"conversation_id": resp.ConversationID,
		"engine_mode":     resp.EngineMode,
		"filter_info":     resp.FilterInfo,
		"processing_time": resp.ProcessingTime.Seconds(),
	})
}

// DeleteConversation handles DELETE /conversation/conversations/{id}.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	id := c.Param("id")

	unlock := h.svc.ConversationLocks.Lock(id)
	defer unlock()

	if err := h.svc.ConvMemory.Clear(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation_id": id})
}

// Engines handles GET /conversation/engines.
func (h *ConversationHandler) Engines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"engines": []gin.H{
			{"type": string(domain.EngineRetrievalAugmented), "description": "retrieval-augmented answers grounded in indexed course material"},
			{"type": string(domain.EngineDirect), "description": "direct chat with no retrieval step"},
		},
	})
}

// Health handles GET /conversation/health.
func (h *ConversationHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"service_info": gin.H{
			"default_collection": h.svc.Config.Qdrant.DefaultCollection,
		},
	})
}
