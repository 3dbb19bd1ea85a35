package handler

import (
	"net/http"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/cleanup"
	"github.com/coursewise/ragcore/internal/services"
	"github.com/gin-gonic/gin"
)

// CleanupHandler serves POST /cleanup/course-material.
type CleanupHandler struct {
	svc *services.Services
}

// NewCleanupHandler builds a CleanupHandler.
func NewCleanupHandler(svc *services.Services) *CleanupHandler {
	return &CleanupHandler{svc: svc}
}

type cleanupRequestBody struct {
	CourseID         string `json:"course_id" binding:"required"`
	CourseMaterialID string `json:"course_material_id"`
	DeleteFiles      bool   `json:"delete_files"`
	DeleteVectors    bool   `json:"delete_vectors"`
	DeleteMemory     bool   `json:"delete_memory"`
	ConversationID   string `json:"conversation_id"`
	ForceCleanup     bool   `json:"force_cleanup"`
	CollectionName   string `json:"collection_name"`
}

// CourseMaterial handles POST /cleanup/course-material.
func (h *CleanupHandler) CourseMaterial(c *gin.Context) {
	var body cleanupRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(errors.NewBadRequestError("invalid request body: " + err.Error()))
		return
	}

	collection := body.CollectionName
	if collection == "" {
		collection = h.svc.Config.Qdrant.DefaultCollection
	}

	lockKey := body.CourseID
	if body.CourseMaterialID != "" {
		lockKey = body.CourseID + ":" + body.CourseMaterialID
	}
	unlock := h.svc.TenantLocks.Lock(lockKey)
	defer unlock()

	report := h.svc.Cleanup.Cleanup(c.Request.Context(), cleanup.Request{
		Collection:       collection,
		CourseID:         body.CourseID,
		CourseMaterialID: body.CourseMaterialID,
		DeleteFiles:      body.DeleteFiles,
		DeleteVectors:    body.DeleteVectors,
		DeleteMemory:     body.DeleteMemory,
		ConversationID:   body.ConversationID,
		ForceCleanup:     body.ForceCleanup,
	})

	c.JSON(http.StatusOK, report)
}
