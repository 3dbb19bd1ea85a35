package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/services"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// RAGHandler serves the /rag group: ingestion, collection, and document
// management endpoints.
type RAGHandler struct {
	svc *services.Services
}

// NewRAGHandler builds a RAGHandler.
func NewRAGHandler(svc *services.Services) *RAGHandler {
	return &RAGHandler{svc: svc}
}

// Index handles POST /rag/index.
func (h *RAGHandler) Index(c *gin.Context) {
	start := time.Now()

	courseID := c.PostForm("course_id")
	courseMaterialID := c.PostForm("course_material_id")
	materialName := c.PostForm("course_material_name")
	collection := c.DefaultPostForm("collection_name", h.svc.Config.Qdrant.DefaultCollection)

	if courseID == "" || courseMaterialID == "" || materialName == "" {
		c.Error(errors.NewBadRequestError("course_id, course_material_id and course_material_name are required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(errors.NewBadRequestError("file is required"))
		return
	}
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".md", ".txt":
	default:
		c.Error(errors.NewBadRequestError("only .md and .txt files are accepted"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.Error(errors.NewBadRequestError("file exceeds the 10 MiB upload limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.Error(errors.NewInternalServerError("failed to open uploaded file"))
		return
	}
	defer file.Close()

	text, err := io.ReadAll(file)
	if err != nil {
		c.Error(errors.NewInternalServerError("failed to read uploaded file"))
		return
	}

	unlock := h.svc.TenantLocks.Lock(courseID + ":" + courseMaterialID)
	defer unlock()

	doc := domain.Document{
		Tenant: domain.TenantKey{
			CourseID:         courseID,
			CourseMaterialID: courseMaterialID,
		},
		MaterialName: materialName,
		Text:         string(text),
		FileSize:     fileHeader.Size,
		UploadedAt:   time.Now(),
	}

	result, err := h.svc.Indexing.BuildIndex(c.Request.Context(), collection, doc)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "document indexed",
		"document_count":  1,
		"chunk_count":     result.ChunksIndexed,
		"processing_time": time.Since(start).Seconds(),
		"collection_name": collection,
	})
}

// ListCollections handles GET /rag/collections.
func (h *RAGHandler) ListCollections(c *gin.Context) {
	names, err := h.svc.VectorStore.ListCollections(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		count, err := h.svc.VectorStore.Count(c.Request.Context(), name, domain.FilterSpec{Kind: domain.FilterNone})
		if err != nil {
			c.Error(err)
			return
		}
		out = append(out, gin.H{"name": name, "vectors_count": count})
	}
	c.JSON(http.StatusOK, out)
}

// GetCollection handles GET /rag/collections/{name}.
func (h *RAGHandler) GetCollection(c *gin.Context) {
	name := c.Param("name")
	names, err := h.svc.VectorStore.ListCollections(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	for _, n := range names {
		if n == name {
			count, err := h.svc.VectorStore.Count(c.Request.Context(), name, domain.FilterSpec{Kind: domain.FilterNone})
			if err != nil {
				c.Error(err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"name": name, "vectors_count": count})
			return
		}
	}
	c.Error(errors.NewNotFoundError("collection not found"))
}

// DeleteCollection handles DELETE /rag/collections/{name}.
func (h *RAGHandler) DeleteCollection(c *gin.Context) {
	name := c.Param("name")
	if err := h.svc.VectorStore.DeleteCollection(c.Request.Context(), name); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "collection_name": name, "message": "collection deleted"})
}

// CollectionCount handles GET /rag/collections/{name}/count.
func (h *RAGHandler) CollectionCount(c *gin.Context) {
	name := c.Param("name")
	count, err := h.svc.VectorStore.Count(c.Request.Context(), name, domain.FilterSpec{Kind: domain.FilterNone})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection_name": name, "document_count": count})
}

// DeleteByCourse handles DELETE /rag/documents/course/{course_id}.
func (h *RAGHandler) DeleteByCourse(c *gin.Context) {
	courseID := c.Param("course_id")
	collection := c.DefaultQuery("collection_name", h.svc.Config.Qdrant.DefaultCollection)

	unlock := h.svc.TenantLocks.Lock(courseID)
	defer unlock()

	count, err := h.svc.VectorStore.DeleteByFilter(c.Request.Context(), collection, domain.FilterSpec{Kind: domain.FilterByCourse, CourseID: courseID})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course_id": courseID, "deleted_count": count})
}

// DeleteByMaterial handles DELETE /rag/documents/material/{course_id}/{course_material_id}.
func (h *RAGHandler) DeleteByMaterial(c *gin.Context) {
	courseID := c.Param("course_id")
	courseMaterialID := c.Param("course_material_id")
	collection := c.DefaultQuery("collection_name", h.svc.Config.Qdrant.DefaultCollection)

	unlock := h.svc.TenantLocks.Lock(courseID + ":" + courseMaterialID)
	defer unlock()

	count, err := h.svc.VectorStore.DeleteByFilter(c.Request.Context(), collection, domain.FilterSpec{Kind: domain.FilterByMaterial, CourseMaterialID: courseMaterialID})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted_count": count})
}
