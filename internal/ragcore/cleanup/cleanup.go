// Package cleanup implements the Cleanup Coordinator: orchestrated,
// idempotent teardown of a tenant's files, vectors, and (optionally) one
// conversation's memory.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/memorystore"
	"github.com/coursewise/ragcore/internal/ragcore/vectorstore"
)

const (
	opDeleteFiles   = "delete_files"
	opDeleteVectors = "delete_vectors"
	opDeleteMemory  = "delete_memory"
)

// Coordinator tears down a tenant's files, vectors, and memory.
type Coordinator struct {
	store       vectorstore.Store
	memory      memorystore.Store
	uploadsRoot string
}

// New builds a Coordinator. uploadsRoot is the local filesystem directory
// under which per-tenant material uploads live.
func New(store vectorstore.Store, memory memorystore.Store, uploadsRoot string) *Coordinator {
	return &Coordinator{store: store, memory: memory, uploadsRoot: uploadsRoot}
}

// Request carries the cleanup flags for one tenant.
type Request struct {
	Collection       string
	CourseID         string
	CourseMaterialID string
	DeleteFiles      bool
	DeleteVectors    bool
	DeleteMemory     bool
	ConversationID   string
	ForceCleanup     bool
}

// Cleanup performs each enabled target and aggregates the results. When
// ForceCleanup is set, a per-operation failure is recorded but does not stop
// the remaining targets, and overall Success is still reported true.
// Otherwise, the first failed target short-circuits the rest.
func (c *Coordinator) Cleanup(ctx context.Context, req Request) domain.CleanupReport {
	report := domain.CleanupReport{Success: true}

	if req.DeleteFiles {
		op, filesDeleted := c.deleteFiles(req)
		report.Operations = append(report.Operations, op)
		if op.Success {
			report.DirectoriesCleaned++
			report.FilesDeleted += filesDeleted
		} else {
			report.Success = false
			if !req.ForceCleanup {
				return report
			}
		}
	}

	if req.DeleteVectors {
		op, count := c.deleteVectors(ctx, req)
		report.Operations = append(report.Operations, op)
		report.VectorsDeleted += count
		if !op.Success {
			report.Success = false
			if !req.ForceCleanup {
				return report
			}
		}
	}

	if req.DeleteMemory && req.ConversationID != "" {
		op := c.deleteMemory(ctx, req)
		report.Operations = append(report.Operations, op)
		if !op.Success {
			report.Success = false
			if !req.ForceCleanup {
				return report
			}
		}
	}

	if req.ForceCleanup {
		report.Success = true
	}
	return report
}

// deleteFiles removes the tenant's upload directory. Tolerates "already
// absent" as success.
func (c *Coordinator) deleteFiles(req Request) (domain.CleanupOperation, int) {
	target := tenantDir(c.uploadsRoot, req.CourseID, req.CourseMaterialID)

	if _, err := os.Stat(target); os.IsNotExist(err) {
		return domain.CleanupOperation{OperationType: opDeleteFiles, Target: target, Success: true, Message: "already absent"}, 0
	}

	fileCount := 0
	_ = filepath.Walk(target, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			fileCount++
		}
		return nil
	})

	if err := os.RemoveAll(target); err != nil {
		return domain.CleanupOperation{OperationType: opDeleteFiles, Target: target, Success: false, Message: err.Error()}, 0
	}
	return domain.CleanupOperation{OperationType: opDeleteFiles, Target: target, Success: true, Message: "removed"}, fileCount
}

// deleteVectors deletes by BY_MATERIAL filter when both ids are present,
// otherwise BY_COURSE, tolerating zero matches as success.
func (c *Coordinator) deleteVectors(ctx context.Context, req Request) (domain.CleanupOperation, int) {
	var filter domain.FilterSpec
	var target string
	if req.CourseMaterialID != "" {
		filter = domain.FilterSpec{Kind: domain.FilterByMaterial, CourseMaterialID: req.CourseMaterialID}
		target = req.CourseMaterialID
	} else {
		filter = domain.FilterSpec{Kind: domain.FilterByCourse, CourseID: req.CourseID}
		target = req.CourseID
	}

	count, err := c.store.DeleteByFilter(ctx, req.Collection, filter)
	if err != nil {
		return domain.CleanupOperation{OperationType: opDeleteVectors, Target: target, Success: false, Message: err.Error()}, 0
	}
	return domain.CleanupOperation{OperationType: opDeleteVectors, Target: target, Success: true, Message: fmt.Sprintf("deleted %d vectors", count)}, count
}

// deleteMemory clears one conversation's stored memory.
func (c *Coordinator) deleteMemory(ctx context.Context, req Request) domain.CleanupOperation {
	if err := c.memory.Delete(ctx, req.ConversationID); err != nil {
		return domain.CleanupOperation{OperationType: opDeleteMemory, Target: req.ConversationID, Success: false, Message: err.Error()}
	}
	return domain.CleanupOperation{OperationType: opDeleteMemory, Target: req.ConversationID, Success: true, Message: "cleared"}
}

func tenantDir(root, courseID, courseMaterialID string) string {
	return filepath.Join(root, courseID, courseMaterialID)
}
