// Package services is the composition root: it builds every long-lived
// collaborator once at startup (vector store, memory store, embedding and
// generation clients, the worker pool, the prompt registry, the lock
// managers) and wires them into the engines the HTTP layer calls. Nothing in
// this package is a package-level variable; every field is constructed
// explicitly in New and threaded through as a *Services pointer.
package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/coursewise/ragcore/internal/config"
	"github.com/coursewise/ragcore/internal/lock"
	"github.com/coursewise/ragcore/internal/ragcore/chunker"
	"github.com/coursewise/ragcore/internal/ragcore/cleanup"
	"github.com/coursewise/ragcore/internal/ragcore/convmemory"
	"github.com/coursewise/ragcore/internal/ragcore/embedder"
	"github.com/coursewise/ragcore/internal/ragcore/generator"
	"github.com/coursewise/ragcore/internal/ragcore/indexing"
	"github.com/coursewise/ragcore/internal/ragcore/memorystore"
	"github.com/coursewise/ragcore/internal/ragcore/orchestrator"
	"github.com/coursewise/ragcore/internal/ragcore/prompts"
	"github.com/coursewise/ragcore/internal/ragcore/retrieval"
	"github.com/coursewise/ragcore/internal/ragcore/vectorstore"
	"github.com/panjf2000/ants/v2"
)

// CleanupFunc releases one resource. Registered functions run in reverse
// order (last registered, first released) on shutdown.
type CleanupFunc func() error

// ResourceCleaner collects release functions for graceful shutdown.
type ResourceCleaner struct {
	mu       sync.Mutex
	cleanups []CleanupFunc
}

// NewResourceCleaner builds an empty ResourceCleaner.
func NewResourceCleaner() *ResourceCleaner {
	return &ResourceCleaner{}
}

// RegisterWithName registers a named cleanup function; the name appears in
// shutdown logs so a hang can be attributed to the stuck resource.
func (c *ResourceCleaner) RegisterWithName(name string, fn CleanupFunc) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, func() error {
		log.Printf("cleaning up resource: %s", name)
		if err := fn(); err != nil {
			log.Printf("error cleaning up resource %s: %v", name, err)
			return err
		}
		return nil
	})
}

// Cleanup runs every registered function in reverse-registration order,
// collecting (rather than stopping on) individual failures.
func (c *ResourceCleaner) Cleanup(ctx context.Context) []error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return errs
		default:
			if err := c.cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// Services owns every long-lived collaborator and the engines built from
// them. It is built once in main and passed by reference to the router.
type Services struct {
	Config *config.Config

	VectorStore vectorstore.Store
	MemoryStore memorystore.Store
	Embedder    embedder.Embedder
	Generator   generator.Generator
	Prompts     *prompts.Registry

	Indexing     *indexing.Engine
	Retrieval    *retrieval.Engine
	ConvMemory   *convmemory.Manager
	Orchestrator *orchestrator.Orchestrator
	Cleanup      *cleanup.Coordinator

	ConversationLocks *lock.KeyedMutex
	TenantLocks       *lock.KeyedMutex

	Cleaner *ResourceCleaner
}

// New builds every collaborator from cfg and wires them together. Any
// construction failure is fatal at startup.
func New(cfg *config.Config) (*Services, error) {
	cleaner := NewResourceCleaner()

	store, err := vectorstore.New(vectorstore.Config{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		PreferGRPC:      cfg.Qdrant.PreferGRPC,
		Timeout:         cfg.Qdrant.Timeout,
		VectorDimension: cfg.Qdrant.VectorDimension,
	})
	if err != nil {
		return nil, fmt.Errorf("services: build vector store: %w", err)
	}
	cleaner.RegisterWithName("qdrant client", store.Close)

	memStore, err := memorystore.New(memorystore.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("services: build memory store: %w", err)
	}
	cleaner.RegisterWithName("redis client", memStore.Close)

	pool, err := ants.NewPool(cfg.Embedding.PoolSize, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("services: build embedding worker pool: %w", err)
	}
	cleaner.RegisterWithName("embedding worker pool", func() error {
		pool.Release()
		return nil
	})

	embed, err := embedder.New(embedder.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		ModelName:  cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxRetries: cfg.Embedding.MaxRetries,
		Pool:       pool,
	})
	if err != nil {
		return nil, fmt.Errorf("services: build embedder client: %w", err)
	}

	gen, err := generator.New(generator.Config{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("services: build generator client: %w", err)
	}

	chunk, err := chunker.New(chunker.Config{
		ChunkSize:    cfg.Chunk.Size,
		ChunkOverlap: cfg.Chunk.Overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("services: build chunker: %w", err)
	}

	reg, err := prompts.Load(prompts.Source{
		CondenseQuestion:   cfg.Prompts.CondenseQuestion,
		ContextIntegration: cfg.Prompts.ContextIntegration,
		SimpleSystem:       cfg.Prompts.SimpleSystem,
		SummaryCompaction:  cfg.Prompts.SummaryCompaction,
	})
	if err != nil {
		return nil, fmt.Errorf("services: load prompt templates: %w", err)
	}

	indexingEngine := indexing.New(store, embed, chunk)
	retrievalEngine := retrieval.New(store, embed, cfg.Conversation.SimilarityTopK)
	convMemory := convmemory.New(memStore, gen, reg, convmemory.Config{
		TokenLimit:  cfg.Conversation.TokenLimit,
		MaxMessages: cfg.Conversation.MaxMessages,
		TailKeep:    cfg.Conversation.TailKeep,
	})
	chatOrchestrator := orchestrator.New(retrievalEngine, gen, convMemory, reg)
	cleanupCoordinator := cleanup.New(store, memStore, cfg.Uploads.Root)

	return &Services{
		Config:            cfg,
		VectorStore:       store,
		MemoryStore:       memStore,
		Embedder:          embed,
		Generator:         gen,
		Prompts:           reg,
		Indexing:          indexingEngine,
		Retrieval:         retrievalEngine,
		ConvMemory:        convMemory,
		Orchestrator:      chatOrchestrator,
		Cleanup:           cleanupCoordinator,
		ConversationLocks: lock.New(),
		TenantLocks:       lock.New(),
		Cleaner:           cleaner,
	}, nil
}
