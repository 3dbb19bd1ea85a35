// Package embedder implements the Embedder Client: a deterministic
// mapping from text to fixed-dimension vectors via an external embedding
// service, with pooled concurrency for batch calls.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/logger"
	"github.com/coursewise/ragcore/internal/sliceutil"
	"github.com/panjf2000/ants/v2"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed converts one text to a vector. Fails with EMBED_FAILED on transport errors.
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed converts many texts to vectors, fanning out through a bounded
	// goroutine pool. Returns vectors in the same order as the input texts.
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	GetModelName() string
	GetDimensions() int
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	ModelName  string
	Dimensions int
	MaxRetries int
	Pool       *ants.Pool
}

// Client is an OpenAI-embeddings-API-compatible HTTP client.
type Client struct {
	apiKey     string
	baseURL    string
	modelName  string
	dimensions int
	maxRetries int
	httpClient *http.Client
	pool       *ants.Pool
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// New builds a Client. ModelName is required; BaseURL defaults to the OpenAI
// public endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("embedder: model name is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		modelName:  cfg.ModelName,
		dimensions: cfg.Dimensions,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		pool:       cfg.Pool,
	}, nil
}

// Embed implements Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.doBatchAt(ctx, []string{text}, 0)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.NewEmbedFailedError("embedder: no embedding returned").WithDetails(0)
	}
	return vectors[0], nil
}

// BatchEmbed implements Embedder, fanning out across the configured ants pool
// in batches of 5 texts per request, matching the concurrency shape used
// elsewhere in this codebase for bounded parallel I/O. If any chunk's
// embedding fails, the batch is aborted and the returned error's Details
// carries the index, within texts, of the first text in the failing group.
func (c *Client) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.pool == nil || len(texts) <= 5 {
		return c.doBatchAt(ctx, texts, 0)
	}

	const batchSize = 5
	type slot struct {
		vectors []float32
	}
	slots := make([]slot, len(texts))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	groups := sliceutil.Chunk(indicesOf(len(texts)), batchSize)
	for _, group := range groups {
		group := group
		wg.Add(1)
		task := func() {
			defer wg.Done()
			mu.Lock()
			if firstErr != nil {
				mu.Unlock()
				return
			}
			mu.Unlock()

			groupTexts := make([]string, len(group))
			for i, idx := range group {
				groupTexts[i] = texts[idx]
			}
			vectors, err := c.doBatchAt(ctx, groupTexts, group[0])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for i, idx := range group {
				slots[idx] = slot{vectors: vectors[i]}
			}
		}
		if err := c.pool.Submit(task); err != nil {
			wg.Done()
			return nil, errors.NewEmbedFailedError(fmt.Sprintf("embedder: pool submit failed: %v", err))
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	result := make([][]float32, len(texts))
	for i, s := range slots {
		result[i] = s.vectors
	}
	return result, nil
}

func indicesOf(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// doBatchAt calls doBatch and, on failure, attaches startIndex (this group's
// position within the original BatchEmbed texts slice) as the error Details
// so callers can report which chunk's embedding failed.
func (c *Client) doBatchAt(ctx context.Context, texts []string, startIndex int) ([][]float32, error) {
	vectors, err := c.doBatch(ctx, texts)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr.WithDetails(startIndex)
		}
		return nil, err
	}
	return vectors, nil
}

func (c *Client) doBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.modelName, Input: texts})
	if err != nil {
		return nil, errors.NewEmbedFailedError(fmt.Sprintf("embedder: marshal request: %v", err))
	}

	resp, err := c.doRequestWithRetry(ctx, body)
	if err != nil {
		return nil, errors.NewEmbedFailedError(fmt.Sprintf("embedder: request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewEmbedFailedError(fmt.Sprintf("embedder: read response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewEmbedFailedError(fmt.Sprintf("embedder: http status %s", resp.Status))
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.NewEmbedFailedError(fmt.Sprintf("embedder: unmarshal response: %v", err))
	}

	vectors := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) doRequestWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	url := c.baseURL + "/embeddings"
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			logger.GetLogger(ctx).Warnf("embedder: retrying request (%d/%d) after %v", attempt, c.maxRetries, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// GetModelName implements Embedder.
func (c *Client) GetModelName() string { return c.modelName }

// GetDimensions implements Embedder.
func (c *Client) GetDimensions() int { return c.dimensions }
