// Package embed is a client for an Ollama-compatible embedding
// endpoint: single and batched generation, a health check, and a
// model-pull helper. Grounded on
// original_source/mcp-vector/app/services/embeddings.py.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// Client generates embeddings over HTTP against an Ollama-compatible
// server.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate embeds a single piece of text, matching generate_embedding.
func (c *Client) Generate(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(map[string]string{"model": c.model, "prompt": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("embedding request failed")
		return nil, cmn.WrapError(cmn.KindTransient, err, "generating embedding")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		log.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("embedding http error")
		return nil, cmn.NewError(cmn.KindTransient, "embedding server returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embedding) == 0 {
		return nil, cmn.NewError(cmn.KindTransient, "empty embedding returned")
	}
	return parsed.Embedding, nil
}

// GenerateBatch embeds each text sequentially — the backing server has
// no native batch endpoint, matching generate_embeddings_batch. A
// failed item yields a nil vector rather than aborting the whole batch;
// callers must check each entry.
func (c *Client) GenerateBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := c.Generate(ctx, text)
		if err != nil {
			log.Error().Err(err).Int("index", i).Msg("batch embedding item failed")
			out[i] = nil
			continue
		}
		out[i] = emb
	}
	return out
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *Client) listTags(ctx context.Context, timeout time.Duration) (*tagsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tags endpoint returned status %d", resp.StatusCode)
	}
	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// HealthCheck reports whether the server is reachable, matching
// health_check — a missing model is logged but still counts healthy
// since the server itself answered.
func (c *Client) HealthCheck(ctx context.Context) bool {
	tags, err := c.listTags(ctx, 5*time.Second)
	if err != nil {
		log.Error().Err(err).Msg("embedding health check failed")
		return false
	}
	base := baseModelName(c.model)
	found := false
	for _, m := range tags.Models {
		if baseModelName(m.Name) == base {
			found = true
			break
		}
	}
	if !found {
		log.Warn().Str("model", c.model).Msg("embedding model not found on server")
	}
	return true
}

func baseModelName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// EnsureModelAvailable checks whether the configured model is loaded
// and triggers a pull if not, matching ensure_model_available.
func (c *Client) EnsureModelAvailable(ctx context.Context) bool {
	tags, err := c.listTags(ctx, 5*time.Second)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("checking model availability failed")
		return false
	}
	for _, m := range tags.Models {
		if m.Name == c.model {
			return true
		}
	}
	base := baseModelName(c.model)
	for _, m := range tags.Models {
		if strings.HasPrefix(m.Name, base) {
			return true
		}
	}

	log.Info().Str("model", c.model).Msg("pulling embedding model")
	body, _ := json.Marshal(map[string]string{"name": c.model})
	pullCtx, cancel := context.WithTimeout(ctx, 300*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(pullCtx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("pulling embedding model failed")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("pulling embedding model failed")
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Str("model", c.model).Msg("pulling embedding model failed")
		return false
	}
	return true
}
