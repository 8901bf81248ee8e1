// Package vector adapts a Chroma-like HTTP vector store to the single-
// collection-per-library model of §4.5. Grounded on
// original_source/mcp-vector/app/services/chroma.go for the operation
// set, lazy per-library collection cache, and distance-to-score
// conversion; there is no teacher analogue (AIStore has no embedding
// index), so the transport is built on the pack's
// github.com/valyala/fasthttp client, the non-streaming request/response
// library §4.9's agent tool surface also uses.
package vector

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// Match is one search or get result.
type Match struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score,omitempty"`
	Distance float64                `json:"distance,omitempty"`
}

// Store is a REST client against the vector service, one collection
// per library.
type Store struct {
	baseURL string
	client  *fasthttp.Client

	mu          sync.Mutex
	collections map[string]bool
}

func NewStore(baseURL string) *Store {
	return &Store{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second},
		collections: make(map[string]bool),
	}
}

// CollectionName mirrors _collection_name: Chroma collection names
// reject hyphens, so the library UUID's dashes are replaced.
func CollectionName(libraryID uuid.UUID) string {
	return "beacon_lib_" + strings.ReplaceAll(libraryID.String(), "-", "_")
}

// GenerateChunkID implements §4.5's deterministic chunk identity:
// library_id:doc_id:chunk:chunk_id, falling back to the first 16 hex
// characters of sha256(path) when doc_id is empty.
func GenerateChunkID(libraryID, docID string, chunkID int, path string) string {
	if docID == "" {
		sum := sha256.Sum256([]byte(path))
		docID = hex.EncodeToString(sum[:])[:16]
	}
	return fmt.Sprintf("%s:%s:chunk:%d", libraryID, docID, chunkID)
}

func (s *Store) ensureCollection(libraryID uuid.UUID) error {
	name := CollectionName(libraryID)
	s.mu.Lock()
	exists := s.collections[name]
	s.mu.Unlock()
	if exists {
		return nil
	}
	body, _ := json.Marshal(map[string]interface{}{
		"name":     name,
		"metadata": map[string]string{"library_id": libraryID.String()},
	})
	if _, err := s.post("/collections", body); err != nil {
		return cmn.WrapError(cmn.KindTransient, err, "creating collection %s", name)
	}
	s.mu.Lock()
	s.collections[name] = true
	s.mu.Unlock()
	return nil
}

func (s *Store) post(path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(s.baseURL + path)
	req.SetBody(body)

	if err := s.client.Do(req, resp); err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("vector store %s: status %d: %s", path, resp.StatusCode(), resp.Body())
	}
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}

// Search runs a similarity query against the library's collection and
// converts each result's distance to a bounded [0,1] score per §4.5.
func (s *Store) Search(libraryID uuid.UUID, queryEmbedding []float32, nResults int, where map[string]interface{}) ([]Match, error) {
	if err := s.ensureCollection(libraryID); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"query_embeddings": [][]float32{queryEmbedding},
		"n_results":        nResults,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if where != nil {
		payload["where"] = where
	}
	body, _ := json.Marshal(payload)
	raw, err := s.post("/collections/"+CollectionName(libraryID)+"/query", body)
	if err != nil {
		return nil, cmn.WrapError(cmn.KindTransient, err, "searching collection")
	}

	var parsed struct {
		IDs       [][]string                 `json:"ids"`
		Documents [][]string                 `json:"documents"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
		Distances [][]float64                `json:"distances"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.IDs) == 0 {
		return nil, nil
	}
	out := make([]Match, 0, len(parsed.IDs[0]))
	for i, id := range parsed.IDs[0] {
		var distance float64
		if len(parsed.Distances) > 0 {
			distance = parsed.Distances[0][i]
		}
		out = append(out, Match{
			ID:       id,
			Text:     valueAt(parsed.Documents, i),
			Metadata: metaAt(parsed.Metadatas, i),
			Score:    distanceToScore(distance),
			Distance: distance,
		})
	}
	return out, nil
}

// distanceToScore converts a raw distance into a bounded relevance
// score, matching ChromaDBService.search's conversion exactly.
func distanceToScore(distance float64) float64 {
	if distance < 1 {
		v := 1 - distance
		if v < 0 {
			v = 0
		}
		return v
	}
	return 1 / (1 + distance)
}

func valueAt(rows [][]string, i int) string {
	if len(rows) == 0 || i >= len(rows[0]) {
		return ""
	}
	return rows[0][i]
}

func metaAt(rows [][]map[string]interface{}, i int) map[string]interface{} {
	if len(rows) == 0 || i >= len(rows[0]) {
		return nil
	}
	return rows[0][i]
}

// Upsert overwrites existing ids in place, giving repeated indexing of
// an unchanged file idempotent behavior.
func (s *Store) Upsert(libraryID uuid.UUID, ids []string, contents []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	if err := s.ensureCollection(libraryID); err != nil {
		return err
	}
	body, _ := json.Marshal(map[string]interface{}{
		"ids": ids, "embeddings": embeddings, "documents": contents, "metadatas": metadatas,
	})
	_, err := s.post("/collections/"+CollectionName(libraryID)+"/upsert", body)
	if err != nil {
		return cmn.WrapError(cmn.KindTransient, err, "upserting %d chunks", len(ids))
	}
	return nil
}

func (s *Store) Get(libraryID uuid.UUID, ids []string) ([]Match, error) {
	if err := s.ensureCollection(libraryID); err != nil {
		return nil, err
	}
	body, _ := json.Marshal(map[string]interface{}{"ids": ids, "include": []string{"documents", "metadatas"}})
	raw, err := s.post("/collections/"+CollectionName(libraryID)+"/get", body)
	if err != nil {
		return nil, cmn.WrapError(cmn.KindTransient, err, "getting %d chunks", len(ids))
	}
	var parsed struct {
		IDs       []string                 `json:"ids"`
		Documents []string                 `json:"documents"`
		Metadatas []map[string]interface{} `json:"metadatas"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	out := make([]Match, len(parsed.IDs))
	for i, id := range parsed.IDs {
		m := Match{ID: id}
		if i < len(parsed.Documents) {
			m.Text = parsed.Documents[i]
		}
		if i < len(parsed.Metadatas) {
			m.Metadata = parsed.Metadatas[i]
		}
		out[i] = m
	}
	return out, nil
}

// DeleteByFilter deletes every chunk matching where and returns the
// count removed, matching ChromaDBService.delete_by_filter's
// get-then-delete two-step (Chroma's delete response carries no count).
func (s *Store) DeleteByFilter(libraryID uuid.UUID, where map[string]interface{}) (int, error) {
	if err := s.ensureCollection(libraryID); err != nil {
		return 0, err
	}
	getBody, _ := json.Marshal(map[string]interface{}{"where": where, "include": []string{}})
	raw, err := s.post("/collections/"+CollectionName(libraryID)+"/get", getBody)
	if err != nil {
		return 0, err
	}
	var existing struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(raw, &existing); err != nil {
		return 0, err
	}
	if len(existing.IDs) == 0 {
		return 0, nil
	}
	delBody, _ := json.Marshal(map[string]interface{}{"where": where})
	if _, err := s.post("/collections/"+CollectionName(libraryID)+"/delete", delBody); err != nil {
		return 0, cmn.WrapError(cmn.KindTransient, err, "deleting by filter")
	}
	return len(existing.IDs), nil
}

// DeleteByPathPrefix scans every chunk's metadata client-side since the
// backing store has no native prefix query, matching
// ChromaDBService.delete_by_path_prefix.
func (s *Store) DeleteByPathPrefix(libraryID uuid.UUID, pathPrefix string) (int, error) {
	if err := s.ensureCollection(libraryID); err != nil {
		return 0, err
	}
	raw, err := s.post("/collections/"+CollectionName(libraryID)+"/get",
		mustJSON(map[string]interface{}{"include": []string{"metadatas"}}))
	if err != nil {
		return 0, err
	}
	var all struct {
		IDs       []string                 `json:"ids"`
		Metadatas []map[string]interface{} `json:"metadatas"`
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		return 0, err
	}
	var toDelete []string
	for i, id := range all.IDs {
		var path string
		if i < len(all.Metadatas) {
			if p, ok := all.Metadatas[i]["path"].(string); ok {
				path = p
			}
		}
		if strings.HasPrefix(path, pathPrefix) {
			toDelete = append(toDelete, id)
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	if _, err := s.post("/collections/"+CollectionName(libraryID)+"/delete",
		mustJSON(map[string]interface{}{"ids": toDelete})); err != nil {
		return 0, cmn.WrapError(cmn.KindTransient, err, "deleting %d chunks by path prefix", len(toDelete))
	}
	return len(toDelete), nil
}

func (s *Store) DeleteCollection(libraryID uuid.UUID) error {
	name := CollectionName(libraryID)
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodDelete)
	req.SetRequestURI(s.baseURL + "/collections/" + name)
	if err := s.client.Do(req, resp); err != nil {
		return cmn.WrapError(cmn.KindTransient, err, "deleting collection %s", name)
	}
	s.mu.Lock()
	delete(s.collections, name)
	s.mu.Unlock()
	return nil
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}
