package mcp

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/store/vector"
)

func registerVectorTools(s *Server) {
	s.RegisterTool("vector.query", s.vectorQuery)
	s.RegisterTool("vector.upsert_documents", s.vectorUpsertDocuments)
	s.RegisterTool("vector.get", s.vectorGet)
	s.RegisterTool("vector.delete", s.vectorDelete)
}

func floatOr(args map[string]interface{}, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func mapArg(args map[string]interface{}, key string) map[string]interface{} {
	m, _ := args[key].(map[string]interface{})
	return m
}

func sliceArg(args map[string]interface{}, key string) []interface{} {
	s, _ := args[key].([]interface{})
	return s
}

// vectorQuery implements §4.9's vector.query: embed once, fan out per
// accessible library concurrently, merge by score, truncate to top_k.
// Grounded on tools.py's vector_query.
func (s *Server) vectorQuery(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	start := time.Now()
	queryID := uuid.New().String()

	text := stringArg(args, "text")
	topK := int(floatOr(args, "top_k", 8))
	if topK < 1 {
		topK = 1
	}
	if topK > 50 {
		topK = 50
	}

	filters := mapArg(args, "filters")
	where := map[string]interface{}{}
	if filters != nil {
		if path := stringArg(filters, "path"); path != "" {
			where["path"] = path
		}
		if docID := stringArg(filters, "doc_id"); docID != "" {
			where["doc_id"] = docID
		}
		if docType := stringArg(filters, "doc_type"); docType != "" {
			where["mime_type"] = docType
		}
		if lang := stringArg(filters, "language"); lang != "" {
			where["language"] = lang
		}
		if chunkType := stringArg(filters, "chunk_type"); chunkType != "" {
			where["chunk_type"] = chunkType
		}
	}
	if len(where) == 0 {
		where = nil
	}

	var libraryIDs []uuid.UUID
	if filters != nil && stringArg(filters, "library_id") != "" {
		libID, err := uuid.Parse(stringArg(filters, "library_id"))
		if err != nil {
			s.Metrics.incr(&s.Metrics.ErrorCount)
			return map[string]interface{}{"results": []interface{}{}, "low_confidence": true, "query_id": queryID}
		}
		if CheckRead(s.Policies, libID, agentID) != nil {
			return map[string]interface{}{"results": []interface{}{}, "low_confidence": true, "query_id": queryID}
		}
		libraryIDs = []uuid.UUID{libID}
	} else {
		ids, err := AccessibleLibraries(ctx, s.Metadata, s.Policies, agentID, false)
		if err != nil {
			return map[string]interface{}{"results": []interface{}{}, "low_confidence": true, "query_id": queryID}
		}
		libraryIDs = ids
	}
	if len(libraryIDs) == 0 {
		return map[string]interface{}{"results": []interface{}{}, "low_confidence": true, "query_id": queryID}
	}

	embedding, err := s.Embed.Generate(ctx, text)
	if err != nil {
		s.Metrics.incr(&s.Metrics.ErrorCount)
		return map[string]interface{}{"results": []interface{}{}, "low_confidence": true, "query_id": queryID}
	}

	var mu sync.Mutex
	var all []vector.Match
	var wg sync.WaitGroup
	for _, libID := range libraryIDs {
		libID := libID
		wg.Add(1)
		go func() {
			defer wg.Done()
			matches, err := s.Vector.Search(libID, embedding, topK, where)
			if err != nil {
				return
			}
			mu.Lock()
			all = append(all, matches...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > topK {
		all = all[:topK]
	}

	threshold := 0.3
	if s.Config != nil && s.Config.MCP.LowConfidenceThreshold > 0 {
		threshold = s.Config.MCP.LowConfidenceThreshold
	}
	lowConfidence := len(all) == 0
	if !lowConfidence {
		lowConfidence = true
		for _, r := range all {
			if r.Score >= threshold {
				lowConfidence = false
				break
			}
		}
	}

	results := make([]map[string]interface{}, 0, len(all))
	for _, r := range all {
		results = append(results, map[string]interface{}{
			"id": r.ID, "text": r.Text, "score": r.Score,
			"metadata": queryResultMetadata(r.Metadata),
		})
	}

	s.Metrics.observeQuery(float64(time.Since(start).Microseconds())/1000, len(results), lowConfidence)
	return map[string]interface{}{"results": results, "low_confidence": lowConfidence, "query_id": queryID}
}

func queryResultMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{"path": md["path"]}
	for _, k := range []string{"chunk_id", "doc_id", "library_id", "line_start", "line_end", "page", "language", "chunk_type", "name", "heading", "file_name"} {
		if v, ok := md[k]; ok {
			out[k] = v
		}
	}
	return out
}

// vectorUpsertDocuments implements vector.upsert_documents: group by
// library, per-item write-access and embedding-failure handling, then
// one upsert call per library. Grounded on tools.py's
// vector_upsert_documents.
func (s *Server) vectorUpsertDocuments(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	chunks := sliceArg(args, "chunks")
	metas := sliceArg(args, "metadata")
	if len(chunks) != len(metas) {
		return map[string]interface{}{
			"upserted_count": 0, "ids": []string{},
			"errors": []map[string]interface{}{{"index": 0, "error": "chunks and metadata arrays must have the same length"}},
		}
	}

	type item struct {
		index int
		text  string
		meta  map[string]interface{}
	}
	byLibrary := map[string][]item{}
	var errs []map[string]interface{}

	for i := range chunks {
		text, _ := chunks[i].(string)
		meta, _ := metas[i].(map[string]interface{})
		libIDStr := stringArg(meta, "library_id")
		libID, err := uuid.Parse(libIDStr)
		if err != nil {
			errs = append(errs, map[string]interface{}{"index": i, "error": "invalid library_id"})
			continue
		}
		lib, err := s.Metadata.GetLibrary(ctx, libID)
		if err != nil || lib == nil || CheckWrite(s.Policies, lib, agentID) != nil {
			errs = append(errs, map[string]interface{}{"index": i, "error": "Write access denied for library " + libIDStr})
			continue
		}
		byLibrary[libIDStr] = append(byLibrary[libIDStr], item{index: i, text: text, meta: meta})
	}

	var upsertedIDs []string
	for libIDStr, items := range byLibrary {
		libID, _ := uuid.Parse(libIDStr)
		var ids, contents []string
		var embeddings [][]float32
		var metadatas []map[string]interface{}

		for _, it := range items {
			path := stringArg(it.meta, "path")
			docID := stringArg(it.meta, "doc_id")
			chunkID := int(floatOr(it.meta, "chunk_id", 0))
			chunkDocID := vector.GenerateChunkID(libIDStr, docID, chunkID, path)

			truncated := it.text
			if len(truncated) > 8000 {
				truncated = truncated[:8000]
			}
			embedding, err := s.Embed.Generate(ctx, truncated)
			if err != nil {
				errs = append(errs, map[string]interface{}{"index": it.index, "error": "Failed to generate embedding: " + err.Error()})
				continue
			}
			ids = append(ids, chunkDocID)
			contents = append(contents, it.text)
			embeddings = append(embeddings, embedding)
			metadatas = append(metadatas, upsertMetadata(libIDStr, it.meta))
		}

		if len(ids) == 0 {
			continue
		}
		if err := s.Vector.Upsert(libID, ids, contents, embeddings, metadatas); err != nil {
			for range ids {
				errs = append(errs, map[string]interface{}{"index": 0, "error": "Failed to upsert batch to library " + libIDStr})
			}
			continue
		}
		upsertedIDs = append(upsertedIDs, ids...)
	}

	s.Metrics.incr(&s.Metrics.UpsertCount)
	if errs == nil {
		errs = []map[string]interface{}{}
	}
	if upsertedIDs == nil {
		upsertedIDs = []string{}
	}
	return map[string]interface{}{"upserted_count": len(upsertedIDs), "ids": upsertedIDs, "errors": errs}
}

func upsertMetadata(libraryID string, meta map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"path": stringArg(meta, "path"), "chunk_id": meta["chunk_id"], "library_id": libraryID,
	}
	if docID := stringArg(meta, "doc_id"); docID != "" {
		out["doc_id"] = docID
		out["file_id"] = docID
	}
	for _, k := range []string{"line_start", "line_end", "page", "offset_start", "offset_end", "hash", "language", "chunk_type", "name", "file_name", "mime_type"} {
		if v, ok := meta[k]; ok {
			out[k] = v
		}
	}
	if v, ok := meta["updated_at"]; ok {
		out["updated_at"] = v
	} else {
		out["updated_at"] = time.Now().UTC()
	}
	return out
}

// vectorGet implements vector.get: chunk ids encode their owning
// library as the first colon-delimited segment, matching tools.py's
// id-parsing (library_id:doc_id:chunk:chunk_id).
func (s *Server) vectorGet(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	rawIDs := sliceArg(args, "ids")
	byLibrary := map[string][]string{}
	for _, raw := range rawIDs {
		id, _ := raw.(string)
		parts := strings.SplitN(id, ":", 2)
		if len(parts) == 0 {
			continue
		}
		byLibrary[parts[0]] = append(byLibrary[parts[0]], id)
	}

	var items []map[string]interface{}
	for libIDStr, ids := range byLibrary {
		libID, err := uuid.Parse(libIDStr)
		if err != nil {
			continue
		}
		if CheckRead(s.Policies, libID, agentID) != nil {
			continue
		}
		matches, err := s.Vector.Get(libID, ids)
		if err != nil {
			continue
		}
		for _, m := range matches {
			items = append(items, map[string]interface{}{"id": m.ID, "text": m.Text, "metadata": m.Metadata})
		}
	}
	if items == nil {
		items = []map[string]interface{}{}
	}
	return map[string]interface{}{"items": items}
}

// vectorDelete implements vector.delete: library_id drops the whole
// collection (count reported prior to drop via an unfiltered
// DeleteByFilter rather than a separate count call); doc_id/path_prefix
// iterate every accessible library. Grounded on tools.py's vector_delete.
func (s *Server) vectorDelete(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	where := mapArg(args, "where")
	docID := stringArg(where, "doc_id")
	pathPrefix := stringArg(where, "path_prefix")
	libraryID := stringArg(where, "library_id")

	if docID == "" && pathPrefix == "" && libraryID == "" {
		return map[string]interface{}{"deleted_count": 0}
	}

	s.Metrics.incr(&s.Metrics.DeleteCount)

	if libraryID != "" {
		libID, err := uuid.Parse(libraryID)
		if err != nil {
			return map[string]interface{}{"deleted_count": 0}
		}
		lib, err := s.Metadata.GetLibrary(ctx, libID)
		if err != nil || lib == nil || CheckWrite(s.Policies, lib, agentID) != nil {
			return map[string]interface{}{"deleted_count": 0}
		}
		count, err := s.Vector.DeleteByFilter(libID, nil)
		if err != nil {
			return map[string]interface{}{"deleted_count": 0}
		}
		_ = s.Vector.DeleteCollection(libID)
		return map[string]interface{}{"deleted_count": count}
	}

	libIDs, err := AccessibleLibraries(ctx, s.Metadata, s.Policies, agentID, true)
	if err != nil {
		return map[string]interface{}{"deleted_count": 0}
	}
	deleted := 0
	for _, libID := range libIDs {
		var count int
		var err error
		if docID != "" {
			count, err = s.Vector.DeleteByFilter(libID, map[string]interface{}{"doc_id": docID})
		} else {
			count, err = s.Vector.DeleteByPathPrefix(libID, pathPrefix)
		}
		if err == nil {
			deleted += count
		}
	}
	return map[string]interface{}{"deleted_count": deleted}
}
