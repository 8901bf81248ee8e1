// Package pipeline orchestrates the fetch -> extract -> chunk ->
// embed -> upsert stages that turn one stored file into searchable
// vector chunks, plus the whole-library reindex maintenance operation.
// Grounded on original_source/backend/scripts/reindex_library.py for
// the per-file and per-library control flow, generalized from a
// standalone script into a service any request handler can call.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/chunk"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/embed"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/extract"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/metaextract"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/object"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/vector"
)

// Pipeline wires every indexing dependency into one reusable service.
type Pipeline struct {
	Metadata  cluster.MetadataStore
	Objects   object.Store
	Extractor *extract.Extractor
	Chunker   *chunk.Chunker
	Embedder  *embed.Client
	Vectors   *vector.Store
}

// Result summarizes the outcome of indexing a single file.
type Result struct {
	FileID      uuid.UUID
	ChunkCount  int
	Skipped     bool
	SkipReason  string
}

// IndexFile runs one file through every stage and upserts its chunks
// into the library's vector collection, matching reindex_file's
// success path. A file with unextractable content still gets a single
// metadata-only chunk, matching the "index with metadata only" branch.
func (p *Pipeline) IndexFile(ctx context.Context, lib *cluster.Library, f *cluster.File) (Result, error) {
	res := Result{FileID: f.ID}

	if !extract.CanExtract(f.ContentType, f.Filename) {
		res.Skipped = true
		res.SkipReason = "content type not extractable"
		return res, nil
	}

	rc, _, err := p.Objects.GetObject(ctx, lib.BucketName, f.StorageKey)
	if err != nil {
		return res, cmn.WrapError(cmn.KindTransient, err, "downloading %s", f.StorageKey)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return res, cmn.WrapError(cmn.KindTransient, err, "reading %s", f.StorageKey)
	}

	text, ok, err := p.Extractor.ExtractText(ctx, content, f.Filename, f.ContentType)
	if err != nil {
		return res, err
	}

	if !ok || text == "" {
		searchable := extract.CreateSearchableContent(f.Filename, f.Path, "", f.ContentType)
		if err := p.upsertSingle(ctx, lib.ID, f, searchable); err != nil {
			return res, err
		}
		res.ChunkCount = 1
		return res, nil
	}

	n, err := p.indexChunked(ctx, lib.ID, f, text)
	if err != nil {
		return res, err
	}
	res.ChunkCount = n
	return res, nil
}

func (p *Pipeline) upsertSingle(ctx context.Context, libraryID uuid.UUID, f *cluster.File, content string) error {
	vec, err := p.Embedder.Generate(ctx, content)
	if err != nil {
		return err
	}
	id := vector.GenerateChunkID(libraryID.String(), f.ID.String(), 0, f.Path)
	meta := map[string]interface{}{"file_id": f.ID.String(), "path": f.Path, "filename": f.Filename}
	return p.Vectors.Upsert(libraryID, []string{id}, []string{content}, [][]float32{vec}, []map[string]interface{}{meta})
}

func (p *Pipeline) indexChunked(ctx context.Context, libraryID uuid.UUID, f *cluster.File, text string) (int, error) {
	lang := chunk.DetectLanguage(f.Filename, text)
	chunks := p.Chunker.ChunkContent(text, f.Filename)
	if len(chunks) == 0 {
		return 0, nil
	}

	var imports []string
	if chunk.IsCodeFile(lang) {
		imports = metaextract.ExtractCode(text, f.Filename, lang).Imports
	}

	ids := make([]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))
	metadatas := make([]map[string]interface{}, 0, len(chunks))

	for _, c := range chunks {
		vec, err := p.Embedder.Generate(ctx, c.Content)
		if err != nil {
			log.Error().Err(err).Str("file", f.Filename).Int("chunk", c.Index).Msg("chunk embedding failed, skipping")
			continue
		}
		meta := c.ToMetadata()
		meta["file_id"] = f.ID.String()
		meta["path"] = f.Path
		meta["filename"] = f.Filename
		if len(imports) > 0 {
			meta["imports"] = imports
		}
		ids = append(ids, vector.GenerateChunkID(libraryID.String(), f.ID.String(), c.Index, f.Path))
		contents = append(contents, c.Content)
		embeddings = append(embeddings, vec)
		metadatas = append(metadatas, meta)
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := p.Vectors.Upsert(libraryID, ids, contents, embeddings, metadatas); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ReindexLibrary re-extracts and re-embeds every non-deleted file in a
// library, optionally filtered to one detected language, matching
// reindex_library's per-library loop.
func (p *Pipeline) ReindexLibrary(ctx context.Context, libraryID uuid.UUID, languageFilter string) (success, failed int, err error) {
	lib, err := p.Metadata.GetLibrary(ctx, libraryID)
	if err != nil {
		return 0, 0, err
	}

	files, err := p.collectAllFiles(ctx, libraryID, nil)
	if err != nil {
		return 0, 0, err
	}

	for _, f := range files {
		if languageFilter != "" {
			if string(chunk.DetectLanguage(f.Filename, "")) != languageFilter {
				continue
			}
		}
		if _, err := p.IndexFile(ctx, lib, f); err != nil {
			log.Error().Err(err).Str("file", f.Filename).Msg("reindex failed")
			failed++
			continue
		}
		success++
	}
	return success, failed, nil
}

// collectAllFiles walks the directory tree under parentID (nil for the
// library root) and returns every file found, since ListDescendantFiles
// requires a concrete starting directory rather than the root itself.
func (p *Pipeline) collectAllFiles(ctx context.Context, libraryID uuid.UUID, parentID *uuid.UUID) ([]*cluster.File, error) {
	files, err := p.Metadata.ListFilesInDirectory(ctx, libraryID, parentID)
	if err != nil {
		return nil, err
	}
	children, err := p.Metadata.ListChildDirectories(ctx, libraryID, parentID)
	if err != nil {
		return nil, err
	}
	for _, d := range children {
		descendants, err := p.Metadata.ListDescendantFiles(ctx, libraryID, d.ID)
		if err != nil {
			return nil, err
		}
		files = append(files, descendants...)
	}
	return files, nil
}

// ClearLibraryIndex drops a library's entire vector collection,
// matching clear_library_index.
func (p *Pipeline) ClearLibraryIndex(libraryID uuid.UUID) error {
	if err := p.Vectors.DeleteCollection(libraryID); err != nil {
		return fmt.Errorf("clearing index for library %s: %w", libraryID, err)
	}
	return nil
}
