// Command libraryd is the library service's single entrypoint: it wires
// every adapter (metadata store, object store, cache, vector store,
// embedding client, identity provider) into the ais.Server REST surface
// and the mcp.Server agent tool surface, then serves the REST surface and
// the SSE agent transport behind the request pipeline of §4.11, and the
// plain agent transport directly on its own fasthttp listener, until
// signaled to stop. Grounded on the
// teacher's ais/daemon.go Run entrypoint, simplified from AIStore's
// multi-runner proxy/target cluster model to the single stateless
// process this service's architecture calls for.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/nicolaslallier/Beacon-Library-sub000/ais"
	"github.com/nicolaslallier/Beacon-Library-sub000/audit"
	"github.com/nicolaslallier/Beacon-Library-sub000/authn"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/chunk"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/embed"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/extract"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/pipeline"
	"github.com/nicolaslallier/Beacon-Library-sub000/mcp"
	"github.com/nicolaslallier/Beacon-Library-sub000/notify"
	reqpipeline "github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
	"github.com/nicolaslallier/Beacon-Library-sub000/share"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/cache"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/metadata"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/object"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/vector"
	"github.com/nicolaslallier/Beacon-Library-sub000/trash"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "/etc/libraryd/config.json", "path to the JSON config file")
	mcpAddr := flag.String("mcp-listen-addr", ":8081", "listen address for the plain MCP transport")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.NewConsoleWriter())

	cfg, err := cmn.LoadConfig(*configPath)
	if err != nil {
		log.Error().Err(err).Str("path", *configPath).Msg("failed to load config")
		return 1
	}
	cmn.GCO.Put(cfg)

	metaStore, err := metadata.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Error().Err(err).Msg("failed to open metadata store")
		return 1
	}

	objStore, err := object.NewS3Store(object.S3Config{
		Region:         os.Getenv("AWS_REGION"),
		Endpoint:       os.Getenv("S3_ENDPOINT"),
		ForcePathStyle: os.Getenv("S3_FORCE_PATH_STYLE") == "true",
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build object store")
		return 1
	}

	objCache := cache.New(cfg.Cache.Prefix, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	vectorStore := vector.NewStore(cfg.VectorStoreURL)
	embedClient := embed.New(cfg.EmbeddingURL, os.Getenv("EMBEDDING_MODEL"), 30*time.Second)
	extractor := extract.New(cfg.ConversionURL)
	chunker := chunk.NewChunker(cfg.Chunk)

	auditSvc := audit.New(metaStore)
	eventBus := notify.NewBus()
	notifySvc := notify.New(metaStore, eventBus)
	trashSvc := trash.New(metaStore, objStore, auditSvc)
	shareSvc := share.New(metaStore, auditSvc, cfg.PublicBaseURL)
	authValidator := authn.NewValidator(cfg.Keycloak)

	indexPipeline := &pipeline.Pipeline{
		Metadata:  metaStore,
		Objects:   objStore,
		Extractor: extractor,
		Chunker:   chunker,
		Embedder:  embedClient,
		Vectors:   vectorStore,
	}

	apiServer := ais.New(ais.Server{
		Metadata: metaStore,
		Objects:  objStore,
		Cache:    objCache,
		Audit:    auditSvc,
		Notify:   notifySvc,
		Bus:      eventBus,
		Trash:    trashSvc,
		Share:    shareSvc,
		Index:    indexPipeline,
		Auth:     authValidator,
		Config:   cfg,
	})

	agentServer := mcp.New(mcp.Server{
		Metadata: metaStore,
		Objects:  objStore,
		Vector:   vectorStore,
		Embed:    embedClient,
		Config:   cfg,
		Policies: mcp.NewPolicyStore(cfg.MCP.DefaultWriteEnabled),
		Limiter:  mcp.NewRateLimiter(cfg.MCP.RateLimitRequests, time.Duration(cfg.MCP.RateLimitWindowSeconds)*time.Second),
	})

	mux := apiServer.Mux()
	mux.HandleFunc("/v1/mcp/sse", agentServer.SSEHandler)
	handler := reqpipeline.Chain(mux,
		reqpipeline.WithCorrelation,
		reqpipeline.WithVersion,
		reqpipeline.WithAuth(authValidator),
		reqpipeline.Log,
	)

	apiHTTP := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // downloads and SSE streams hold the connection open
	}
	mcpHTTP := &fasthttp.Server{Handler: agentServer.PlainHandler}

	stopSweep := make(chan struct{})
	go runTrashSweep(trashSvc, cfg.Trash.RetentionDays, stopSweep)

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("serving REST API")
		if err := apiHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		log.Info().Str("addr", *mcpAddr).Msg("serving plain MCP transport")
		if err := mcpHTTP.ListenAndServe(*mcpAddr); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server exited unexpectedly")
	}

	close(stopSweep)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := apiHTTP.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during REST API shutdown")
	}
	_ = mcpHTTP.Shutdown()
	return 0
}

// runTrashSweep permanently purges everything past its retention
// window on a daily tick, matching the periodic job
// original_source/backend/scripts/purge_trash.py describes as a cron
// entrypoint; here it runs in-process instead of as a separate script.
func runTrashSweep(trashSvc *trash.Service, retentionDays int, stop <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			n, err := trashSvc.CleanupExpired(ctx, retentionDays)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("trash sweep failed")
				continue
			}
			log.Info().Int("purged", n).Msg("trash sweep complete")
		}
	}
}
