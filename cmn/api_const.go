// Package cmn provides shared low-level types and utilities for the
// library service.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import "time"

// Header names recognized by the request pipeline and agent transports
// (§4.11, §6).
const (
	HdrCorrelationID = "X-Correlation-ID"
	HdrAgentID       = "X-Agent-ID"
	HdrAuthorization = "Authorization"
	HdrAccept        = "Accept"
	HdrContentType   = "Content-Type"
)

const (
	AcceptProduct = "beaconlibrary" // matches the `vnd.<product>.v<N>+json` scheme
	APIVersion    = 1
)

// Actor kinds recorded on every audit event (§3).
const (
	ActorUser   = "user"
	ActorAI     = "ai"
	ActorSystem = "system"
)

// Share link target/type enumerations (§3; the spec resolves the two
// coexisting `share_type` vocabularies in favor of this one).
const (
	TargetFile      = "file"
	TargetDirectory = "directory"
	TargetLibrary   = "library"

	ShareView     = "view"
	ShareDownload = "download"
	ShareEdit     = "edit"
)

// on_duplicate strategies for file upload init (§4.6).
const (
	OnDuplicateAsk       = "ask"
	OnDuplicateOverwrite = "overwrite"
	OnDuplicateRename    = "rename"
)

// Default durations, overridable via Config.
const (
	DefaultShareViewTokenTTL          = time.Hour
	DefaultShareDownloadEditTokenTTL  = 24 * time.Hour
	DefaultEmbeddingTimeout           = 30 * time.Second
	DefaultTrashRetentionDays         = 30
	DefaultLowConfidenceThreshold     = 0.3
	DefaultMaxChunksPerFile           = 50
	DefaultMCPRateLimitRequests       = 100
	DefaultMCPRateLimitWindowSeconds  = 60
	DefaultPresignedURLExpirySeconds  = 900
	DefaultStorageChunkSizeBytes      = 8 << 20 // 8 MiB multipart part size / threshold
	MultipartMaxPartNumber            = 10000
)
