// Package cmn provides shared low-level types and utilities for the
// library service.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"encoding/json"
	"os"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Validator mirrors the teacher's cmn/config.go convention: every
// sub-config validates itself, and Config.Validate() fans out to each.
type Validator interface {
	Validate() error
}

type (
	StorageConf struct {
		ChunkSizeBytes     int64  `json:"storage_chunk_size"`
		MaxFileSizeBytes   int64  `json:"storage_max_file_size"`
		PresignedURLExpiry int    `json:"storage_presigned_url_expiry"`
		BucketPrefix       string `json:"storage_bucket_prefix"`
	}

	ChunkConf struct {
		ChunkSizeCodeTokens int `json:"chunk_size_code"`
		ChunkSizeDocsTokens int `json:"chunk_size_docs"`
		OverlapTokens       int `json:"chunk_overlap"`
		MaxChunksPerFile    int `json:"max_chunks_per_file"`
	}

	MCPConf struct {
		RateLimitRequests      int     `json:"mcp_rate_limit_requests"`
		RateLimitWindowSeconds int     `json:"mcp_rate_limit_window"`
		DefaultWriteEnabled    bool    `json:"mcp_default_write_enabled"`
		LowConfidenceThreshold float64 `json:"low_confidence_threshold"`
	}

	ShareConf struct {
		MaxExpiryDays     int `json:"share_link_max_expiry_days"`
		DefaultExpiryDays int `json:"share_link_default_expiry_days"`
	}

	CacheConf struct {
		TTLSeconds int    `json:"cache_ttl_seconds"`
		Prefix     string `json:"cache_prefix"`
	}

	TrashConf struct {
		RetentionDays int `json:"trash_retention_days"`
	}

	SMTPConf struct {
		Host     string `json:"smtp_host"`
		Port     int    `json:"smtp_port"`
		User     string `json:"smtp_user"`
		Password string `json:"smtp_password"`
		UseTLS   bool   `json:"smtp_use_tls"`
		From     string `json:"smtp_from"`
		FromName string `json:"smtp_from_name"`
	}

	KeycloakConf struct {
		URL          string        `json:"keycloak_url"`
		Realm        string        `json:"keycloak_realm"`
		ClientID     string        `json:"keycloak_client_id"`
		Audience     string        `json:"keycloak_audience"`
		VerifyToken  bool          `json:"keycloak_verify_token"`
		JWKSCacheTTL time.Duration `json:"-"`
	}

	Config struct {
		Storage  StorageConf  `json:"storage"`
		Chunk    ChunkConf    `json:"chunk"`
		MCP      MCPConf      `json:"mcp"`
		Share    ShareConf    `json:"share"`
		Cache    CacheConf    `json:"cache"`
		Trash    TrashConf    `json:"trash"`
		SMTP     SMTPConf     `json:"smtp"`
		Keycloak KeycloakConf `json:"keycloak"`

		DatabaseDSN    string `json:"database_dsn"`
		VectorStoreURL string `json:"vector_store_url"`
		EmbeddingURL   string `json:"embedding_url"`
		ConversionURL  string `json:"conversion_url"`
		PublicBaseURL  string `json:"public_base_url"`

		ListenAddr string `json:"listen_addr"`
	}
)

func (c *StorageConf) Validate() error {
	if c.ChunkSizeBytes <= 0 {
		c.ChunkSizeBytes = DefaultStorageChunkSizeBytes
	}
	if c.PresignedURLExpiry <= 0 {
		c.PresignedURLExpiry = DefaultPresignedURLExpirySeconds
	}
	if c.BucketPrefix == "" {
		c.BucketPrefix = "lib"
	}
	return nil
}

func (c *ChunkConf) Validate() error {
	if c.ChunkSizeCodeTokens <= 0 {
		c.ChunkSizeCodeTokens = 400
	}
	if c.ChunkSizeDocsTokens <= 0 {
		c.ChunkSizeDocsTokens = 800
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = 50
	}
	if c.MaxChunksPerFile <= 0 {
		c.MaxChunksPerFile = DefaultMaxChunksPerFile
	}
	return nil
}

func (c *MCPConf) Validate() error {
	if c.RateLimitRequests <= 0 {
		c.RateLimitRequests = DefaultMCPRateLimitRequests
	}
	if c.RateLimitWindowSeconds <= 0 {
		c.RateLimitWindowSeconds = DefaultMCPRateLimitWindowSeconds
	}
	if c.LowConfidenceThreshold <= 0 {
		c.LowConfidenceThreshold = DefaultLowConfidenceThreshold
	}
	return nil
}

func (c *ShareConf) Validate() error {
	if c.DefaultExpiryDays <= 0 {
		c.DefaultExpiryDays = 7
	}
	if c.MaxExpiryDays <= 0 {
		c.MaxExpiryDays = 90
	}
	return nil
}

func (c *CacheConf) Validate() error {
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 60
	}
	if c.Prefix == "" {
		c.Prefix = "lib"
	}
	return nil
}

func (c *TrashConf) Validate() error {
	if c.RetentionDays <= 0 {
		c.RetentionDays = DefaultTrashRetentionDays
	}
	return nil
}

func (c *Config) Validate() error {
	validators := []Validator{&c.Storage, &c.Chunk, &c.MCP, &c.Share, &c.Cache, &c.Trash}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	return nil
}

// LoadConfig reads and validates a JSON config file, grounded on the
// teacher's cmn/config.go load path but simplified: a single file, no
// cluster/local split, no override layer.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := &Config{}
	if err := jsonAPI.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// owner holds the live config behind an atomic pointer so handlers read
// a consistent snapshot without taking a lock — the teacher's
// globalConfigOwner idiom (cmn/config.go), reduced to the single-node
// case this service targets.
type owner struct {
	p atomic.Pointer[Config]
}

var GCO = &owner{}

func (o *owner) Get() *Config {
	c := o.p.Load()
	if c == nil {
		return &Config{}
	}
	return c
}

func (o *owner) Put(c *Config) { o.p.Store(c) }

// MustMarshal is a convenience used by DTOs that must never fail to
// encode (programmer error if they do).
func MustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
