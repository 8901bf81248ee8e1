// Package object wraps a generic S3-like object store with the two
// upload paths, streaming download, presigned URLs, and bucket
// lifecycle that the file service composes on top of (§4.1). Grounded
// on the teacher's ais/cloud/aws.go (aws-sdk-go session/client idiom,
// error translation) generalized from a LOM-bound cloud mirror to a
// standalone client adapter, since this service talks to the object
// store directly rather than serving as one.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package object

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Part describes one completed segment of a multipart upload.
type Part struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
	Size       int64  `json:"size"`
}

// PutResult is returned by a completed single-part or multipart upload.
type PutResult struct {
	ETag string
	Size int64
}

// Store is the contract every backend (S3, GCS, Azure) satisfies. The
// library/directory/file service depends on this interface, never on a
// concrete backend, mirroring the teacher's cluster.BackendProvider
// abstraction.
type Store interface {
	CreateBucket(ctx context.Context, bucket string) error
	HeadBucket(ctx context.Context, bucket string) (bool, error)

	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (PutResult, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
	HeadObject(ctx context.Context, bucket, key string) (size int64, etag string, err error)
	DeleteObject(ctx context.Context, bucket, key string) error
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	StartMultipartUpload(ctx context.Context, bucket, key, contentType string, meta map[string]string) (uploadID string, err error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, r io.Reader, size int64) (Part, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []Part) (PutResult, error)
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error

	PresignedDownloadURL(bucket, key string, expiresIn time.Duration, filename string) (string, error)
	PresignedUploadURL(bucket, key string, expiresIn time.Duration, contentType string) (string, error)
}

// GenerateStorageKey implements the documented storage_key format from
// §3: "{library_id}/{dir_path}/{filename}_v{version}" inside a
// directory, or "{library_id}/{filename}_v{version}" when dirPath is
// empty (the library root). dirPath is used as given, so callers pass it
// without leading or trailing slashes.
func GenerateStorageKey(libraryID, dirPath, filename string, version int) string {
	if dirPath == "" {
		return fmt.Sprintf("%s/%s_v%d", libraryID, filename, version)
	}
	return fmt.Sprintf("%s/%s/%s_v%d", libraryID, dirPath, filename, version)
}

// MultipartMaxPartNumber is the same ceiling aws-sdk-go's s3manager
// enforces; re-declared here so callers don't import the SDK just to
// validate a part_number.
const MultipartMaxPartNumber = 10000
