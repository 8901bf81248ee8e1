package object

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// S3Store is the default backend, grounded on the teacher's
// ais/cloud/aws.go session-per-client pattern. One *s3.S3 is built
// once at construction rather than per-request: this service owns a
// single region/endpoint per deployment, unlike the teacher's
// per-bucket remote-region lookup.
type S3Store struct {
	svc        *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

var _ Store = (*S3Store)(nil)

// S3Config carries the subset of aws.Config this service cares about;
// Endpoint/ForcePathStyle support MinIO and other S3-compatible
// targets without a second backend implementation.
type S3Config struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	awsConf := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsConf.Endpoint = aws.String(cfg.Endpoint)
		awsConf.S3ForcePathStyle = aws.Bool(cfg.ForcePathStyle)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
		Config:            *awsConf,
	})
	if err != nil {
		return nil, cmn.WrapError(cmn.KindFatal, err, "creating s3 session")
	}
	svc := s3.New(sess)
	return &S3Store{
		svc:        svc,
		uploader:   s3manager.NewUploaderWithClient(svc),
		downloader: s3manager.NewDownloaderWithClient(svc),
	}, nil
}

func translateErr(err error, kind cmn.Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if reqErr, ok := err.(awserr.RequestFailure); ok {
		if reqErr.Code() == s3.ErrCodeNoSuchBucket || reqErr.Code() == s3.ErrCodeNoSuchKey {
			kind = cmn.KindNotFound
		}
		log.Debug().Str("aws_code", reqErr.Code()).Int("status", reqErr.StatusCode()).Msg("s3 request failed")
	}
	return cmn.WrapError(kind, err, format, args...)
}

func (s *S3Store) CreateBucket(ctx context.Context, bucket string) error {
	_, err := s.svc.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok &&
			(aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou || aerr.Code() == s3.ErrCodeBucketAlreadyExists) {
			return nil
		}
		return translateErr(err, cmn.KindTransient, "creating bucket %s", bucket)
	}
	return nil
}

func (s *S3Store) HeadBucket(ctx context.Context, bucket string) (bool, error) {
	_, err := s.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		if aerr, ok := err.(awserr.RequestFailure); ok && aerr.StatusCode() == 404 {
			return false, nil
		}
		return false, translateErr(err, cmn.KindTransient, "heading bucket %s", bucket)
	}
	return true, nil
}

func (s *S3Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (PutResult, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return PutResult{}, translateErr(err, cmn.KindTransient, "putting object %s/%s", bucket, key)
	}
	return PutResult{ETag: aws.StringValue(out.ETag), Size: size}, nil
}

func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, 0, translateErr(err, cmn.KindNotFound, "getting object %s/%s", bucket, key)
	}
	return out.Body, aws.Int64Value(out.ContentLength), nil
}

func (s *S3Store) HeadObject(ctx context.Context, bucket, key string) (int64, string, error) {
	out, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return 0, "", translateErr(err, cmn.KindNotFound, "heading object %s/%s", bucket, key)
	}
	return aws.Int64Value(out.ContentLength), aws.StringValue(out.ETag), nil
}

func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return translateErr(err, cmn.KindTransient, "deleting object %s/%s", bucket, key)
	}
	return nil
}

func (s *S3Store) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]*s3.ObjectIdentifier, len(keys))
	for i, k := range keys {
		ids[i] = &s3.ObjectIdentifier{Key: aws.String(k)}
	}
	_, err := s.svc.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &s3.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return translateErr(err, cmn.KindTransient, "deleting %d objects from %s", len(keys), bucket)
	}
	return nil
}

func (s *S3Store) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := s.svc.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(url.PathEscape(srcBucket + "/" + srcKey)),
	})
	if err != nil {
		return translateErr(err, cmn.KindTransient, "copying %s/%s to %s/%s", srcBucket, srcKey, dstBucket, dstKey)
	}
	return nil
}

func (s *S3Store) StartMultipartUpload(ctx context.Context, bucket, key, contentType string, meta map[string]string) (string, error) {
	md := make(map[string]*string, len(meta))
	for k, v := range meta {
		md[k] = aws.String(v)
	}
	out, err := s.svc.CreateMultipartUploadWithContext(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    md,
	})
	if err != nil {
		return "", translateErr(err, cmn.KindTransient, "starting multipart upload for %s/%s", bucket, key)
	}
	return aws.StringValue(out.UploadId), nil
}

func (s *S3Store) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, r io.Reader, size int64) (Part, error) {
	if partNumber < 1 || partNumber > MultipartMaxPartNumber {
		return Part{}, cmn.NewError(cmn.KindValidation, "part_number %d out of range [1,%d]", partNumber, MultipartMaxPartNumber)
	}
	out, err := s.svc.UploadPartWithContext(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int64(int64(partNumber)),
		Body:          toReadSeeker(r),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return Part{}, translateErr(err, cmn.KindTransient, "uploading part %d for %s/%s", partNumber, bucket, key)
	}
	return Part{PartNumber: partNumber, ETag: aws.StringValue(out.ETag), Size: size}, nil
}

func (s *S3Store) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []Part) (PutResult, error) {
	sorted := make([]Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	completed := make([]*s3.CompletedPart, len(sorted))
	var total int64
	for i, p := range sorted {
		completed[i] = &s3.CompletedPart{ETag: aws.String(p.ETag), PartNumber: aws.Int64(int64(p.PartNumber))}
		total += p.Size
	}

	out, err := s.svc.CompleteMultipartUploadWithContext(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return PutResult{}, translateErr(err, cmn.KindTransient, "completing multipart upload for %s/%s", bucket, key)
	}

	// The SDK's completion response carries an ETag but not a
	// ContentLength; HEAD the freshly completed object for the
	// authoritative size, per §4.1's "completion fetches object size
	// via HEAD" contract.
	size, _, headErr := s.HeadObject(ctx, bucket, key)
	if headErr != nil {
		size = total
	}
	return PutResult{ETag: aws.StringValue(out.ETag), Size: size}, nil
}

func (s *S3Store) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	_, err := s.svc.AbortMultipartUploadWithContext(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return translateErr(err, cmn.KindTransient, "aborting multipart upload for %s/%s", bucket, key)
	}
	return nil
}

// PresignedDownloadURL signs a GetObject request carrying a
// Content-Disposition header with both an ASCII fallback and an
// RFC-5987 UTF-8 encoded filename, per §4.1.
func (s *S3Store) PresignedDownloadURL(bucket, key string, expiresIn time.Duration, filename string) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket:                     aws.String(bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(contentDisposition(filename)),
	})
	url, err := req.Presign(expiresIn)
	if err != nil {
		return "", cmn.WrapError(cmn.KindTransient, err, "presigning download url for %s/%s", bucket, key)
	}
	return url, nil
}

func (s *S3Store) PresignedUploadURL(bucket, key string, expiresIn time.Duration, contentType string) (string, error) {
	req, _ := s.svc.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	url, err := req.Presign(expiresIn)
	if err != nil {
		return "", cmn.WrapError(cmn.KindTransient, err, "presigning upload url for %s/%s", bucket, key)
	}
	return url, nil
}

// contentDisposition builds "attachment; filename=...; filename*=UTF-8''..."
// so clients without RFC-5987 support still see a sane ASCII name.
func contentDisposition(filename string) string {
	ascii := mime.QEncoding.Encode("US-ASCII", filename)
	if ascii == filename {
		return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, filename, url.PathEscape(filename))
	}
	return fmt.Sprintf(`attachment; filename="download"; filename*=UTF-8''%s`, url.PathEscape(filename))
}

// toReadSeeker adapts an io.Reader for UploadPartInput.Body, which the
// SDK requires to be an io.ReadSeeker; callers in this codebase always
// pass a *bytes.Reader for buffered parts, which already satisfies it.
func toReadSeeker(r io.Reader) io.ReadSeeker {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs
	}
	panic("object: UploadPart requires an io.ReadSeeker body")
}
