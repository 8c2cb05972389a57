// Package blobs keeps platform storage buckets as key prefixes inside one S3 bucket.
package blobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

// DefaultMaxFileSize caps uploads when no limit is configured.
const DefaultMaxFileSize int64 = 10 << 20

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("blobs: file too large")

const (
	metaFileName = "filename"
	metaBucketID = "bucket-id"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements platform.Storage on S3.
type Store struct {
	bucket   string
	s3Client S3API
	maxBytes int64
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates a Store writing into the given S3 bucket.
func NewStore(s3Client S3API, bucket string, maxBytes int64, logger *logging.Logger) *Store {
	if s3Client == nil {
		panic("blobs: s3 client required")
	}
	if bucket == "" {
		panic("blobs: bucket required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:   bucket,
		s3Client: s3Client,
		maxBytes: maxBytes,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func objectKey(bucketID, fileID string) string {
	return fmt.Sprintf("buckets/%s/files/%s", bucketID, fileID)
}

// CreateFile uploads the body. The whole body is buffered so its size is known
// before the PutObject call.
func (s *Store) CreateFile(ctx context.Context, bucketID, fileID string, in platform.InputFile) (*platform.File, error) {
	if in.Body == nil {
		return nil, fmt.Errorf("blobs: file %s has no body", fileID)
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("blobs: read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectKey(bucketID, fileID)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			metaFileName: in.Name,
			metaBucketID: bucketID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("blobs: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored file", "bucket_id", bucketID, "file_id", fileID, "size", len(data))

	return &platform.File{
		ID:           fileID,
		BucketID:     bucketID,
		Name:         in.Name,
		MimeType:     contentType,
		SizeOriginal: int64(len(data)),
		CreatedAt:    s.now(),
	}, nil
}

// GetFile streams an object back. The caller closes the reader.
func (s *Store) GetFile(ctx context.Context, bucketID, fileID string) (io.ReadCloser, *platform.File, error) {
	key := objectKey(bucketID, fileID)
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, fmt.Errorf("blobs: file %s: %w", fileID, platform.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("blobs: s3 get %s: %w", key, err)
	}
	file := &platform.File{
		ID:           fileID,
		BucketID:     bucketID,
		Name:         out.Metadata[metaFileName],
		MimeType:     aws.ToString(out.ContentType),
		SizeOriginal: aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		file.CreatedAt = out.LastModified.UTC()
	}
	return out.Body, file, nil
}

var _ platform.Storage = (*Store)(nil)
