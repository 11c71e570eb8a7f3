/*
# Module: storage/s3.go
S3-backed DocumentStore for sweep documents.

## Linked Modules
- [storage/repository](./repository.go) - DocumentStore interface
- [storage/document](./document.go) - Document encoding

## Tags
storage, s3, aws, persistence

## Exports
S3DocumentStore, NewS3DocumentStore, NewS3DocumentStoreFromRegion, SweepKey

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "storage/s3.go" ;
    code:description "S3-backed DocumentStore for sweep documents" ;
    code:linksTo [
        code:name "storage/repository" ;
        code:path "./repository.go" ;
        code:relationship "DocumentStore interface"
    ], [
        code:name "storage/document" ;
        code:path "./document.go" ;
        code:relationship "Document encoding"
    ] ;
    code:exports :S3DocumentStore, :NewS3DocumentStore, :NewS3DocumentStoreFromRegion, :SweepKey ;
    code:tags "storage", "s3", "aws", "persistence" .
<!-- End LinkedDoc RDF -->
*/
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"places-sweep/types"
)

// s3API is the subset of the S3 client used by the document store
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DocumentStore implements DocumentStore using S3 objects.
// Keys ending in .gz or .zst are stored compressed.
type S3DocumentStore struct {
	client s3API
	bucket string
}

// NewS3DocumentStore creates a document store on an existing S3 client
func NewS3DocumentStore(client *s3.Client, bucket string) *S3DocumentStore {
	store := &S3DocumentStore{bucket: bucket}
	if client != nil {
		store.client = client
	}
	return store
}

// NewS3DocumentStoreFromRegion loads the default AWS config for region
func NewS3DocumentStoreFromRegion(ctx context.Context, region, bucket string) (*S3DocumentStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket not configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3DocumentStore(s3.NewFromConfig(cfg), bucket), nil
}

// SweepKey returns the object key for a sweep document, e.g. sweeps/<id>.json
func SweepKey(prefix, sweepID string) string {
	return path.Join(prefix, sweepID+".json")
}

// Put uploads businesses as a document under key
func (s *S3DocumentStore) Put(ctx context.Context, key string, businesses []types.Business) error {
	if s.client == nil {
		return fmt.Errorf("S3 client not initialized")
	}

	var buf bytes.Buffer
	compression := CompressionFromPath(key)
	if err := EncodeDocument(&buf, businesses, compression); err != nil {
		return err
	}

	contentType := "application/json"
	switch compression {
	case CompressionGzip:
		contentType = "application/gzip"
	case CompressionZstd:
		contentType = "application/zstd"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Printf("☁️  Uploaded %d businesses to s3://%s/%s", len(businesses), s.bucket, key)
	return nil
}

// Get downloads and decodes the document stored under key
func (s *S3DocumentStore) Get(ctx context.Context, key string) ([]types.Business, error) {
	if s.client == nil {
		return nil, fmt.Errorf("S3 client not initialized")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer out.Body.Close()

	return DecodeDocument(out.Body, CompressionFromPath(key))
}
