package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const hashMetadataKey = "sha256"

// S3API is the subset of *s3.Client used by S3BlobStore.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3BlobStore keeps blobs in one bucket under a key prefix.
type S3BlobStore struct {
	client S3API
	bucket string
	prefix string
}

func NewS3BlobStore(client S3API, bucket, prefix string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds a client from the default AWS configuration chain
// (environment, shared config, instance role). Path-style addressing keeps
// S3-compatible endpoints such as MinIO working.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	}), nil
}

func (s *S3BlobStore) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3BlobStore) Put(ctx context.Context, obj Object, content io.Reader) (*Object, error) {
	obj, data, err := readBlob(obj, content)
	if err != nil {
		return nil, err
	}
	obj.Key = s.fullKey(obj.Key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(obj.Size),
		ContentType:   aws.String(obj.ContentType),
		ACL:           types.ObjectCannedACLPrivate,
		Metadata:      map[string]string{hashMetadataKey: obj.Hash},
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", obj.Key, err)
	}
	return &obj, nil
}

func (s *S3BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	full := s.fullKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("s3 get %s: %w", full, err)
	}
	obj := &Object{
		Key:         full,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		Hash:        out.Metadata[hashMetadataKey],
		CreatedAt:   aws.ToTime(out.LastModified),
	}
	return out.Body, obj, nil
}

func (s *S3BlobStore) List(ctx context.Context, prefix string) ([]*Object, error) {
	var (
		out   []*Object
		token *string
	)
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.fullKey(prefix)),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, o := range page.Contents {
			out = append(out, &Object{
				Key:       aws.ToString(o.Key),
				Size:      aws.ToInt64(o.Size),
				CreatedAt: aws.ToTime(o.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) {
			return out, nil
		}
		token = page.NextContinuationToken
	}
}
