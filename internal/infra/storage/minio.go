package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and makes sure the bucket exists
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

var _ analysis.ArtifactStore = (*Store)(nil)

// Archive uploads a copy of the source artifact under a dated key.
func (s *Store) Archive(ctx context.Context, name, contentType string, data []byte) (analysis.ArchiveResult, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		base = "artifact"
	}
	key := fmt.Sprintf("uploads/%s/%s-%s", time.Now().UTC().Format("2006/01/02"), uuid.New().String(), base)

	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return analysis.ArchiveResult{}, err
	}

	// public URL if the bucket is public; private buckets would need a
	// presigned URL instead
	url := fmt.Sprintf("http://%s/%s/%s", s.client.EndpointURL().Host, s.bucketName, key)
	return analysis.ArchiveResult{
		URL:  url,
		Key:  key,
		Name: base,
		Size: int64(len(data)),
	}, nil
}
