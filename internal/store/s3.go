package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

const (
	objectPrefix = "schematics/"
	objectSuffix = ".kicad_sch"
	idMetaKey    = "Ots-Id"
)

// S3Store keeps documents as objects in an S3 bucket.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

// NewS3Store creates a store for the configured bucket. The bucket is
// created on first use if it does not exist.
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.SSL(),
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{client: client, bucketName: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Store) Save(ctx context.Context, name, text string) (*Info, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("ensure bucket: %w", err))
	}

	id := ""
	if stat, err := s.client.StatObject(ctx, s.bucketName, objectKey(name), minio.StatObjectOptions{}); err == nil {
		id = stat.UserMetadata[idMetaKey]
	}
	if id == "" {
		if id, err = generateULID(); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	upload, err := s.client.PutObject(ctx, s.bucketName, objectKey(name), strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{
			ContentType:  "application/x-kicad-schematic",
			UserMetadata: map[string]string{idMetaKey: id},
		})
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("save %s: %w", name, err))
	}
	return &Info{ID: id, Name: name, Size: len(text), UpdatedAt: upload.LastModified}, nil
}

func (s *S3Store) Load(ctx context.Context, name string) (*Document, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("ensure bucket: %w", err))
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectKey(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, errors.NewNotFound("schematic", name)
		}
		return nil, errors.NewInternal(err)
	}
	stat, err := obj.Stat()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &Document{
		Info: Info{
			ID:        stat.UserMetadata[idMetaKey],
			Name:      name,
			Size:      buf.Len(),
			UpdatedAt: stat.LastModified,
		},
		Text: buf.String(),
	}, nil
}

func (s *S3Store) List(ctx context.Context) ([]Info, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("ensure bucket: %w", err))
	}

	var out []Info
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:       objectPrefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, errors.NewInternal(obj.Err)
		}
		name, ok := nameFromKey(obj.Key)
		if !ok {
			continue
		}
		out = append(out, Info{
			ID:        obj.UserMetadata[idMetaKey],
			Name:      name,
			Size:      int(obj.Size),
			UpdatedAt: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *S3Store) Close() error { return nil }

func objectKey(name string) string {
	return objectPrefix + name + objectSuffix
}

func nameFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, objectPrefix) || !strings.HasSuffix(key, objectSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(key, objectPrefix), objectSuffix)
	return name, name != ""
}
