package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object key, e.g. "outputs".
	Prefix string
}

// S3Store keeps artifacts in an S3 compatible bucket under
// {prefix}/{kind}/{name}. Downloads stream through the gateway.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
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
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
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

func (s *S3Store) Save(ctx context.Context, kind Kind, name string, content []byte) (Artifact, error) {
	name, err := checkKey(kind, name)
	if err != nil {
		return Artifact{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Artifact{}, fmt.Errorf("ensure bucket: %w", err)
	}
	if content == nil {
		content = []byte{}
	}
	key := s.objectKey(kind, name)
	info, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(content),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("put %s: %w", key, err)
	}
	a := Artifact{Kind: kind, Name: name, Path: key, Size: int64(len(content)), Modified: info.LastModified}
	if a.Modified.IsZero() {
		if st, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{}); err == nil {
			a.Modified = st.LastModified
		}
	}
	return a, nil
}

func (s *S3Store) Open(ctx context.Context, kind Kind, name string) (io.ReadCloser, Artifact, error) {
	name, err := checkKey(kind, name)
	if err != nil {
		return nil, Artifact{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, Artifact{}, fmt.Errorf("ensure bucket: %w", err)
	}
	key := s.objectKey(kind, name)
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Artifact{}, mapS3Err(err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, Artifact{}, mapS3Err(err)
	}
	return obj, Artifact{Kind: kind, Name: name, Path: key, Size: st.Size, Modified: st.LastModified}, nil
}

func (s *S3Store) List(ctx context.Context, kind Kind) ([]Artifact, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	prefix := s.objectKey(kind, "")
	out := make([]Artifact, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		out = append(out, Artifact{Kind: kind, Name: name, Path: obj.Key, Size: obj.Size, Modified: obj.LastModified})
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, kind Kind, name string) error {
	name, err := checkKey(kind, name)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	key := s.objectKey(kind, name)
	if _, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{}); err != nil {
		return mapS3Err(err)
	}
	return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}

func (s *S3Store) objectKey(kind Kind, name string) string {
	key := string(kind) + "/" + name
	if s.prefix != "" {
		key = path.Join(s.prefix, string(kind)) + "/" + name
	}
	return key
}

func mapS3Err(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
