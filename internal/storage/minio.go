package storage

import (
	"Go_Share/config"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSource serves resources addressed as minio://bucket/object. A path
// ending in "/" is a directory prefix.
type MinioSource struct {
	client        *minio.Client
	defaultBucket string
}

func NewMinioSource(client *minio.Client, defaultBucket string) *MinioSource {
	return &MinioSource{client: client, defaultBucket: defaultBucket}
}

// OpenMinio connects to MinIO and makes sure the default bucket exists.
func OpenMinio(ctx context.Context, cfg config.Config) (*MinioSource, error) {
	client, err := minio.New(fmt.Sprintf("%s:%s", cfg.MinioHost, cfg.MinioPort), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioUsername, cfg.MinioPassword, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	log.Printf("init minio success")
	return NewMinioSource(client, cfg.BucketName), nil
}

// splitObjectPath parses minio://bucket/key. An empty bucket means the default one.
func (s *MinioSource) splitObjectPath(resourcePath string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(resourcePath, minioScheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		bucket = s.defaultBucket
	}
	if strings.Contains(key, "..") {
		return "", "", ErrOutsideRoot
	}
	return bucket, key, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func (s *MinioSource) Stat(ctx context.Context, resourcePath string) (ObjectInfo, error) {
	bucket, key, err := s.splitObjectPath(resourcePath)
	if err != nil {
		return ObjectInfo{}, err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return ObjectInfo{Name: path.Base(strings.TrimSuffix(key, "/")), IsDir: true}, nil
	}
	stat, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, err
	}
	return objectInfo(stat), nil
}

func objectInfo(stat minio.ObjectInfo) ObjectInfo {
	contentType := stat.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(stat.Key))
	}
	return ObjectInfo{
		Name:        path.Base(stat.Key),
		Size:        stat.Size,
		ModTime:     stat.LastModified,
		ContentType: contentType,
	}
}

func (s *MinioSource) Open(ctx context.Context, resourcePath string) (io.ReadCloser, ObjectInfo, error) {
	info, err := s.Stat(ctx, resourcePath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if info.IsDir {
		return nil, ObjectInfo{}, fmt.Errorf("%s is a directory", resourcePath)
	}
	bucket, key, _ := s.splitObjectPath(resourcePath)
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return obj, info, nil
}

func (s *MinioSource) Walk(ctx context.Context, resourcePath string, fn WalkFunc) error {
	bucket, prefix, err := s.splitObjectPath(resourcePath)
	if err != nil {
		return err
	}
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		key := obj.Key
		rel := strings.TrimPrefix(key, prefix)
		open := func() (io.ReadCloser, error) {
			return s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		}
		if err := fn(rel, objectInfo(obj), open); err != nil {
			return err
		}
	}
	return nil
}

// Write uploads new content over the object. PutObject is atomic on the server side.
func (s *MinioSource) Write(ctx context.Context, resourcePath string, r io.Reader, size int64) (int64, error) {
	info, err := s.Stat(ctx, resourcePath)
	if err != nil {
		return 0, err
	}
	if info.IsDir {
		return 0, fmt.Errorf("%s is a directory", resourcePath)
	}
	bucket, key, _ := s.splitObjectPath(resourcePath)
	uploaded, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: info.ContentType,
	})
	if err != nil {
		return 0, err
	}
	return uploaded.Size, nil
}
