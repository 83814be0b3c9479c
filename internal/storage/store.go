package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrOutsideRoot = errors.New("path escapes root")
	// ErrUnsupported is returned when a backend cannot serve an operation,
	// e.g. an upload destination inside object storage.
	ErrUnsupported = errors.New("operation not supported by storage backend")
)

// ObjectInfo describes a shared resource.
type ObjectInfo struct {
	Name        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	ContentType string
}

// WalkFunc is called for every file below a directory resource. rel is
// slash-separated and relative to the walked directory.
type WalkFunc func(rel string, info ObjectInfo, open func() (io.ReadCloser, error)) error

// Source abstracts where shared resources live.
type Source interface {
	Stat(ctx context.Context, resourcePath string) (ObjectInfo, error)
	Open(ctx context.Context, resourcePath string) (io.ReadCloser, ObjectInfo, error)
	Walk(ctx context.Context, resourcePath string, fn WalkFunc) error
	// Write replaces the resource content. size may be -1 when unknown.
	Write(ctx context.Context, resourcePath string, r io.Reader, size int64) (int64, error)
}

const minioScheme = "minio://"

// IsObjectPath reports whether resourcePath addresses object storage.
func IsObjectPath(resourcePath string) bool {
	return strings.HasPrefix(resourcePath, minioScheme)
}

// Router dispatches resource paths to the local tree or to MinIO.
type Router struct {
	local  *LocalSource
	object *MinioSource
}

// NewRouter builds a Router. object may be nil when MinIO is disabled.
func NewRouter(local *LocalSource, object *MinioSource) *Router {
	return &Router{local: local, object: object}
}

func (r *Router) pick(resourcePath string) (Source, error) {
	if IsObjectPath(resourcePath) {
		if r.object == nil {
			return nil, ErrUnsupported
		}
		return r.object, nil
	}
	return r.local, nil
}

func (r *Router) Stat(ctx context.Context, resourcePath string) (ObjectInfo, error) {
	src, err := r.pick(resourcePath)
	if err != nil {
		return ObjectInfo{}, err
	}
	return src.Stat(ctx, resourcePath)
}

func (r *Router) Open(ctx context.Context, resourcePath string) (io.ReadCloser, ObjectInfo, error) {
	src, err := r.pick(resourcePath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return src.Open(ctx, resourcePath)
}

func (r *Router) Walk(ctx context.Context, resourcePath string, fn WalkFunc) error {
	src, err := r.pick(resourcePath)
	if err != nil {
		return err
	}
	return src.Walk(ctx, resourcePath, fn)
}

func (r *Router) Write(ctx context.Context, resourcePath string, rd io.Reader, size int64) (int64, error) {
	src, err := r.pick(resourcePath)
	if err != nil {
		return 0, err
	}
	return src.Write(ctx, resourcePath, rd, size)
}

// UploadDir maps an upload share's resource path to a local directory.
// Uploads always land on the local tree.
func (r *Router) UploadDir(resourcePath string) (string, error) {
	if IsObjectPath(resourcePath) {
		return "", ErrUnsupported
	}
	return r.local.Resolve(resourcePath)
}
