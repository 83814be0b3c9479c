package service

import (
	"Go_Share/internal/storage"
	"archive/zip"
	"context"
	"io"
	"path"
	"strings"
)

func sanitizeArchivePath(rel string) string {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." || part == ".." {
			continue
		}
		clean = append(clean, part)
	}
	if len(clean) == 0 {
		return "unnamed"
	}
	return path.Join(clean...)
}

// writeZip walks a directory resource and streams every file into a zip.
func writeZip(ctx context.Context, source storage.Source, resourcePath string, w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	err := source.Walk(ctx, resourcePath, func(rel string, info storage.ObjectInfo, open func() (io.ReadCloser, error)) error {
		header := &zip.FileHeader{
			Name:     sanitizeArchivePath(rel),
			Method:   zip.Deflate,
			Modified: info.ModTime,
		}
		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}
		object, err := open()
		if err != nil {
			return err
		}
		_, err = io.Copy(writer, object)
		_ = object.Close()
		return err
	})
	if err != nil {
		_ = zipWriter.Close()
		return err
	}
	return zipWriter.Close()
}
