// Package storage locates attachment files on disk and fingerprints them.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/catalogtools/pimasset/pkg/db/models"
)

// StorageUploadDir is the only storage backend the host writes attachments to.
const StorageUploadDir = "UploadDir"

// ErrNotFound is returned when an attachment has no readable file.
var ErrNotFound = errors.New("attachment file not found")

// Resolver maps an attachment to the path of its file.
type Resolver interface {
	FilePath(ctx context.Context, attachment models.Attachment) (string, error)
}

// Hasher fingerprints file content.
type Hasher interface {
	HashFile(path string) (string, error)
}

// LocalResolver resolves attachments stored under the upload directory.
type LocalResolver struct {
	uploadDir string
}

// NewLocalResolver builds a resolver rooted at uploadDir.
func NewLocalResolver(uploadDir string) (*LocalResolver, error) {
	if strings.TrimSpace(uploadDir) == "" {
		return nil, errors.New("upload directory is required")
	}
	return &LocalResolver{uploadDir: uploadDir}, nil
}

// FilePath prefers the attachment's tmp path and falls back to
// <uploadDir>/<storage_file_path>/<name>. The file must exist.
func (r *LocalResolver) FilePath(ctx context.Context, attachment models.Attachment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if tmp := deref(attachment.TmpPath); tmp != "" && isFile(tmp) {
		return tmp, nil
	}
	if backend := deref(attachment.Storage); backend != "" && backend != StorageUploadDir {
		return "", fmt.Errorf("%w: storage %q not supported", ErrNotFound, backend)
	}
	dir := deref(attachment.StorageFilePath)
	if dir == "" || attachment.Name == "" {
		return "", ErrNotFound
	}
	path := filepath.Join(r.uploadDir, filepath.FromSlash(dir), attachment.Name)
	if !isFile(path) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// MD5Hasher returns the lowercase hex MD5 of a file, the digest the host
// keeps in attachment.hash_md5.
type MD5Hasher struct{}

func (MD5Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
