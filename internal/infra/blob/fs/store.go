// Package fs implements a read-only core.Store over the local filesystem for
// file:// URIs.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/lejeunel/image-db-app/internal/blob/core"
)

// Store maps file://<bucket>/<key> onto <root>/<bucket>/<key>. The bucket is
// the URI host and is usually empty.
type Store struct {
	root string
}

// New returns a filesystem-backed store rooted at root ("/" when empty).
func New(root string) (*Store, error) {
	if root == "" {
		root = string(filepath.Separator)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fs blob root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("fs blob root %s is not a directory", root)
	}
	return &Store{root: root}, nil
}

// Scheme returns the URI scheme served by the store.
func (s *Store) Scheme() core.Scheme { return core.SchemeFile }

// sanitize ensures the path doesn't escape root.
func sanitize(part string) (string, error) {
	part = strings.TrimPrefix(filepath.ToSlash(part), "/")
	if part == "" {
		return "", nil
	}
	for _, seg := range strings.Split(part, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid path %q contains '..'", part)
		}
	}
	return filepath.FromSlash(part), nil
}

func (s *Store) pathFor(bucket, key string) (string, error) {
	b, err := sanitize(bucket)
	if err != nil {
		return "", err
	}
	k, err := sanitize(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, b, k), nil
}

// List returns the regular files directly under prefix.
func (s *Store) List(_ context.Context, bucket, prefix string) ([]core.Info, error) {
	dir, err := s.pathFor(bucket, prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	infos := make([]core.Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		infos = append(infos, core.Info{
			Key:          prefix + e.Name(),
			Size:         fi.Size(),
			ContentType:  mime.TypeByExtension(filepath.Ext(e.Name())),
			LastModified: fi.ModTime().UTC(),
		})
	}
	return infos, nil
}

// Get opens the file at key.
func (s *Store) Get(_ context.Context, bucket, key string) (core.Info, io.ReadCloser, error) {
	path, err := s.pathFor(bucket, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(path) // #nosec G304 -- path is sanitized against traversal
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("%s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, err
	}
	if fi.IsDir() {
		_ = file.Close()
		return core.Info{}, nil, fmt.Errorf("%s is a directory", key)
	}
	info := core.Info{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(path)),
		ETag:         etag(path, fi),
		LastModified: fi.ModTime().UTC(),
	}
	return info, file, nil
}

func etag(path string, fi os.FileInfo) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", path, fi.Size(), fi.ModTime().UnixNano())))
	return hex.EncodeToString(h[:8])
}
