package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore mirrors the bucket layout under a root directory; the object
// key is interpreted as a relative path. Used for development and tests.
// Nothing is ever cold here, so Head always reports warm objects and
// InitiateRestore is a no-op.
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

func NewLocal(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("objstore: local root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objstore: create root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (l *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("key escapes root: %q", key)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	p, err := l.path(key)
	if err != nil {
		return newErr(KindOther, "put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return newErr(KindOther, "put", key, err)
	}

	f, err := os.Create(p)
	if err != nil {
		return newErr(KindOther, "put", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(p)
		return newErr(KindOther, "put", key, err)
	}
	return nil
}

func (l *LocalStore) GetBytes(ctx context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, newErr(KindOther, "get", key, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newErr(KindNotFound, "get", key, err)
		}
		return nil, newErr(KindOther, "get", key, err)
	}
	return data, nil
}

func (l *LocalStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, newErr(KindOther, "head", key, err)
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newErr(KindNotFound, "head", key, err)
		}
		return nil, newErr(KindOther, "head", key, err)
	}
	return &ObjectInfo{
		Size:         st.Size(),
		LastModified: st.ModTime(),
		IsCold:       false,
		RestoreState: RestoreNone,
	}, nil
}

func (l *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return newErr(KindOther, "delete", key, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return newErr(KindOther, "delete", key, err)
	}
	return nil
}

func (l *LocalStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	sp, err := l.path(srcKey)
	if err != nil {
		return newErr(KindOther, "copy", srcKey, err)
	}
	dp, err := l.path(dstKey)
	if err != nil {
		return newErr(KindOther, "copy", dstKey, err)
	}

	src, err := os.Open(sp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newErr(KindNotFound, "copy", srcKey, err)
		}
		return newErr(KindOther, "copy", srcKey, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dp), 0o755); err != nil {
		return newErr(KindOther, "copy", dstKey, err)
	}
	dst, err := os.Create(dp)
	if err != nil {
		return newErr(KindOther, "copy", dstKey, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dp)
		return newErr(KindOther, "copy", dstKey, err)
	}
	return nil
}

func (l *LocalStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", newErr(KindOther, "presign", key, err)
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newErr(KindNotFound, "presign", key, err)
		}
		return "", newErr(KindOther, "presign", key, err)
	}
	return "file://" + filepath.ToSlash(p), nil
}

func (l *LocalStore) InitiateRestore(ctx context.Context, key string, tier RestoreTier) error {
	// Local files are never cold.
	return nil
}
