// Package blob stores binary attachments (note images) referenced from items
// by opaque URL.
package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// ErrUnsupportedURL is returned by Delete for URLs the store does not manage.
var ErrUnsupportedURL = errors.New("blob: unsupported url")

// Store uploads and deletes attachments.
type Store interface {
	// Upload copies the file at localPath and returns its URL.
	Upload(ctx context.Context, owner, itemID, localPath string) (string, error)
	Delete(ctx context.Context, rawURL string) error
}

// Local keeps attachments on disk under a base directory and hands out
// file:// URLs.
type Local struct {
	d        *diskv.Diskv
	basePath string
}

var _ Store = (*Local)(nil)

// NewLocal creates a Local store rooted at basePath.
func NewLocal(basePath string) (*Local, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve base path: %w", err)
	}
	return &Local{
		d: diskv.New(diskv.Options{
			BasePath:          abs,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
		}),
		basePath: abs,
	}, nil
}

func (l *Local) Upload(_ context.Context, owner, itemID, localPath string) (string, error) {
	if owner == "" || itemID == "" {
		return "", errors.New("blob: owner and item id required")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("blob: open %s: %w", localPath, err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	key := strings.Join([]string{
		base64.RawURLEncoding.EncodeToString([]byte(owner)),
		itemID,
		name,
	}, "/")
	if err := l.d.WriteStream(key, f, true); err != nil {
		return "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(l.basePath, filepath.FromSlash(key)))}
	return u.String(), nil
}

func (l *Local) Delete(_ context.Context, rawURL string) error {
	key, err := l.keyFor(rawURL)
	if err != nil {
		return err
	}
	if err := l.d.Erase(key); err != nil {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	return nil
}

// keyFor maps a file:// URL back to a key, refusing paths outside the base.
func (l *Local) keyFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	rel, err := filepath.Rel(l.basePath, filepath.FromSlash(u.Path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	return filepath.ToSlash(rel), nil
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.Join(append(append([]string{}, pathKey.Path...), pathKey.FileName), "/")
}
