// Package dir provides a document.Bucket backed by a directory of
// <key>.json files.
package dir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
)

const ext = ".json"

// Bucket stores each document as a file in a directory.
type Bucket struct {
	root string
}

var _ document.Bucket = (*Bucket)(nil)

// New creates a bucket rooted at root. The directory is created on Connect.
func New(root string) *Bucket {
	return &Bucket{root: root}
}

// Connect creates the root directory if needed.
func (b *Bucket) Connect(_ context.Context) error {
	if b.root == "" {
		return fmt.Errorf("dir: root is required")
	}
	return os.MkdirAll(b.root, 0o755)
}

func (b *Bucket) Close(_ context.Context) error { return nil }

func (b *Bucket) path(key string) (string, error) {
	if key == "" || filepath.Base(key) != key || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("dir: invalid key %q", key)
	}
	return filepath.Join(b.root, key+ext), nil
}

// Keys lists the basenames of all .json files in the root directory.
func (b *Bucket) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	return keys, nil
}

// Get reads the document file for key.
func (b *Bucket) Get(_ context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	return data, err
}

// Put writes the document atomically through a temporary file and rename.
func (b *Bucket) Put(_ context.Context, key string, data []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(b.root, "."+key+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
