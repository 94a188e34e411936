// Package blobstore archives generated files such as dashboard workbooks.
// It defines the BlobStore interface with an S3 implementation and an
// in-memory one for tests and development.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrMissingKey   = errors.New("object key is required")
)

// MaxFileSize is the maximum allowed blob size in bytes (100 MB).
const MaxFileSize = 100 * 1024 * 1024

// Object describes a stored blob.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlobStore defines the contract for blob storage backends.
type BlobStore interface {
	Put(ctx context.Context, obj Object, content io.Reader) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	List(ctx context.Context, prefix string) ([]*Object, error)
}

// readBlob reads content fully, enforcing MaxFileSize, and fills in the size
// and SHA-256 of obj.
func readBlob(obj Object, content io.Reader) (Object, []byte, error) {
	if obj.Key == "" {
		return obj, nil, ErrMissingKey
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return obj, nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return obj, nil, ErrFileTooLarge
	}
	h := sha256.Sum256(data)
	obj.Size = int64(len(data))
	obj.Hash = fmt.Sprintf("%x", h)
	obj.CreatedAt = time.Now().UTC()
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}
	return obj, data, nil
}

type storedBlob struct {
	object  Object
	content []byte
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore for testing/dev.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string]*storedBlob)}
}

// Put stores the blob under obj.Key, replacing any previous content.
func (s *InMemoryBlobStore) Put(_ context.Context, obj Object, content io.Reader) (*Object, error) {
	obj, data, err := readBlob(obj, content)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.blobs[obj.Key] = &storedBlob{object: obj, content: data}
	s.mu.Unlock()

	out := obj
	return &out, nil
}

func (s *InMemoryBlobStore) Get(_ context.Context, key string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	obj := blob.object
	return io.NopCloser(bytes.NewReader(blob.content)), &obj, nil
}

// List returns the objects whose key starts with prefix, ordered by key.
func (s *InMemoryBlobStore) List(_ context.Context, prefix string) ([]*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Object
	for key, b := range s.blobs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		obj := b.object
		out = append(out, &obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
