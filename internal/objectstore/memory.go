package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data     []byte
	modTime  time.Time
	mimeType string
}

// MemStore is a map-backed Storage used by tests and by local runs where
// S3 is disabled. The failure hooks let tests simulate remote rejections
// per path.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]memObject

	UploadErr func(path string) error
	DeleteErr func(path string) error
	ListErr   func(prefix string) error
}

func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]memObject)}
}

func (m *MemStore) Upload(ctx context.Context, path string, data []byte, contentType string, onProgress ProgressFunc) (string, error) {
	if m.UploadErr != nil {
		if err := m.UploadErr(path); err != nil {
			return "", err
		}
	}
	if contentType == "" {
		contentType = detectContentType(data)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[path] = memObject{data: cp, modTime: time.Now(), mimeType: contentType}
	m.mu.Unlock()
	if onProgress != nil {
		onProgress(100)
	}
	return path, nil
}

func (m *MemStore) SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[path]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("object not found: %s", path)
	}
	return fmt.Sprintf("memory://%s?expires=%d", path, int64(expiresIn.Seconds())), nil
}

func (m *MemStore) Delete(ctx context.Context, path string) error {
	if m.DeleteErr != nil {
		if err := m.DeleteErr(path); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return fmt.Errorf("object not found: %s", path)
	}
	delete(m.objects, path)
	return nil
}

func (m *MemStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if m.ListErr != nil {
		if err := m.ListErr(prefix); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for path, obj := range m.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, ObjectInfo{Path: path, Size: int64(len(obj.data)), LastModified: obj.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Has reports whether a path is stored. Test helper.
func (m *MemStore) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

// Len reports how many objects are stored. Test helper.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
