package docstore

import (
	"context"
	"sync"
)

type memDoc struct {
	body    []byte
	version int64
}

// Memory keeps documents in process memory.
type Memory struct {
	mu            sync.Mutex
	docs          map[string]memDoc
	unconditional bool
}

// NewMemory returns a conditional in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memDoc)}
}

// NewUnconditionalMemory returns an in-memory store that ignores version
// tokens, the way a plain object store behaves.
func NewUnconditionalMemory() *Memory {
	return &Memory{docs: make(map[string]memDoc), unconditional: true}
}

func (m *Memory) Conditional() bool { return !m.unconditional }

func (m *Memory) Load(_ context.Context, path string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Body: append([]byte(nil), d.body...), Version: formatVersion(d.version)}, nil
}

func (m *Memory) Save(_ context.Context, path string, body []byte, expectedVersion string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.docs[path]
	if !m.unconditional {
		switch {
		case expectedVersion == "" && exists:
			return "", ErrVersionConflict
		case expectedVersion != "":
			want, err := parseVersion(expectedVersion)
			if err != nil {
				return "", err
			}
			if !exists || cur.version != want {
				return "", ErrVersionConflict
			}
		}
	}

	next := memDoc{body: append([]byte(nil), body...), version: cur.version + 1}
	m.docs[path] = next
	return formatVersion(next.version), nil
}
