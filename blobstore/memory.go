package blobstore

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
)

// Op names a MemoryStore operation for fault injection.
type Op string

const (
	OpOpen Op = "open"
	OpPut  Op = "put"
	OpList Op = "list"
)

type memObject struct {
	data  []byte
	opens int
	puts  int
}

// MemoryStore keeps objects in memory. Tests use it as the backing store of
// a Router and inject failures per object with Fail.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]*memObject
	faults  map[Op]map[string]error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*memObject),
		faults:  make(map[Op]map[string]error),
	}
}

// Fail makes every later op on name return err. A nil err clears the fault.
// For OpList, name is matched against the listed prefix.
func (m *MemoryStore) Fail(op Op, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults[op], name)
		return
	}
	if m.faults[op] == nil {
		m.faults[op] = make(map[string]error)
	}
	m.faults[op][name] = err
}

func (m *MemoryStore) fault(op Op, name string) error {
	return m.faults[op][name]
}

func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpOpen, name); err != nil {
		return nil, err
	}
	obj, ok := m.objects[name]
	if !ok {
		return nil, ErrNotFound
	}
	obj.opens++
	return &memoryBlob{data: slices.Clone(obj.data)}, nil
}

// Put replaces the object at name with a copy of data.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpPut, name); err != nil {
		return err
	}
	obj, ok := m.objects[name]
	if !ok {
		obj = &memObject{}
		m.objects[name] = obj
	}
	obj.data = append([]byte{}, data...)
	obj.puts++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault(OpList, prefix); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Opens reports how often name has been opened.
func (m *MemoryStore) Opens(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[name]; ok {
		return obj.opens
	}
	return 0
}

// Puts reports how often name has been written.
func (m *MemoryStore) Puts(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[name]; ok {
		return obj.puts
	}
	return 0
}

type memoryBlob struct {
	data []byte
}

func (b *memoryBlob) Close() error           { return nil }
func (b *memoryBlob) Size() int64            { return int64(len(b.data)) }
func (b *memoryBlob) Bytes() ([]byte, error) { return b.data, nil }

func (b *memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	size := int64(len(b.data))
	off = min(max(off, 0), size)
	end := min(off+max(length, 0), size)
	return io.NopCloser(bytes.NewReader(b.data[off:end])), nil
}
