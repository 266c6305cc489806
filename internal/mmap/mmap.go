package mmap

import (
	"errors"
	"os"
	"sync/atomic"
)

// ErrClosed is returned when using a closed mapping.
var ErrClosed = errors.New("mmap: closed")

// Access describes how a mapping will be read.
type Access uint8

const (
	// AccessSequential suits manifests and prediction outputs, which are
	// scanned line by line.
	AccessSequential Access = iota
	// AccessRandom suits images, of which only the header is probed.
	AccessRandom
)

func (a Access) String() string {
	if a == AccessRandom {
		return "random"
	}
	return "sequential"
}

// File is a read-only memory-mapped file.
type File struct {
	data   []byte
	closed atomic.Bool
}

// Open maps the file at path into memory as read-only and advises the
// kernel of the access pattern. Empty files yield a mapping with no data.
func Open(path string, access Access) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &File{}, nil
	}
	if size < 0 || int64(int(size)) != size {
		return nil, errors.New("mmap: file size out of range")
	}

	data, err := mmap(f, int(size), access)
	if err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}

// Bytes returns the mapped contents.
func (m *File) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the mapped length in bytes.
func (m *File) Size() int {
	return len(m.data)
}

// Close unmaps the file. Closing twice returns ErrClosed.
func (m *File) Close() error {
	if m == nil {
		return nil
	}
	if !m.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	err := munmap(m.data)
	m.data = nil
	return err
}
