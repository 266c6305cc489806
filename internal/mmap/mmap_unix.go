//go:build !windows

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

var advice = [...]int{
	AccessSequential: unix.MADV_SEQUENTIAL,
	AccessRandom:     unix.MADV_RANDOM,
}

func mmap(f *os.File, size int, access Access) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	if int(access) < len(advice) {
		// Advice is a hint; a kernel rejecting it still serves the mapping.
		_ = unix.Madvise(data, advice[access])
	}
	return data, nil
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}
