// Package mmap maps local manifests and images read-only into memory.
//
// Callers state how the mapping will be read so the kernel can tune
// read-ahead: manifests are scanned sequentially, images are probed for
// their header only.
//
//	m, err := mmap.Open("unlabeled.manifest", mmap.AccessSequential)
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
package mmap
