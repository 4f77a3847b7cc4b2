package dump

import (
	"encoding/binary"
	"fmt"
)

// AFS directory layout: 2048 byte pages of 32 byte blobs. Page 0 starts with
// the page header blob followed by the directory header (allocation map and
// name hash table), then the entries.
const (
	pageSize       = 2048
	blobSize       = 32
	entriesPerPage = pageSize / blobSize
	hashSize       = 128
	headerBlobs    = 13
	pageTag        = 1234

	allocMapOffset  = 32
	hashTableOffset = allocMapOffset + 128
	entryNameOffset = 12
)

// DirEntry is one name in a directory.
type DirEntry struct {
	Name       string `json:"name" yaml:"name"`
	Vnode      uint32 `json:"vnode" yaml:"vnode"`
	Uniquifier uint32 `json:"uniquifier" yaml:"uniquifier"`
}

// dirHash is the OpenAFS directory name hash.
func dirHash(name string) int {
	var hval uint32
	for i := 0; i < len(name); i++ {
		hval = hval*173 + uint32(int32(int8(name[i])))
	}
	tval := int(hval & (hashSize - 1))
	if tval != 0 && hval >= 1<<31 {
		tval = hashSize - tval
	}
	return tval
}

func nameBlobs(name string) int {
	return (entryNameOffset + len(name) + 1 + blobSize - 1) / blobSize
}

// makeDir lays out a single page directory holding entries in order.
func makeDir(entries []DirEntry) ([]byte, error) {
	page := make([]byte, pageSize)
	used := headerBlobs

	hash := func(i int) []byte { return page[hashTableOffset+2*i : hashTableOffset+2*i+2] }

	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("directory entry with empty name")
		}
		n := nameBlobs(e.Name)
		if used+n > entriesPerPage {
			return nil, fmt.Errorf("directory does not fit in one page")
		}

		blob := used
		off := blob * blobSize
		page[off] = 1
		h := dirHash(e.Name)
		copy(page[off+2:off+4], hash(h))
		binary.BigEndian.PutUint32(page[off+4:], e.Vnode)
		binary.BigEndian.PutUint32(page[off+8:], e.Uniquifier)
		copy(page[off+entryNameOffset:], e.Name)
		binary.BigEndian.PutUint16(hash(h), uint16(blob))

		used += n
	}

	free := entriesPerPage - used
	binary.BigEndian.PutUint16(page[0:], 1)
	binary.BigEndian.PutUint16(page[2:], pageTag)
	page[4] = byte(free)
	for i := 0; i < used; i++ {
		page[5+i/8] |= 1 << (i % 8)
	}

	page[allocMapOffset] = byte(free)
	for i := 1; i < 128; i++ {
		page[allocMapOffset+i] = entriesPerPage
	}
	return page, nil
}

// readDir returns the names reachable from the hash table of a directory.
func readDir(data []byte) ([]DirEntry, error) {
	if len(data) < pageSize {
		return nil, fmt.Errorf("directory is %d bytes, want at least %d", len(data), pageSize)
	}
	if tag := binary.BigEndian.Uint16(data[2:]); tag != pageTag {
		return nil, fmt.Errorf("directory page tag %d, want %d", tag, pageTag)
	}

	var entries []DirEntry
	for h := 0; h < hashSize; h++ {
		blob := int(binary.BigEndian.Uint16(data[hashTableOffset+2*h:]))
		for steps := 0; blob != 0; steps++ {
			off := blob * blobSize
			if off+blobSize > len(data) || steps > len(data)/blobSize {
				return nil, fmt.Errorf("directory hash chain %d is corrupt", h)
			}
			name := cString(data[off+entryNameOffset:])
			entries = append(entries, DirEntry{
				Name:       name,
				Vnode:      binary.BigEndian.Uint32(data[off+4:]),
				Uniquifier: binary.BigEndian.Uint32(data[off+8:]),
			})
			blob = int(binary.BigEndian.Uint16(data[off+2:]))
		}
	}
	return entries, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
