package dump

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// vnode is one file or directory of a generated volume.
type vnode struct {
	number uint32
	uniq   uint32
	typ    byte
	mode   uint16
	links  uint16
	parent uint32
	acl    []byte
	data   []byte
}

// smallFiles is the content of a SizeSmall volume, in root directory order.
var smallFiles = []struct {
	name string
	data []byte
}{
	{"README", []byte("afsctl generated volume dump\n")},
	{"hello.txt", []byte("hello, world\n")},
	{"zeros.bin", make([]byte, 8192)},
}

const rootVnode, rootUniq = 1, 1

// encoder appends big-endian dump fields to a buffer.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v byte) { e.buf.WriteByte(v) }

func (e *encoder) u16(v uint16) { e.buf.Write(binary.BigEndian.AppendUint16(nil, v)) }

func (e *encoder) u32(v uint32) { e.buf.Write(binary.BigEndian.AppendUint32(nil, v)) }

func (e *encoder) tagU8(tag byte, v byte) {
	e.u8(tag)
	e.u8(v)
}

func (e *encoder) tagU16(tag byte, v uint16) {
	e.u8(tag)
	e.u16(v)
}

func (e *encoder) tagU32(tag byte, v uint32) {
	e.u8(tag)
	e.u32(v)
}

func (e *encoder) tagString(tag byte, s string) {
	e.u8(tag)
	e.buf.WriteString(s)
	e.u8(0)
}

func (e *encoder) tagU32s(tag byte, vs ...uint32) {
	e.u8(tag)
	e.u16(uint16(len(vs)))
	for _, v := range vs {
		e.u32(v)
	}
}

func buildVnodes(opts Options) ([]vnode, error) {
	entries := []DirEntry{
		{Name: ".", Vnode: rootVnode, Uniquifier: rootUniq},
		{Name: "..", Vnode: rootVnode, Uniquifier: rootUniq},
	}
	var files []vnode
	if opts.Size == SizeSmall {
		for i, f := range smallFiles {
			v := vnode{
				number: uint32(2*i + 2),
				uniq:   uint32(i + 2),
				typ:    TypeFile,
				mode:   0o644,
				links:  1,
				parent: rootVnode,
				data:   f.data,
			}
			files = append(files, v)
			entries = append(entries, DirEntry{Name: f.name, Vnode: v.number, Uniquifier: v.uniq})
		}
	}

	dir, err := makeDir(entries)
	if err != nil {
		return nil, err
	}
	aclEntries := defaultACL()
	if opts.Contains == ContentBogusACL {
		aclEntries = bogusACL()
	}
	acl, err := encodeACL(aclEntries)
	if err != nil {
		return nil, err
	}

	root := vnode{
		number: rootVnode,
		uniq:   rootUniq,
		typ:    TypeDirectory,
		mode:   0o755,
		links:  2,
		parent: rootVnode,
		acl:    acl,
		data:   dir,
	}
	return append([]vnode{root}, files...), nil
}

func encode(opts Options) ([]byte, error) {
	vnodes, err := buildVnodes(opts)
	if err != nil {
		return nil, fmt.Errorf("build volume: %w", err)
	}
	now := uint32(opts.Time.Unix())

	var blocks uint32
	var maxUniq uint32
	for _, v := range vnodes {
		blocks += uint32((len(v.data) + 1023) / 1024)
		maxUniq = max(maxUniq, v.uniq)
	}

	e := &encoder{}

	e.u8(tagDumpHeader)
	e.u32(BeginMagic)
	e.u32(Version)
	e.tagU32('v', opts.VolumeID)
	e.tagString('n', opts.Name)
	e.tagU32s('t', 0, now)

	e.u8(tagVolumeHeader)
	e.tagU32('i', opts.VolumeID)
	e.tagU32('v', 1)
	e.tagString('n', opts.Name)
	e.tagU8('s', 1)
	e.tagU8('b', 1)
	e.tagU32('u', maxUniq+1)
	e.tagU8('t', 0)
	e.tagU32('p', opts.VolumeID)
	e.tagU32('c', 0)
	e.tagU32('q', 5000)
	e.tagU32('m', 0)
	e.tagU32('d', blocks)
	e.tagU32('f', uint32(len(vnodes)))
	e.tagU32('a', 0)
	e.tagU32('o', 0)
	e.tagU32('C', now)
	e.tagU32('A', 0)
	e.tagU32('U', now)
	e.tagU32('E', 0)
	e.tagU32('B', 0)
	e.tagString('O', "")
	e.tagString('M', "")
	e.tagU32s('W', 0, 0, 0, 0, 0, 0, 0)
	e.tagU32('D', 0)
	e.tagU32('Z', 0)

	for _, v := range vnodes {
		e.u8(tagVnode)
		e.u32(v.number)
		e.u32(v.uniq)
		e.tagU8('t', v.typ)
		e.tagU16('l', v.links)
		e.tagU32('v', 1)
		e.tagU32('m', now)
		e.tagU32('a', 0)
		e.tagU32('o', 0)
		e.tagU32('g', 0)
		e.tagU16('b', v.mode)
		e.tagU32('p', v.parent)
		e.tagU32('s', now)
		if v.typ == TypeDirectory {
			e.u8('A')
			e.buf.Write(v.acl)
		}
		e.tagU32('f', uint32(len(v.data)))
		e.buf.Write(v.data)
	}

	e.tagU32(tagDumpEnd, EndMagic)
	return e.buf.Bytes(), nil
}
