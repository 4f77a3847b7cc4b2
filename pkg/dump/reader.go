package dump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrNotDump matches every *FormatError.
var ErrNotDump = errors.New("not a volume dump")

// FormatError reports where a stream stops looking like a volume dump.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("not a volume dump: offset %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrNotDump
}

// Summary describes a parsed dump.
type Summary struct {
	VolumeID uint32    `json:"volume_id" yaml:"volume_id"`
	Name     string    `json:"name" yaml:"name"`
	DumpFrom time.Time `json:"dump_from" yaml:"dump_from"`
	DumpTo   time.Time `json:"dump_to" yaml:"dump_to"`
	Vnodes   []Vnode   `json:"vnodes" yaml:"vnodes"`
}

// Vnode is one vnode of a parsed dump.
type Vnode struct {
	Number     uint32     `json:"number" yaml:"number"`
	Uniquifier uint32     `json:"uniquifier" yaml:"uniquifier"`
	Type       byte       `json:"type" yaml:"type"`
	Size       int64      `json:"size" yaml:"size"`
	ACL        []ACLEntry `json:"acl,omitempty" yaml:"acl,omitempty"`
	Entries    []DirEntry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Field value kinds, keyed by tag letter per section.
type kind int

const (
	kindU8 kind = iota + 1
	kindU16
	kindU32
	kindString
	kindU32s
)

var volumeHeaderFields = map[byte]kind{
	'i': kindU32, 'v': kindU32, 'n': kindString, 's': kindU8, 'b': kindU8,
	'u': kindU32, 't': kindU8, 'p': kindU32, 'c': kindU32, 'q': kindU32,
	'm': kindU32, 'd': kindU32, 'f': kindU32, 'a': kindU32, 'o': kindU32,
	'C': kindU32, 'A': kindU32, 'U': kindU32, 'E': kindU32, 'B': kindU32,
	'O': kindString, 'M': kindString, 'W': kindU32s, 'D': kindU32, 'Z': kindU32,
}

var vnodeFields = map[byte]kind{
	't': kindU8, 'l': kindU16, 'v': kindU32, 'm': kindU32, 'a': kindU32,
	'o': kindU32, 'g': kindU32, 'b': kindU16, 'p': kindU32, 's': kindU32,
}

type decoder struct {
	r   *bufio.Reader
	off int64
}

func (d *decoder) fail(format string, args ...any) error {
	return &FormatError{Offset: d.off, Reason: fmt.Sprintf(format, args...)}
}

func (d *decoder) full(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(d.r, buf)
	d.off += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, d.fail("truncated")
		}
		return nil, err
	}
	return buf, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.full(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.full(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.full(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) cstring() (string, error) {
	s, err := d.r.ReadString(0)
	d.off += int64(len(s))
	if err != nil {
		return "", d.fail("unterminated string")
	}
	return s[:len(s)-1], nil
}

// value reads one field of kind k. Numeric values are returned in u32s.
func (d *decoder) value(k kind) (u32s []uint32, s string, err error) {
	switch k {
	case kindU8:
		var v byte
		v, err = d.u8()
		return []uint32{uint32(v)}, "", err
	case kindU16:
		var v uint16
		v, err = d.u16()
		return []uint32{uint32(v)}, "", err
	case kindU32:
		var v uint32
		v, err = d.u32()
		return []uint32{v}, "", err
	case kindString:
		s, err = d.cstring()
		return nil, s, err
	case kindU32s:
		var n uint16
		if n, err = d.u16(); err != nil {
			return nil, "", err
		}
		u32s = make([]uint32, n)
		for i := range u32s {
			if u32s[i], err = d.u32(); err != nil {
				return nil, "", err
			}
		}
		return u32s, "", nil
	}
	return nil, "", fmt.Errorf("unknown field kind %d", k)
}

// Read parses a complete dump stream.
func Read(r io.Reader) (*Summary, error) {
	d := &decoder{r: bufio.NewReader(r)}

	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	if tag != tagDumpHeader {
		return nil, d.fail("first tag is %d, want %d", tag, tagDumpHeader)
	}
	magic, err := d.u32()
	if err != nil {
		return nil, err
	}
	if magic != BeginMagic {
		return nil, d.fail("magic %#x, want %#x", magic, BeginMagic)
	}
	if _, err := d.u32(); err != nil {
		return nil, err
	}

	sum := &Summary{}
	for {
		if tag, err = d.u8(); err != nil {
			return nil, err
		}
		if tag == tagVolumeHeader {
			break
		}
		switch tag {
		case 'v':
			if sum.VolumeID, err = d.u32(); err != nil {
				return nil, err
			}
		case 'n':
			if sum.Name, err = d.cstring(); err != nil {
				return nil, err
			}
		case 't':
			times, _, err := d.value(kindU32s)
			if err != nil {
				return nil, err
			}
			if len(times) >= 2 {
				sum.DumpFrom = time.Unix(int64(times[0]), 0).UTC()
				sum.DumpTo = time.Unix(int64(times[1]), 0).UTC()
			}
		default:
			return nil, d.fail("unknown dump header tag %q", tag)
		}
	}

	if tag, err = d.skipFields(volumeHeaderFields, "volume header"); err != nil {
		return nil, err
	}

	for tag == tagVnode {
		var v Vnode
		if tag, v, err = d.readVnode(); err != nil {
			return nil, err
		}
		sum.Vnodes = append(sum.Vnodes, v)
	}

	if tag != tagDumpEnd {
		return nil, d.fail("unexpected tag %d", tag)
	}
	magic, err = d.u32()
	if err != nil {
		return nil, err
	}
	if magic != EndMagic {
		return nil, d.fail("end magic %#x, want %#x", magic, EndMagic)
	}
	if _, err := d.r.ReadByte(); err == nil {
		return nil, d.fail("data after end marker")
	}
	return sum, nil
}

// skipFields consumes fields of one section and returns the first tag that
// starts the next one.
func (d *decoder) skipFields(fields map[byte]kind, section string) (byte, error) {
	for {
		tag, err := d.u8()
		if err != nil {
			return 0, err
		}
		if tag == tagVnode || tag == tagDumpEnd {
			return tag, nil
		}
		k, ok := fields[tag]
		if !ok {
			return 0, d.fail("unknown %s tag %q", section, tag)
		}
		if _, _, err := d.value(k); err != nil {
			return 0, err
		}
	}
}

func (d *decoder) readVnode() (byte, Vnode, error) {
	var v Vnode
	var err error
	if v.Number, err = d.u32(); err != nil {
		return 0, v, err
	}
	if v.Uniquifier, err = d.u32(); err != nil {
		return 0, v, err
	}

	var data []byte
	for {
		tag, err := d.u8()
		if err != nil {
			return 0, v, err
		}
		switch tag {
		case tagVnode, tagDumpEnd:
			if v.Type == TypeDirectory && data != nil {
				if v.Entries, err = readDir(data); err != nil {
					return 0, v, d.fail("vnode %d: %v", v.Number, err)
				}
			}
			return tag, v, nil
		case 'A':
			buf, err := d.full(aclDiskSize)
			if err != nil {
				return 0, v, err
			}
			if v.ACL, err = decodeACL(buf); err != nil {
				return 0, v, d.fail("vnode %d: %v", v.Number, err)
			}
		case 'f', 'h':
			size := int64(0)
			if tag == 'h' {
				hi, err := d.u32()
				if err != nil {
					return 0, v, err
				}
				size = int64(hi) << 32
			}
			lo, err := d.u32()
			if err != nil {
				return 0, v, err
			}
			size |= int64(lo)
			v.Size = size
			if v.Type == TypeDirectory {
				if data, err = d.full(int(size)); err != nil {
					return 0, v, err
				}
			} else if err := d.discard(size); err != nil {
				return 0, v, err
			}
		default:
			k, ok := vnodeFields[tag]
			if !ok {
				return 0, v, d.fail("vnode %d: unknown tag %q", v.Number, tag)
			}
			vals, _, err := d.value(k)
			if err != nil {
				return 0, v, err
			}
			if tag == 't' {
				v.Type = byte(vals[0])
			}
		}
	}
}

func (d *decoder) discard(n int64) error {
	got, err := io.CopyN(io.Discard, d.r, n)
	d.off += got
	if err != nil {
		return d.fail("truncated file data")
	}
	return nil
}

// ReadFile parses the dump file at path.
func ReadFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// IsDumpFile reports whether path holds a well formed volume dump. I/O
// errors other than a malformed stream are returned as errors.
func IsDumpFile(path string) (bool, error) {
	_, err := ReadFile(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotDump):
		return false, nil
	default:
		return false, err
	}
}
