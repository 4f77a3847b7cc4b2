// Package dump creates and checks OpenAFS volume dump files.
//
// A dump is the stream "vos dump" writes and "vos restore" reads: a tagged,
// big-endian sequence of a dump header, a volume header, the vnodes of the
// volume and an end marker. The files built here hold a complete RW volume
// (a root directory and, for larger sizes, a few regular files) so they can
// be restored into a cell for testing.
package dump

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Stream tags and magic numbers.
const (
	tagDumpHeader   byte = 1
	tagVolumeHeader byte = 2
	tagVnode        byte = 3
	tagDumpEnd      byte = 4

	BeginMagic uint32 = 0xB3A11322
	EndMagic   uint32 = 0x3A214B6E
	Version    uint32 = 1
)

// Vnode types.
const (
	TypeFile      byte = 1
	TypeDirectory byte = 2
	TypeSymlink   byte = 3
)

// Defaults applied to zero Options fields.
const (
	DefaultVolumeID uint32 = 536870915
	DefaultName            = "dump.test"
)

// Size selects how much data a generated dump holds.
type Size string

const (
	// SizeEmpty is a volume holding only its root directory.
	SizeEmpty Size = "empty"
	// SizeSmall adds a few regular files to the root directory.
	SizeSmall Size = "small"
)

// Content selects special content planted in a generated dump.
type Content string

const (
	ContentNone Content = ""
	// ContentBogusACL gives the root directory an ACL entry for an id no
	// cell defines, carrying rights bits outside the defined set.
	ContentBogusACL Content = "bogus-acl"
)

var (
	// ErrInvalidSize is returned for a Size other than empty or small.
	ErrInvalidSize = errors.New("invalid dump size")

	// ErrInvalidContent is returned for an unknown Content.
	ErrInvalidContent = errors.New("invalid dump content")
)

// Options describe a dump to generate.
type Options struct {
	VolumeID uint32
	Name     string
	Size     Size
	Contains Content

	// Time stamps the volume and every vnode. Zero means now.
	Time time.Time
}

func (o *Options) applyDefaults() {
	if o.VolumeID == 0 {
		o.VolumeID = DefaultVolumeID
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Size == "" {
		o.Size = SizeSmall
	}
	if o.Time.IsZero() {
		o.Time = time.Now()
	}
}

func (o *Options) validate() error {
	switch o.Size {
	case SizeEmpty, SizeSmall:
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidSize, o.Size, SizeEmpty, SizeSmall)
	}
	switch o.Contains {
	case ContentNone, ContentBogusACL:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidContent, o.Contains)
	}
	if len(o.Name) > 31 {
		return fmt.Errorf("volume name %q is longer than 31 characters", o.Name)
	}
	return nil
}

// Create writes a new dump file at path. Invalid options are rejected before
// the file is created, and a failed write removes it.
func Create(path string, opts Options) error {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return err
	}

	data, err := encode(opts)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	return nil
}

// Bytes returns the encoded dump for opts.
func Bytes(opts Options) ([]byte, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return encode(opts)
}
