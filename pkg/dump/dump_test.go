package dump

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dumpTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func names(entries []DirEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestCreate_Small(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dump")

	require.NoError(t, Create(path, Options{Size: SizeSmall, Name: "test", VolumeID: 536870918, Time: dumpTime}))

	ok, err := IsDumpFile(path)
	require.NoError(t, err)
	assert.True(t, ok)

	sum, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(536870918), sum.VolumeID)
	assert.Equal(t, "test", sum.Name)
	assert.True(t, dumpTime.Equal(sum.DumpTo))
	require.Len(t, sum.Vnodes, 4)

	root := sum.Vnodes[0]
	assert.Equal(t, uint32(1), root.Number)
	assert.Equal(t, TypeDirectory, root.Type)
	assert.Equal(t, int64(pageSize), root.Size)
	assert.ElementsMatch(t, []string{".", "..", "README", "hello.txt", "zeros.bin"}, names(root.Entries))
	assert.Equal(t, defaultACL(), root.ACL)

	for i, v := range sum.Vnodes[1:] {
		assert.Equal(t, uint32(2*i+2), v.Number)
		assert.Equal(t, TypeFile, v.Type)
		assert.Equal(t, int64(len(smallFiles[i].data)), v.Size)
	}
}

func TestCreate_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dump")

	require.NoError(t, Create(path, Options{Size: SizeEmpty}))

	sum, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultVolumeID, sum.VolumeID)
	assert.Equal(t, DefaultName, sum.Name)
	require.Len(t, sum.Vnodes, 1)
	assert.ElementsMatch(t, []string{".", ".."}, names(sum.Vnodes[0].Entries))
}

func TestCreate_BogusACL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dump")

	require.NoError(t, Create(path, Options{Size: SizeSmall, Contains: ContentBogusACL}))

	sum, err := ReadFile(path)
	require.NoError(t, err)
	acl := sum.Vnodes[0].ACL
	require.Len(t, acl, 3)
	assert.Equal(t, idUnassigned, acl[2].ID)
	assert.NotZero(t, acl[2].Rights&rightsBogus)
}

func TestCreate_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"BogusSize", Options{Size: "bogus"}, ErrInvalidSize},
		{"BogusContent", Options{Contains: "bogus"}, ErrInvalidContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.dump")

			err := Create(path, tt.opts)
			require.ErrorIs(t, err, tt.want)
			assert.NoFileExists(t, path)
		})
	}
}

func TestIsDumpFile_Rejects(t *testing.T) {
	valid, err := Bytes(Options{Size: SizeEmpty, Time: dumpTime})
	require.NoError(t, err)

	badMagic := append([]byte(nil), valid...)
	binary.BigEndian.PutUint32(badMagic[1:], 0xdeadbeef)

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Text", []byte("this is not a dump\n")},
		{"BadMagic", badMagic},
		{"Truncated", valid[:len(valid)-3]},
		{"TrailingData", append(append([]byte(nil), valid...), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "file")
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			ok, err := IsDumpFile(path)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = ReadFile(path)
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestIsDumpFile_Missing(t *testing.T) {
	_, err := IsDumpFile(filepath.Join(t.TempDir(), "missing.dump"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBytes_Layout(t *testing.T) {
	data, err := Bytes(Options{Size: SizeEmpty, Time: dumpTime})
	require.NoError(t, err)

	assert.Equal(t, tagDumpHeader, data[0])
	assert.Equal(t, BeginMagic, binary.BigEndian.Uint32(data[1:]))
	assert.Equal(t, Version, binary.BigEndian.Uint32(data[5:]))

	tail := data[len(data)-5:]
	assert.Equal(t, tagDumpEnd, tail[0])
	assert.Equal(t, EndMagic, binary.BigEndian.Uint32(tail[1:]))
}

func TestDirHash(t *testing.T) {
	assert.Equal(t, 46, dirHash("."))
	assert.Equal(t, 68, dirHash(".."))
	for _, name := range []string{"README", "hello.txt", "a-much-longer-file-name.txt"} {
		h := dirHash(name)
		assert.GreaterOrEqual(t, h, 0)
		assert.Less(t, h, hashSize)
	}
}

func TestMakeDir(t *testing.T) {
	t.Run("LongNamesUseMoreBlobs", func(t *testing.T) {
		entries := []DirEntry{
			{Name: ".", Vnode: 1, Uniquifier: 1},
			{Name: "a-name-longer-than-one-blob.txt", Vnode: 2, Uniquifier: 2},
		}
		dir, err := makeDir(entries)
		require.NoError(t, err)

		got, err := readDir(dir)
		require.NoError(t, err)
		assert.ElementsMatch(t, entries, got)
		assert.Equal(t, byte(entriesPerPage-headerBlobs-1-2), dir[4])
	})

	t.Run("Full", func(t *testing.T) {
		var entries []DirEntry
		for i := 0; i < entriesPerPage; i++ {
			entries = append(entries, DirEntry{Name: string(rune('a'+i%26)) + string(rune('a'+i/26)), Vnode: uint32(2*i + 2), Uniquifier: 1})
		}
		_, err := makeDir(entries)
		assert.ErrorContains(t, err, "does not fit")
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		_, err := makeDir([]DirEntry{{Name: ""}})
		assert.Error(t, err)
	})
}

func TestRead_CorruptACLCounts(t *testing.T) {
	data, err := Bytes(Options{Size: SizeEmpty, Time: dumpTime})
	require.NoError(t, err)

	i := bytes.Index(data, []byte{'A', 0, 0, 0, 36})
	require.Positive(t, i, "acl field not found")
	binary.BigEndian.PutUint32(data[i+1+8:], 9)

	_, err = Read(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNotDump)
	assert.ErrorContains(t, err, "acl counts")
}
