package dump

import (
	"encoding/binary"
	"fmt"
)

// aclDiskSize is the space a directory vnode reserves for its ACL.
const aclDiskSize = 192

const aclVersion = 1

// Well known protection database ids and rights bits.
const (
	IDAnyUser        int32 = -101
	IDAdministrators int32 = -204

	RightsAll    uint32 = 0x7f // rlidwka
	RightsRead   uint32 = 0x09 // rl
	rightsBogus  uint32 = 0xffffff80
	idUnassigned int32  = 0x7ffffffe
)

// ACLEntry is one access list entry of a directory vnode.
type ACLEntry struct {
	ID       int32  `json:"id" yaml:"id"`
	Rights   uint32 `json:"rights" yaml:"rights"`
	Negative bool   `json:"negative,omitempty" yaml:"negative,omitempty"`
}

func defaultACL() []ACLEntry {
	return []ACLEntry{
		{ID: IDAdministrators, Rights: RightsAll},
		{ID: IDAnyUser, Rights: RightsRead},
	}
}

func bogusACL() []ACLEntry {
	return append(defaultACL(), ACLEntry{ID: idUnassigned, Rights: RightsRead | rightsBogus})
}

// encodeACL packs entries into the fixed size on-disk access list:
// size, version, total, positive and negative counts, then id/rights pairs
// with positive entries first.
func encodeACL(entries []ACLEntry) ([]byte, error) {
	var pos, neg []ACLEntry
	for _, e := range entries {
		if e.Negative {
			neg = append(neg, e)
		} else {
			pos = append(pos, e)
		}
	}

	size := 20 + 8*len(entries)
	if size > aclDiskSize {
		return nil, fmt.Errorf("acl with %d entries does not fit in %d bytes", len(entries), aclDiskSize)
	}

	buf := make([]byte, aclDiskSize)
	be := binary.BigEndian
	be.PutUint32(buf[0:], uint32(size))
	be.PutUint32(buf[4:], aclVersion)
	be.PutUint32(buf[8:], uint32(len(entries)))
	be.PutUint32(buf[12:], uint32(len(pos)))
	be.PutUint32(buf[16:], uint32(len(neg)))
	off := 20
	for _, e := range append(pos, neg...) {
		be.PutUint32(buf[off:], uint32(e.ID))
		be.PutUint32(buf[off+4:], e.Rights)
		off += 8
	}
	return buf, nil
}

func decodeACL(buf []byte) ([]ACLEntry, error) {
	if len(buf) < 20 {
		return nil, fmt.Errorf("acl is %d bytes", len(buf))
	}
	be := binary.BigEndian
	total := int(be.Uint32(buf[8:]))
	positive := int(be.Uint32(buf[12:]))
	negative := int(be.Uint32(buf[16:]))
	if total != positive+negative || 20+8*total > len(buf) {
		return nil, fmt.Errorf("acl counts are inconsistent: total %d, positive %d, negative %d", total, positive, negative)
	}

	entries := make([]ACLEntry, 0, total)
	for i := 0; i < total; i++ {
		off := 20 + 8*i
		entries = append(entries, ACLEntry{
			ID:       int32(be.Uint32(buf[off:])),
			Rights:   be.Uint32(buf[off+4:]),
			Negative: i >= positive,
		})
	}
	return entries, nil
}
