package report

import "regexp"

// Role is the replica type of a VLDB site.
type Role string

const (
	RoleRW Role = "RW"
	RoleRO Role = "RO"
)

// Site is one replica location of a volume.
type Site struct {
	Server    string `json:"server" yaml:"server"`
	Partition string `json:"partition" yaml:"partition"` // letter form, e.g. "a"
	Role      Role   `json:"role" yaml:"role"`
}

// VldbEntry is the result of "vos listvldb -name".
//
// ROID and BackupID are 0 when the entry has no such volume; 0 is never a
// valid volume id.
type VldbEntry struct {
	Name     string `json:"name" yaml:"name"`
	RWID     int64  `json:"rw_id" yaml:"rw_id"`
	ROID     int64  `json:"ro_id,omitempty" yaml:"ro_id,omitempty"`
	BackupID int64  `json:"backup_id,omitempty" yaml:"backup_id,omitempty"`
	Locked   bool   `json:"locked" yaml:"locked"`
	Sites    []Site `json:"sites" yaml:"sites"`
}

// HasRO reports whether the entry has a read-only volume id.
func (e VldbEntry) HasRO() bool {
	return e.ROID != 0
}

// RWSite returns the read-write site, if listed.
func (e VldbEntry) RWSite() (Site, bool) {
	for _, s := range e.Sites {
		if s.Role == RoleRW {
			return s, true
		}
	}
	return Site{}, false
}

// Line rules of "vos listvldb -quiet".
var (
	VldbName      = newRule("name", `^(\S+)$`)
	VldbIDs       = newRule("ids", `^RWrite: (\d+)((?:\s+[A-Za-z]+: \d+)*)$`)
	VldbSiteCount = newRule("site-count", `^number of sites -> (\d+)$`)
	VldbSite      = newRule("site", `^server (\S+) partition (/vicep[a-z]{1,2}) (RW|RO) Site(?:\s+--.*)?$`)
	VldbLocked    = newRule("locked", `^Volume is currently LOCKED$`)
)

var vldbExtraID = regexp.MustCompile(`([A-Za-z]+): (\d+)`)

// ParseListVLDB parses the output of "vos listvldb -name x -quiet".
func ParseListVLDB(text string) (VldbEntry, error) {
	s := NewScanner("vos listvldb", text)
	var entry VldbEntry

	m, err := s.Next(VldbName)
	if err != nil {
		return VldbEntry{}, err
	}
	entry.Name = m[0]

	if m, err = s.Next(VldbIDs); err != nil {
		return VldbEntry{}, err
	}
	if entry.RWID, err = s.Int(VldbIDs, m[0]); err != nil {
		return VldbEntry{}, err
	}
	for _, extra := range vldbExtraID.FindAllStringSubmatch(m[1], -1) {
		id, err := s.Int(VldbIDs, extra[2])
		if err != nil {
			return VldbEntry{}, err
		}
		switch extra[1] {
		case "ROnly":
			entry.ROID = id
		case "Backup":
			entry.BackupID = id
		}
	}

	if m, err = s.Find(VldbSiteCount); err != nil {
		return VldbEntry{}, err
	}
	n, err := s.Int(VldbSiteCount, m[0])
	if err != nil {
		return VldbEntry{}, err
	}

	entry.Sites = make([]Site, 0, n)
	for i := int64(0); i < n; i++ {
		m, err := s.Next(VldbSite)
		if err != nil {
			return VldbEntry{}, err
		}
		letter, err := PartitionLetter(m[1])
		if err != nil {
			return VldbEntry{}, s.Errorf(VldbSite, "%v", err)
		}
		entry.Sites = append(entry.Sites, Site{Server: m[0], Partition: letter, Role: Role(m[2])})
	}

	entry.Locked = s.Any(VldbLocked)
	return entry, nil
}
