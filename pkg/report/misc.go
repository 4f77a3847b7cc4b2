package report

import "strings"

// Line rules for the smaller reports.
var (
	CreateVolumeCreated = newRule("created",
		`^Volume (\d+) created on partition (/vicep[a-z]{1,2}) of (?:server )?(\S+)$`)
	ListVolID       = newRule("volume-id", `^(\d+)$`)
	CacheParmsUsage = newRule("cache-usage",
		`^AFS using (\d+) of the cache's available (\d+) 1K byte blocks\.$`)
	RxdebugVersion = newRule("version", `^AFS version:\s*(.*)$`)
)

// ParseCreateVolume returns the id printed by "vos create -verbose".
func ParseCreateVolume(text string) (string, error) {
	s := NewScanner("vos create", text)
	m, err := s.Find(CreateVolumeCreated)
	if err != nil {
		return "", err
	}
	return m[0], nil
}

// ParseListVol parses "vos listvol -fast -quiet": one volume id per line.
func ParseListVol(text string) ([]int64, error) {
	s := NewScanner("vos listvol", text)
	ids := []int64{}
	for !s.Done() {
		m, err := s.Next(ListVolID)
		if err != nil {
			return nil, err
		}
		id, err := s.Int(ListVolID, m[0])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseCacheParms returns the cache size in 1K blocks from "fs getcacheparms".
func ParseCacheParms(text string) (int64, error) {
	s := NewScanner("fs getcacheparms", text)
	m, err := s.Find(CacheParmsUsage)
	if err != nil {
		return 0, err
	}
	return s.Int(CacheParmsUsage, m[1])
}

// ParseRxdebugVersion returns the version string from "rxdebug -version".
func ParseRxdebugVersion(text string) (string, error) {
	s := NewScanner("rxdebug", text)
	m, err := s.Find(RxdebugVersion)
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(m[0])
	if version == "" {
		return "", s.Errorf(RxdebugVersion, "empty version")
	}
	return version, nil
}
