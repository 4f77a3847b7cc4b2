package report

// Partition is the space summary of the partition hosting a volume, in 1K
// blocks.
type Partition struct {
	Free  int64 `json:"free" yaml:"free"`
	Used  int64 `json:"used" yaml:"used"`
	Total int64 `json:"total" yaml:"total"`
}

// VolumeInfo is the result of "fs examine -path".
type VolumeInfo struct {
	Path       string    `json:"path" yaml:"path"`
	Fid        string    `json:"fid" yaml:"fid"`
	VolumeID   int64     `json:"volume_id" yaml:"volume_id"`
	Name       string    `json:"name" yaml:"name"`
	Quota      int64     `json:"quota" yaml:"quota"` // 0 is unlimited
	BlocksUsed int64     `json:"blocks_used" yaml:"blocks_used"`
	Partition  Partition `json:"partition" yaml:"partition"`
}

// Line rules of "fs examine".
var (
	ExamineContainedIn = newRule("contained-in",
		`^(?:File|Directory) (.+) \((\d+\.\d+\.\d+)\) contained in volume (\d+)$`)
	ExamineVolumeStatus = newRule("volume-status",
		`^Volume status for vid = (\d+) named (\S+)$`)
	ExamineQuota = newRule("quota",
		`^Current disk quota is (unlimited|\d+)$`)
	ExamineBlocksUsed = newRule("blocks-used",
		`^Current blocks used are (\d+)$`)
	ExaminePartition = newRule("partition",
		`^The partition has (\d+) blocks available out of (\d+)$`)
)

// ParseExamine parses the output of "fs examine -path path".
func ParseExamine(path, text string) (VolumeInfo, error) {
	s := NewScanner("fs examine", text)
	info := VolumeInfo{Path: path}

	m, err := s.Find(ExamineContainedIn)
	if err != nil {
		return VolumeInfo{}, err
	}
	info.Fid = m[1]
	if info.VolumeID, err = s.Int(ExamineContainedIn, m[2]); err != nil {
		return VolumeInfo{}, err
	}

	if m, err = s.Find(ExamineVolumeStatus); err != nil {
		return VolumeInfo{}, err
	}
	info.Name = m[1]

	if m, err = s.Find(ExamineQuota); err != nil {
		return VolumeInfo{}, err
	}
	if m[0] != "unlimited" {
		if info.Quota, err = s.Int(ExamineQuota, m[0]); err != nil {
			return VolumeInfo{}, err
		}
	}

	if m, err = s.Find(ExamineBlocksUsed); err != nil {
		return VolumeInfo{}, err
	}
	if info.BlocksUsed, err = s.Int(ExamineBlocksUsed, m[0]); err != nil {
		return VolumeInfo{}, err
	}

	if m, err = s.Find(ExaminePartition); err != nil {
		return VolumeInfo{}, err
	}
	if info.Partition.Free, err = s.Int(ExaminePartition, m[0]); err != nil {
		return VolumeInfo{}, err
	}
	if info.Partition.Total, err = s.Int(ExaminePartition, m[1]); err != nil {
		return VolumeInfo{}, err
	}
	info.Partition.Used = info.Partition.Total - info.Partition.Free

	return info, nil
}
