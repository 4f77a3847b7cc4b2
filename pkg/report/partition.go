package report

import "strings"

// Line rules of "vos listpart".
var (
	ListPartHeader = newRule("header", `^The partitions on the server are:$`)
	ListPartTotal  = newRule("total", `^Total: (\d+)$`)
)

// ParseListPart parses the output of "vos listpart" into partition letters
// in listed order. The listing may wrap over several lines and must agree
// with the reported total.
func ParseListPart(text string) ([]string, error) {
	s := NewScanner("vos listpart", text)
	if _, err := s.Find(ListPartHeader); err != nil {
		return nil, err
	}

	parts := []string{}
	for {
		line, ok := s.Peek()
		if !ok {
			return nil, s.Errorf(ListPartTotal, "")
		}
		if m, ok := ListPartTotal.Match(line); ok {
			total, err := s.Int(ListPartTotal, m[0])
			if err != nil {
				return nil, err
			}
			if total != int64(len(parts)) {
				return nil, s.Errorf(ListPartTotal, "listed %d partitions, total says %d", len(parts), total)
			}
			return parts, nil
		}
		for _, device := range strings.Fields(line) {
			letter, err := PartitionLetter(device)
			if err != nil {
				return nil, s.Errorf(ListPartHeader, "%v", err)
			}
			parts = append(parts, letter)
		}
		s.Skip()
	}
}
