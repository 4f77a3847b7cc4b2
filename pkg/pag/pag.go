// Package pag detects OpenAFS process authentication groups.
//
// On Linux a PAG is carried as a single supplementary group id in a reserved
// range. At most one such id can belong to a process.
package pag

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Reserved PAG group id range, inclusive.
const (
	Low  = 0x41000000 // 1090519040
	High = 0x41ffffff // 1107296255
)

// ErrAmbiguousPag matches every *AmbiguousPagError.
var ErrAmbiguousPag = errors.New("more than one PAG group found")

// AmbiguousPagError reports several group ids in the PAG range.
type AmbiguousPagError struct {
	Matches []uint32
}

func (e *AmbiguousPagError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAmbiguousPag, e.Matches)
}

func (e *AmbiguousPagError) Is(target error) bool {
	return target == ErrAmbiguousPag
}

// Valid reports whether id lies in the PAG range.
func Valid(id int64) bool {
	return id >= Low && id <= High
}

// Detect returns the PAG among gids. ok is false when there is none.
// Repeated ids count once.
func Detect(gids []uint32) (pag uint32, ok bool, err error) {
	var matches []uint32
	for _, gid := range gids {
		if Valid(int64(gid)) && !slices.Contains(matches, gid) {
			matches = append(matches, gid)
		}
	}

	switch len(matches) {
	case 0:
		return 0, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return 0, false, &AmbiguousPagError{Matches: matches}
	}
}

// ParseGroups parses a comma or space separated list of group ids, with or
// without surrounding brackets, e.g. "4, 24, 1001" or "[4, 24]".
func ParseGroups(text string) ([]uint32, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	gids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q: %w", f, err)
		}
		gids = append(gids, uint32(n))
	}
	return gids, nil
}

// getgroups is replaced in tests.
var getgroups = os.Getgroups

// Current detects the PAG of the calling process.
func Current() (uint32, bool, error) {
	groups, err := getgroups()
	if err != nil {
		return 0, false, fmt.Errorf("getgroups: %w", err)
	}
	gids := make([]uint32, 0, len(groups))
	for _, g := range groups {
		if g >= 0 {
			gids = append(gids, uint32(g))
		}
	}
	return Detect(gids)
}
