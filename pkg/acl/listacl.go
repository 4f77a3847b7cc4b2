package acl

import (
	"context"
	"fmt"
	"regexp"

	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/report"
)

// Line rules of "fs listacl".
var (
	ListACLNormal   = report.Rule{Name: "normal-rights", Pattern: regexp.MustCompile(`^Normal rights:$`)}
	ListACLNegative = report.Rule{Name: "negative-rights", Pattern: regexp.MustCompile(`^Negative rights:$`)}
	ListACLEntry    = report.Rule{Name: "entry", Pattern: regexp.MustCompile(`^(\S+)\s+(\S+)$`)}
)

// ParseListACL parses the "Normal rights" section of "fs listacl". The
// negative section is not read, so every entry has an empty revoked set.
func ParseListACL(text string) (*ACL, error) {
	s := report.NewScanner("fs listacl", text)
	if _, err := s.Find(ListACLNormal); err != nil {
		return nil, err
	}

	a := New()
	for !s.Done() {
		line, _ := s.Peek()
		if _, ok := ListACLNegative.Match(line); ok {
			break
		}
		m, err := s.Next(ListACLEntry)
		if err != nil {
			return nil, err
		}
		rights, err := Normalize(m[1])
		if err != nil {
			return nil, s.Errorf(ListACLEntry, "%v", err)
		}
		if rights != "" {
			a.entries[m[0]] = Entry{Granted: rights}
		}
	}
	return a, nil
}

// FromPath reads the ACL of path with "fs listacl".
func FromPath(ctx context.Context, fs command.Tool, path string) (*ACL, error) {
	out, err := fs.Run(ctx, "listacl", "-path", path)
	if err != nil {
		return nil, fmt.Errorf("listacl %s: %w", path, err)
	}
	return ParseListACL(out)
}

// Apply sets the entries of a on the directory path with "fs setacl". Revoked
// rights are set by a second call with "-negative".
func Apply(ctx context.Context, fs command.Tool, path string, a *ACL) error {
	if args := a.Args(); len(args) > 0 {
		argv := append([]string{"setacl", "-dir", path, "-acl"}, args...)
		if _, err := fs.Run(ctx, argv...); err != nil {
			return fmt.Errorf("setacl %s: %w", path, err)
		}
	}
	if args := a.NegativeArgs(); len(args) > 0 {
		argv := append([]string{"setacl", "-dir", path, "-acl"}, args...)
		argv = append(argv, "-negative")
		if _, err := fs.Run(ctx, argv...); err != nil {
			return fmt.Errorf("setacl -negative %s: %w", path, err)
		}
	}
	return nil
}
