package acl

import (
	"fmt"
	"sort"
	"strings"
)

// Entry holds the rights of one principal. Granted and Revoked are
// canonical and never share a symbol.
type Entry struct {
	Granted string `json:"granted" yaml:"granted"`
	Revoked string `json:"revoked" yaml:"revoked"`
}

// ACL maps principals to their rights.
//
// The zero value is not usable; create one with New, FromArgs or FromPath.
type ACL struct {
	entries map[string]Entry
}

// New returns an empty ACL.
func New() *ACL {
	return &ACL{entries: make(map[string]Entry)}
}

// FromArgs builds an ACL by applying Add for every "<principal> <expr>"
// argument in order. Later arguments for the same principal merge into the
// earlier ones.
func FromArgs(args ...string) (*ACL, error) {
	a := New()
	for _, arg := range args {
		fields := strings.Fields(arg)
		if len(fields) != 2 {
			return nil, fmt.Errorf("acl entry %q: want \"<principal> <rights>\"", arg)
		}
		if err := a.Add(fields[0], fields[1]); err != nil {
			return nil, fmt.Errorf("acl entry %q: %w", arg, err)
		}
	}
	return a, nil
}

// Add applies a rights expression to principal. Granting removes the rights
// from the revoked set and revoking removes them from the granted set. A
// principal left with no rights at all is dropped.
func (a *ACL) Add(principal, expr string) error {
	sign, rights, err := Parse(expr)
	if err != nil {
		return err
	}

	e := a.entries[principal]
	switch sign {
	case Grant:
		e.Granted = union(e.Granted, rights)
		e.Revoked = subtract(e.Revoked, rights)
	case Revoke:
		e.Revoked = union(e.Revoked, rights)
		e.Granted = subtract(e.Granted, rights)
	}

	if e.Granted == "" && e.Revoked == "" {
		delete(a.entries, principal)
		return nil
	}
	a.entries[principal] = e
	return nil
}

// Contains reports whether principal holds every right in expr: in the
// granted set for '+' expressions, in the revoked set for '-'. Unknown
// principals never match.
func (a *ACL) Contains(principal, expr string) (bool, error) {
	sign, rights, err := Parse(expr)
	if err != nil {
		return false, err
	}
	e, ok := a.entries[principal]
	if !ok {
		return false, nil
	}
	if sign == Revoke {
		return containsAll(e.Revoked, rights), nil
	}
	return containsAll(e.Granted, rights), nil
}

// Entry returns the rights of principal.
func (a *ACL) Entry(principal string) (Entry, bool) {
	e, ok := a.entries[principal]
	return e, ok
}

// Len returns the number of principals.
func (a *ACL) Len() int {
	return len(a.entries)
}

// Principals returns the principals in lexical order.
func (a *ACL) Principals() []string {
	out := make([]string, 0, len(a.entries))
	for p := range a.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Entries returns a copy of the ACL contents.
func (a *ACL) Entries() map[string]Entry {
	out := make(map[string]Entry, len(a.entries))
	for p, e := range a.entries {
		out[p] = e
	}
	return out
}

// Args renders the granted rights as "fs setacl -acl" arguments, one
// principal/rights pair per principal, sorted by principal.
func (a *ACL) Args() []string {
	return a.render(func(e Entry) string { return e.Granted })
}

// NegativeArgs renders the revoked rights the same way, for "-negative".
func (a *ACL) NegativeArgs() []string {
	return a.render(func(e Entry) string { return e.Revoked })
}

func (a *ACL) render(pick func(Entry) string) []string {
	var out []string
	for _, p := range a.Principals() {
		if rights := pick(a.entries[p]); rights != "" {
			out = append(out, p, rights)
		}
	}
	return out
}
