// Package acl implements the OpenAFS access rights algebra.
//
// Rights are written as strings over a fixed 15 symbol alphabet: the seven
// standard rights "rlidwka" followed by the eight site-defined rights
// "ABCDEFGH". Every rights string produced by this package is canonical:
// no duplicates, ordered by alphabet position. Two equal rights sets
// therefore compare equal as strings.
package acl

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet lists every valid rights symbol in canonical order.
const Alphabet = "rlidwkaABCDEFGH"

// Sign selects whether an expression grants or revokes rights.
type Sign byte

const (
	Grant  Sign = '+'
	Revoke Sign = '-'
)

func (s Sign) String() string {
	return string(s)
}

// keywords maps the symbolic rights names to their canonical rights.
var keywords = map[string]string{
	"all":   Alphabet,
	"read":  "rl",
	"write": "rlidwk",
	"none":  "",
}

var (
	// ErrInvalidRights matches every *InvalidRightsError.
	ErrInvalidRights = errors.New("invalid rights")

	// ErrAmbiguousSign matches every *AmbiguousSignError.
	ErrAmbiguousSign = errors.New("ambiguous sign")
)

// InvalidRightsError reports a symbol outside the rights alphabet.
type InvalidRightsError struct {
	Rights string
	Char   rune
}

func (e *InvalidRightsError) Error() string {
	return fmt.Sprintf("invalid rights %q: unknown symbol %q", e.Rights, e.Char)
}

func (e *InvalidRightsError) Is(target error) bool {
	return target == ErrInvalidRights
}

// AmbiguousSignError reports an expression carrying both '+' and '-'.
type AmbiguousSignError struct {
	Expr string
}

func (e *AmbiguousSignError) Error() string {
	return fmt.Sprintf("ambiguous sign in rights expression %q", e.Expr)
}

func (e *AmbiguousSignError) Is(target error) bool {
	return target == ErrAmbiguousSign
}

// Normalize validates rights, removes duplicates and returns the symbols in
// canonical order.
func Normalize(rights string) (string, error) {
	var seen [len(Alphabet)]bool
	for _, c := range rights {
		i := strings.IndexRune(Alphabet, c)
		if i < 0 {
			return "", &InvalidRightsError{Rights: rights, Char: c}
		}
		seen[i] = true
	}

	var b strings.Builder
	for i, ok := range seen {
		if ok {
			b.WriteByte(Alphabet[i])
		}
	}
	return b.String(), nil
}

// Parse splits a rights expression into its sign and canonical rights.
//
// The expression is an optional leading '+' (the default) or '-' followed by
// either a keyword (all, read, write, none) or literal rights symbols.
func Parse(expr string) (Sign, string, error) {
	if strings.ContainsRune(expr, '+') && strings.ContainsRune(expr, '-') {
		return 0, "", &AmbiguousSignError{Expr: expr}
	}

	sign := Grant
	body := expr
	if body != "" && (body[0] == '+' || body[0] == '-') {
		sign = Sign(body[0])
		body = body[1:]
	}

	if rights, ok := keywords[body]; ok {
		return sign, rights, nil
	}
	rights, err := Normalize(body)
	if err != nil {
		var ire *InvalidRightsError
		if errors.As(err, &ire) {
			ire.Rights = expr
		}
		return 0, "", err
	}
	return sign, rights, nil
}

// union returns the canonical union of two canonical rights strings.
func union(a, b string) string {
	out, _ := Normalize(a + b)
	return out
}

// subtract returns the symbols of a that are not in b.
func subtract(a, b string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(b, r) {
			return -1
		}
		return r
	}, a)
}

// containsAll reports whether every symbol of want is in have.
func containsAll(have, want string) bool {
	for _, c := range want {
		if !strings.ContainsRune(have, c) {
			return false
		}
	}
	return true
}
