package acl

import (
	"context"
	"fmt"
	"testing"

	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/command/commandtest"
	"github.com/marmos91/afsctl/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleArgs = []string{
	"system:administrators rlidwka",
	"system:anyuser rl",
	"user1 rl",
	"user2 rl",
	"user2 rwl",
	"user2 -l",
	"user3 +rlidwk",
	"user4 none",
	"user5 read",
	"user6 write",
	"user7 -write",
}

func TestACL_Add(t *testing.T) {
	a := New()
	for _, arg := range sampleArgs {
		var principal, expr string
		_, err := fmt.Sscan(arg, &principal, &expr)
		require.NoError(t, err)
		require.NoError(t, a.Add(principal, expr))
	}

	assert.Equal(t, map[string]Entry{
		"system:administrators": {Granted: "rlidwka"},
		"system:anyuser":        {Granted: "rl"},
		"user1":                 {Granted: "rl"},
		"user2":                 {Granted: "rw", Revoked: "l"},
		"user3":                 {Granted: "rlidwk"},
		"user5":                 {Granted: "rl"},
		"user6":                 {Granted: "rlidwk"},
		"user7":                 {Revoked: "rlidwk"},
	}, a.Entries())
}

func TestACL_AddResolvesOverlap(t *testing.T) {
	a := New()
	require.NoError(t, a.Add("user2", "rl"))
	require.NoError(t, a.Add("user2", "-l"))

	e, ok := a.Entry("user2")
	require.True(t, ok)
	assert.Equal(t, Entry{Granted: "r", Revoked: "l"}, e)

	require.NoError(t, a.Add("user2", "+l"))
	e, _ = a.Entry("user2")
	assert.Equal(t, Entry{Granted: "rl"}, e)

	require.NoError(t, a.Add("user2", "-rl"))
	require.NoError(t, a.Add("user2", "+rl"))
	e, _ = a.Entry("user2")
	assert.Equal(t, Entry{Granted: "rl"}, e)
}

func TestACL_AddError(t *testing.T) {
	a := New()
	assert.ErrorIs(t, a.Add("user1", "rlx"), ErrInvalidRights)
	assert.ErrorIs(t, a.Add("user1", "+-r"), ErrAmbiguousSign)
	assert.Zero(t, a.Len())
}

func TestFromArgs(t *testing.T) {
	a, err := FromArgs(sampleArgs[:8]...)
	require.NoError(t, err)

	assert.Equal(t, []string{"system:administrators", "system:anyuser", "user1", "user2", "user3"}, a.Principals())

	_, err = FromArgs("user1")
	assert.Error(t, err)

	_, err = FromArgs("user1 rlq")
	assert.ErrorIs(t, err, ErrInvalidRights)
}

func TestACL_Contains(t *testing.T) {
	a, err := FromArgs(sampleArgs...)
	require.NoError(t, err)

	tests := []struct {
		principal string
		expr      string
		want      bool
	}{
		{"system:administrators", "rlidwka", true},
		{"system:anyuser", "rl", true},
		{"user1", "+rl", true},
		{"user1", "+rli", false},
		{"user2", "rw", true},
		{"user2", "rlw", false},
		{"user2", "-l", true},
		{"user3", "+rlidwk", true},
		{"user3", "+a", false},
		{"user3", "all", false},
		{"user4", "none", false},
		{"user6", "write", true},
		{"user7", "-write", true},
		{"user7", "-a", false},
		{"nobody", "r", false},
	}

	for _, tt := range tests {
		t.Run(tt.principal+" "+tt.expr, func(t *testing.T) {
			got, err := a.Contains(tt.principal, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = a.Contains("user1", "zz")
	assert.ErrorIs(t, err, ErrInvalidRights)
}

func TestACL_Args(t *testing.T) {
	a, err := FromArgs("user2 rl", "user2 -l", "alice write", "bob -a")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "rlidwk", "user2", "r"}, a.Args())
	assert.Equal(t, []string{"bob", "a", "user2", "l"}, a.NegativeArgs())
}

var listACLReport = `Access list for /afs/example.com/test is
Normal rights:
  system:administrators rlidwka
  system:anyuser rl
  user1 rlidwkA
Negative rights:
  user2 l
`

func TestParseListACL(t *testing.T) {
	a, err := ParseListACL(listACLReport)
	require.NoError(t, err)

	assert.Equal(t, map[string]Entry{
		"system:administrators": {Granted: "rlidwka"},
		"system:anyuser":        {Granted: "rl"},
		"user1":                 {Granted: "rlidwkA"},
	}, a.Entries())
}

func TestParseListACL_Malformed(t *testing.T) {
	_, err := ParseListACL("Access list for /afs is\n  user1 rl\n")
	assert.ErrorIs(t, err, report.ErrParse)

	_, err = ParseListACL("Normal rights:\n  user1 rl extra\n")
	assert.ErrorIs(t, err, report.ErrParse)

	_, err = ParseListACL("Normal rights:\n  user1 rlq\n")
	assert.ErrorIs(t, err, report.ErrParse)
}

func TestFromPath(t *testing.T) {
	fake := commandtest.New(t)
	fake.Stage(commandtest.Call{
		Expect: []string{"fs", "listacl", "-path", "/afs/example.com/test"},
		Stdout: []string{listACLReport},
	})
	fs := command.NewTool(command.DefaultFs, "", fake)

	a, err := FromPath(context.Background(), fs, "/afs/example.com/test")
	require.NoError(t, err)
	ok, err := a.Contains("system:anyuser", "read")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFromPath_NotFound(t *testing.T) {
	fake := commandtest.New(t)
	fake.Stage(commandtest.Call{ExitCode: 1, Stderr: []string{"fs: File '/afs/missing' doesn't exist"}})
	fs := command.NewTool(command.DefaultFs, "", fake)

	_, err := FromPath(context.Background(), fs, "/afs/missing")
	assert.ErrorIs(t, err, command.ErrCommandFailed)
}

func TestApply(t *testing.T) {
	fake := commandtest.New(t)
	fake.Stage(commandtest.Call{Expect: []string{"fs", "setacl", "-dir", "/afs/x", "-acl", "alice", "rl", "bob", "rlidwk"}})
	fake.Stage(commandtest.Call{Expect: []string{"fs", "setacl", "-dir", "/afs/x", "-acl", "carol", "w", "-negative"}})
	fs := command.NewTool(command.DefaultFs, "", fake)

	a, err := FromArgs("bob write", "alice read", "carol -w")
	require.NoError(t, err)
	require.NoError(t, Apply(context.Background(), fs, "/afs/x", a))
	fake.AssertDrained()
}
