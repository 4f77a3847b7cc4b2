package acl

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"r", "r"},
		{"lr", "rl"},
		{"rlidwka", "rlidwka"},
		{"adiklrw", "rlidwka"},
		{"rrll", "rl"},
		{"HArA", "rAH"},
		{"HGFEDCBAakwdilr", Alphabet},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Normalize(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestNormalize_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		b := []byte(Alphabet)
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
		n := rng.Intn(len(b) + 1)

		subset := string(b[:n])
		want, err := Normalize(subset)
		require.NoError(t, err)

		perm := []byte(subset)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		got, err := Normalize(string(perm))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		in   string
		char rune
	}{
		{"abcd", 'b'},
		{"x", 'x'},
		{"rl1", '1'},
		{"I", 'I'},
		{"R", 'R'},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Normalize(tt.in)
			var ire *InvalidRightsError
			require.True(t, errors.As(err, &ire))
			assert.Equal(t, tt.char, ire.Char)
			assert.Equal(t, tt.in, ire.Rights)
			assert.ErrorIs(t, err, ErrInvalidRights)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		expr   string
		sign   Sign
		rights string
	}{
		{"rlidwka", Grant, "rlidwka"},
		{"+rl", Grant, "rl"},
		{"-l", Revoke, "l"},
		{"-write", Revoke, "rlidwk"},
		{"+write", Grant, "rlidwk"},
		{"read", Grant, "rl"},
		{"all", Grant, Alphabet},
		{"none", Grant, ""},
		{"-none", Revoke, ""},
		{"", Grant, ""},
		{"-", Revoke, ""},
		{"wlr", Grant, "rlw"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sign, rights, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.sign, sign)
			assert.Equal(t, tt.rights, rights)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Run("Ambiguous", func(t *testing.T) {
		for _, expr := range []string{"+-rl", "-+rl", "+rl-"} {
			_, _, err := Parse(expr)
			assert.ErrorIs(t, err, ErrAmbiguousSign, expr)
			var ase *AmbiguousSignError
			require.True(t, errors.As(err, &ase))
			assert.Equal(t, expr, ase.Expr)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, expr := range []string{"bogus", "++rl", "rl-", "-readx", "Read"} {
			_, _, err := Parse(expr)
			assert.ErrorIs(t, err, ErrInvalidRights, expr)
		}
	})

	t.Run("InvalidCitesExpression", func(t *testing.T) {
		_, _, err := Parse("-rx")
		var ire *InvalidRightsError
		require.True(t, errors.As(err, &ire))
		assert.Equal(t, "-rx", ire.Rights)
		assert.Equal(t, 'x', ire.Char)
	})
}
