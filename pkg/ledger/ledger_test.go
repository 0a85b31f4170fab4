// Copyright © 2018 One Concern

package ledger

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLedger = "/repo/packages/demo/versions.txt"

func TestLedgerDemo(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := New(fs, testLedger)

	_, err := l.Latest()
	require.True(t, errors.Is(err, status.ErrEmpty))

	require.NoError(t, l.Append("0.1.0"))
	require.NoError(t, l.Append("0.1.1"))
	require.True(t, errors.Is(l.Append("0.1.0"), status.ErrAlreadyExists))
	assert.Equal(t, []string{"0.1.0", "0.1.1"}, l.Versions())

	latest, err := l.Latest()
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", latest)

	require.NoError(t, l.Save())
	content, err := afero.ReadFile(fs, testLedger)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0\n0.1.1", string(content))

	reloaded, err := Load(fs, testLedger)
	require.NoError(t, err)
	assert.Equal(t, l.Versions(), reloaded.Versions())

	require.NoError(t, reloaded.Remove("0.1.0"))
	require.True(t, errors.Is(reloaded.Remove("0.1.0"), status.ErrNotFound))
	assert.Equal(t, []string{"0.1.1"}, reloaded.Versions())
	latest, err = reloaded.Latest()
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", latest)

	require.NoError(t, reloaded.Remove("0.1.1"))
	assert.Equal(t, 0, reloaded.Len())
	_, err = reloaded.Latest()
	require.True(t, errors.Is(err, status.ErrEmpty))
}

func TestLedgerCompareIsPositional(t *testing.T) {
	l := New(afero.NewMemMapFs(), testLedger)
	// tokens that would sort otherwise
	for _, v := range []string{"10", "9", "beta", "1.0.0-rc1", "1.0.0"} {
		require.NoError(t, l.Append(v))
	}

	c, err := l.Compare("9", "10")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = l.Compare("1.0.0-rc1", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = l.Compare("beta", "beta")
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = l.Compare("beta", "2.0")
	require.True(t, errors.Is(err, status.ErrNotFound))
}

func TestLedgerPositions(t *testing.T) {
	fs := afero.NewMemMapFs()
	demo := New(fs, testLedger)
	other := New(fs, "/repo/packages/other/versions.txt")
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, demo.Append(v))
		require.NoError(t, other.Append(v))
	}

	pa, err := demo.Position("a")
	require.NoError(t, err)
	pc, err := demo.Position("c")
	require.NoError(t, err)
	newer, err := pc.NewerThan(pa)
	require.NoError(t, err)
	assert.True(t, newer)

	oa, err := other.Position("a")
	require.NoError(t, err)
	_, err = pa.Compare(oa)
	require.True(t, errors.Is(err, status.ErrForeignLedger))

	// positions follow the ledger
	require.NoError(t, demo.Remove("b"))
	i, err := pc.Index()
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	require.NoError(t, demo.Remove("a"))
	_, err = pa.Compare(pc)
	require.True(t, errors.Is(err, status.ErrNotFound))

	_, err = demo.Position("a")
	require.True(t, errors.Is(err, status.ErrNotFound))
}

func TestLedgerRandomSequences(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		l := New(afero.NewMemMapFs(), testLedger)
		var model []string

		for step := 0; step < 40; step++ {
			v := strconv.Itoa(rnd.Intn(15))
			if rnd.Intn(3) == 0 {
				err := l.Remove(v)
				idx := indexIn(model, v)
				if idx < 0 {
					require.True(t, errors.Is(err, status.ErrNotFound))
					continue
				}
				require.NoError(t, err)
				model = append(model[:idx], model[idx+1:]...)
				continue
			}

			err := l.Append(v)
			if indexIn(model, v) >= 0 {
				require.True(t, errors.Is(err, status.ErrAlreadyExists))
				continue
			}
			require.NoError(t, err)
			model = append(model, v)
		}

		require.Equal(t, len(model), l.Len())
		require.Equal(t, model, l.Versions())
		for i := range model {
			for j := range model {
				c, err := l.Compare(model[i], model[j])
				require.NoError(t, err)
				require.Equal(t, sign(i-j), c)
			}
		}
	}
}

func TestLoadLedger(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, testLedger)
	require.True(t, errors.Is(err, status.ErrNotFound))

	l, err := Open(fs, testLedger)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())

	require.NoError(t, afero.WriteFile(fs, testLedger, []byte("0.1.0\r\n\n0.1.1\n"), 0600))
	l, err = Load(fs, testLedger)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.1.0", "0.1.1"}, l.Versions())

	require.NoError(t, afero.WriteFile(fs, testLedger, []byte("0.1.0\n0.1.0"), 0600))
	_, err = Load(fs, testLedger)
	require.True(t, errors.Is(err, status.ErrLedgerInconsistent))
}

func TestSaveAsKeepsPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := New(fs, testLedger)
	require.NoError(t, l.Append("1"))

	pending := testLedger + ".pending"
	require.NoError(t, l.SaveAs(pending))
	assert.Equal(t, testLedger, l.Path())

	exists, err := afero.Exists(fs, testLedger)
	require.NoError(t, err)
	assert.False(t, exists)

	content, err := afero.ReadFile(fs, pending)
	require.NoError(t, err)
	assert.Equal(t, "1", string(content))

	clone := l.Clone()
	require.NoError(t, clone.Append("2"))
	assert.Equal(t, 1, l.Len())
}

func TestAppendRefusesBadTokens(t *testing.T) {
	l := New(afero.NewMemMapFs(), testLedger)
	for _, bad := range []string{"", "a\nb", "../x", ".hidden", "0.1.0 ", "\t0.1.0", "0.1.0\r"} {
		assert.Error(t, l.Append(bad))
	}
	assert.Equal(t, 0, l.Len())
}

func indexIn(list []string, v string) int {
	for i, e := range list {
		if e == v {
			return i
		}
	}
	return -1
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
