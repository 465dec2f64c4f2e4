package model_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

func TestNewSystemErrors(t *testing.T) {
	tests := []struct {
		name       string
		states     []string
		rhs        []string
		params     []string
		reason     string
		undeclared []string
	}{
		{name: "zero states", reason: "no state variables"},
		{name: "length mismatch", states: []string{"x", "y"}, rhs: []string{"x"}, reason: "2 states but 1 right-hand sides"},
		{name: "empty name", states: []string{""}, rhs: []string{"1"}, reason: "empty state name"},
		{name: "duplicate state", states: []string{"x", "x"}, rhs: []string{"x", "x"}, reason: `state "x" collides with state "x"`},
		{name: "time collision", states: []string{"t"}, rhs: []string{"1"}, reason: `state "t" collides with time "t"`},
		{name: "param collision", states: []string{"x"}, rhs: []string{"a*x"}, params: []string{"x"}, reason: `parameter "x" collides with state "x"`},
		{name: "undeclared", states: []string{"x"}, rhs: []string{"a*x + b*y"}, params: []string{"a"}, undeclared: []string{"b", "y"}},
		{name: "undefined function", states: []string{"x"}, rhs: []string{"f(t)*x"}, reason: "undefined function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.Parse("test", "", tt.states, tt.rhs, tt.params)
			var merr *model.MalformedSystemError
			require.True(t, errors.As(err, &merr), "got %v", err)
			if tt.reason != "" {
				assert.Contains(t, merr.Reason, tt.reason)
			}
			assert.Equal(t, tt.undeclared, merr.Undeclared)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := model.Parse("bad", "", []string{"x"}, []string{"x +"}, nil)
	var merr *model.MalformedSystemError
	require.True(t, errors.As(err, &merr))
	assert.ErrorIs(t, err, symbolic.ErrSyntax)
}

func TestSystemAccessors(t *testing.T) {
	sys, err := model.Parse("lv", "", []string{"N", "P"}, []string{"a*N - b*N*P", "c*N*P - d*P"}, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTime, sys.Time)
	assert.Equal(t, []string{"N", "P"}, sys.StateNames())
	i, ok := sys.StateIndex("P")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.True(t, sys.IsParam("c"))
	assert.False(t, sys.IsParam("N"))

	other, err := model.Parse("lv", "", []string{"N", "P"}, []string{"a*N - b*N*P", "c*N*P - d*P"}, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, sys.Hash(), other.Hash())
	changed, err := model.Parse("lv", "", []string{"N", "P"}, []string{"a*N", "c*N*P - d*P"}, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.NotEqual(t, sys.Hash(), changed.Hash())
}

func TestCandidates(t *testing.T) {
	sys, err := model.Parse("exp", "", []string{"x"}, []string{"x"}, nil)
	require.NoError(t, err)
	require.NoError(t, sys.AddCandidate("scaling", "", []string{"x"}))
	require.Len(t, sys.Candidates, 1)
	assert.True(t, symbolic.IsZero(sys.Candidates[0].Xi))

	err = sys.AddCandidate("wrong", "1", []string{"x", "x"})
	var merr *model.MalformedSystemError
	assert.True(t, errors.As(err, &merr))
}

const gompertzYAML = `
name: gompertz-system
parameters: [kG]
states:
  - name: W
    rhs: G*W
  - name: G
    rhs: -kG*G
generators:
  - name: X3
    eta: ["W", "0"]
`

const gompertzTOML = `
name = "gompertz-system"
parameters = ["kG"]

[[states]]
name = "W"
rhs = "G*W"

[[states]]
name = "G"
rhs = "-kG*G"

[[generators]]
name = "X3"
eta = ["W", "0"]
`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"gompertz.yaml": gompertzYAML,
		"gompertz.toml": gompertzTOML,
	}
	var hashes []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		sys, err := model.LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, "gompertz-system", sys.Name)
		assert.Equal(t, []string{"W", "G"}, sys.StateNames())
		assert.Equal(t, "-G*kG", sys.States[1].RHS.String())
		require.Len(t, sys.Candidates, 1)
		assert.Equal(t, "W", sys.Candidates[0].Eta[0].String())
		hashes = append(hashes, sys.Hash())
	}
	assert.Equal(t, hashes[0], hashes[1])

	_, err := model.LoadFile(filepath.Join(dir, "model.json"))
	assert.Error(t, err)
}

func TestDecodeValidation(t *testing.T) {
	d, err := model.Decode([]byte("name: empty\nstates: []\n"), model.FormatYAML)
	require.NoError(t, err)
	_, err = d.System()
	var merr *model.MalformedSystemError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "no state variables", merr.Reason)

	d, err = model.Decode([]byte("name: x\nstates:\n  - name: x\n"), model.FormatYAML)
	require.NoError(t, err)
	_, err = d.System()
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Reason, "RHS")

	_, err = model.Decode([]byte("name: x\nbogus: 1\n"), model.FormatYAML)
	assert.Error(t, err)
	_, err = model.Decode([]byte("name = \"x\"\nbogus = 1\n"), model.FormatTOML)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	sys, err := model.Builtin("gompertz-autonomous")
	require.NoError(t, err)
	for _, format := range []model.Format{model.FormatYAML, model.FormatTOML} {
		data, err := model.Encode(sys.Definition(), format)
		require.NoError(t, err)
		d, err := model.Decode(data, format)
		require.NoError(t, err, string(data))
		back, err := d.System()
		require.NoError(t, err)
		assert.Equal(t, sys.Hash(), back.Hash(), format)
		assert.Len(t, back.Candidates, len(sys.Candidates))
	}
}

func TestBuiltins(t *testing.T) {
	names := model.BuiltinNames()
	assert.Contains(t, names, "gompertz-system")
	assert.Contains(t, names, "lac-operon")
	for _, name := range names {
		sys, err := model.Builtin(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, sys.Name)
		assert.NotEmpty(t, model.BuiltinDescription(name))
		for _, c := range sys.Candidates {
			assert.Len(t, c.Eta, len(sys.States), "%s/%s", name, c.Name)
		}
	}
	_, err := model.Builtin("nope")
	assert.Error(t, err)
}
