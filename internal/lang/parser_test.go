package lang_test

import (
	"testing"

	"github.com/chiru-lang/chiru/internal/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrivialSafe(t *testing.T) {
	src := `
phase main
function f {
  region stack s
  let v in s
}
`
	decls, err := lang.Parse(src)
	require.NoError(t, err)
	require.Len(t, decls, 5)

	assert.Equal(t, lang.DeclPhase, decls[0].DKind)
	assert.Equal(t, "main", decls[0].Name)

	assert.Equal(t, lang.DeclEnterFunction, decls[1].DKind)
	assert.Equal(t, "f", decls[1].Name)

	assert.Equal(t, lang.DeclRegion, decls[2].DKind)
	assert.Equal(t, "stack", decls[2].RegionKind)
	assert.Equal(t, "s", decls[2].Name)

	assert.Equal(t, lang.DeclLet, decls[3].DKind)
	assert.Equal(t, "v", decls[3].Name)
	assert.Equal(t, "s", decls[3].RegionName)

	assert.Equal(t, lang.DeclExitBlock, decls[4].DKind)
}

func TestParseCapabilityAndDrop(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  lifetime l in scope f
  let v in h
  capability SharedRead v for l
  drop v
}
`
	decls, err := lang.Parse(src)
	require.NoError(t, err)

	var cap, drop *lang.Decl
	for i := range decls {
		switch decls[i].DKind {
		case lang.DeclCapability:
			cap = &decls[i]
		case lang.DeclDrop:
			drop = &decls[i]
		}
	}
	require.NotNil(t, cap)
	require.NotNil(t, drop)
	assert.Equal(t, "SharedRead", cap.CapKind)
	assert.Equal(t, "v", cap.ValueName)
	assert.Equal(t, "l", cap.LifeName)
	assert.Equal(t, "v", drop.ValueName)
}

func TestParseUnsafeAssume(t *testing.T) {
	src := `
phase main
function f {
  unsafe {
    region external e
    let v in e
    assume "v is aligned"
  }
}
`
	decls, err := lang.Parse(src)
	require.NoError(t, err)

	var assume *lang.Decl
	for i := range decls {
		if decls[i].DKind == lang.DeclAssume {
			assume = &decls[i]
		}
	}
	require.NotNil(t, assume)
	assert.Equal(t, "v is aligned", assume.Text)
}

func TestParseUnknownRegionKind(t *testing.T) {
	_, err := lang.Parse("region weird r\n")
	require.Error(t, err)
	var perr *lang.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "unknown region kind")
}

func TestParseUnclosedBlock(t *testing.T) {
	_, err := lang.Parse("function f {\n region stack s\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed function block")
}

func TestParseUnexpectedClosingBrace(t *testing.T) {
	_, err := lang.Parse("}\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching opening brace")
}

func TestParseUnrecognizedKeyword(t *testing.T) {
	_, err := lang.Parse("frobnicate x\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized keyword")
}

func TestParseMissingForKeyword(t *testing.T) {
	_, err := lang.Parse("capability Own v with l\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected "for"`)
}
