package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "program.chiru")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

const trivialSafe = `
phase main
function f {
  region stack s
  let v in s
}
`

func TestVerifyOnceTextFormatSafe(t *testing.T) {
	path := writeSource(t, trivialSafe)
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "text", false, false)
	require.NoError(t, err)
	assert.Equal(t, exitSafe, code)
	assert.Contains(t, buf.String(), "Verdict: SAFE")
}

func TestVerifyOnceJSONFormatSafe(t *testing.T) {
	path := writeSource(t, trivialSafe)
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "json", false, false)
	require.NoError(t, err)
	assert.Equal(t, exitSafe, code)
	assert.Contains(t, buf.String(), `"verdict": "SAFE"`)
}

func TestVerifyOnceCBORFormatSafe(t *testing.T) {
	path := writeSource(t, trivialSafe)
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "cbor", false, false)
	require.NoError(t, err)
	assert.Equal(t, exitSafe, code)
	assert.NotEmpty(t, buf.Bytes())
}

func TestVerifyOnceMissingFileExitsInputFailure(t *testing.T) {
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, filepath.Join(t.TempDir(), "missing.chiru"), "text", false, false)
	require.Error(t, err)
	assert.Equal(t, exitInputFailure, code)
}

func TestVerifyOnceParseFailureExitsInputFailure(t *testing.T) {
	path := writeSource(t, "frobnicate x\n")
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "text", false, false)
	require.Error(t, err)
	assert.Equal(t, exitInputFailure, code)
}

func TestVerifyOnceSemanticViolationExitsTwo(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  lifetime l in scope f
  let v in h
  capability UniqueMut v for l
  capability SharedRead v for l
}
`
	path := writeSource(t, src)
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "text", false, false)
	require.Error(t, err)
	assert.Equal(t, exitSemanticViolation, code)
}

func TestVerifyOnceUnsafeAssumptionExitsOne(t *testing.T) {
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
	path := writeSource(t, src)
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "text", false, false)
	require.NoError(t, err)
	assert.Equal(t, exitSafeIfAssumptionsHold, code)
}

func TestVerifyOnceStrictRejectsAssumptionHold(t *testing.T) {
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
	path := writeSource(t, src)
	var buf bytes.Buffer
	code, err := verifyOnce(&buf, path, "text", true, false)
	require.Error(t, err)
	assert.Equal(t, exitSemanticViolation, code)
}

func TestVerifyOnceUnknownFormatRejected(t *testing.T) {
	path := writeSource(t, trivialSafe)
	var buf bytes.Buffer
	_, err := verifyOnce(&buf, path, "xml", false, false)
	require.Error(t, err)
}

func TestRunExactArgsRequired(t *testing.T) {
	code := run([]string{})
	assert.Equal(t, exitInputFailure, code)
}
