package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStylesheetFileValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "standard.mapcss")
	require.NoError(t, os.WriteFile(path, []byte(`way[highway]{color:#ff0000;width:2;}`), 0o644))

	ss, err := parseStylesheetFile(path)
	require.NoError(t, err)
	require.NotNil(t, ss)
}

func TestParseStylesheetFileMissing(t *testing.T) {
	_, err := parseStylesheetFile(filepath.Join(t.TempDir(), "missing.mapcss"))
	require.Error(t, err)
}

func TestParseStylesheetFileSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mapcss")
	require.NoError(t, os.WriteFile(path, []byte(`way[highway`), 0o644))

	_, err := parseStylesheetFile(path)
	require.Error(t, err)
}
