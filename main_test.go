package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultXML = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app">App</string>
    <string name="hello">Hello</string>
</resources>
`
	frenchXML = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="hello">Bonjour</string>
</resources>
`
)

func writeProject(t *testing.T) (root, def, fr string) {
	t.Helper()
	root = t.TempDir()
	res := filepath.Join(root, "app", "src", "main", "res")
	def = filepath.Join(res, "values", "strings.xml")
	fr = filepath.Join(res, "values-fr", "strings.xml")
	for path, content := range map[string]string{def: defaultXML, fr: frenchXML} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root, def, fr
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSyncAndUndo(t *testing.T) {
	root, def, fr := writeProject(t)

	_, err := run(t, "sync", "--root", root)
	require.NoError(t, err)
	want := `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app">fr:[App]</string>
    <string name="hello">Bonjour</string>
</resources>
`
	assert.Equal(t, want, readFile(t, fr))
	assert.Equal(t, defaultXML, readFile(t, def), "default document unchanged")
	assert.FileExists(t, filepath.Join(root, "strsync.journal"))

	_, err = run(t, "undo", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, frenchXML, readFile(t, fr))

	// Nothing left to undo.
	_, err = run(t, "undo", "--root", root)
	assert.NoError(t, err)
}

func TestUndoRefusesEditedFile(t *testing.T) {
	root, _, fr := writeProject(t)
	_, err := run(t, "sync", "--root", root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fr, []byte("<resources/>\n"), 0644))

	_, err = run(t, "undo", "--root", root)
	assert.Error(t, err)
}

func TestDryRunPrintsWithoutWriting(t *testing.T) {
	root, _, fr := writeProject(t)

	out, err := run(t, "add-missing", fr, "--root", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, `<string name="app">fr:[App]</string>`)
	assert.Contains(t, out, filepath.Join("values-fr", "strings.xml"), "file header")
	assert.Equal(t, frenchXML, readFile(t, fr), "dry run left the file alone")
	assert.NoFileExists(t, filepath.Join(root, "strsync.journal"))
}

func TestSortRejectsDefault(t *testing.T) {
	root, def, _ := writeProject(t)
	_, err := run(t, "sort", def, "--root", root)
	assert.Error(t, err)
}

func TestDocumentCommandRejectsOtherFiles(t *testing.T) {
	root, _, fr := writeProject(t)
	colors := filepath.Join(filepath.Dir(fr), "colors.xml")
	_, err := run(t, "add-missing", colors, "--root", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a strings file")
}

func TestStatus(t *testing.T) {
	root, _, _ := writeProject(t)
	out, err := run(t, "status", "--root", root)
	require.NoError(t, err)
	for _, want := range []string{"2 entries", "fr", "français", " 50%"} {
		assert.Contains(t, out, want)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Regexp(t, `^strsync version dev\n`, out)
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    colorRed + "░░░░" + colorReset + "   0%",
		},
		{
			name:    "mid range uses yellow",
			percent: 50,
			width:   4,
			want:    colorYellow + "██░░" + colorReset + "  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    colorGreen + "████" + colorReset + " 100%",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, progressBar(tc.percent, tc.width))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "français", truncate("français", 16))
	assert.Equal(t, "português…", truncate("português do Brasil", 10))
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, newLogger(os.Stderr, false).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, newLogger(os.Stderr, true).GetLevel())
}
