package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDoc is a document whose content is edited in memory.
type memDoc struct {
	path    string
	content string
}

func (d *memDoc) Path() string    { return d.path }
func (d *memDoc) Marshal() []byte { return []byte(d.content) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func setup(t *testing.T) (*Journal, *memDoc, *memDoc) {
	t.Helper()
	dir := t.TempDir()
	a := &memDoc{path: filepath.Join(dir, "a.xml"), content: "a0"}
	b := &memDoc{path: filepath.Join(dir, "b.xml"), content: "b0"}
	writeFile(t, a.path, a.content)
	writeFile(t, b.path, b.content)

	j, err := Load(filepath.Join(dir, "strsync.journal"))
	require.NoError(t, err)
	return j, a, b
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash([]byte("hello")), Hash([]byte("hello")))
	assert.NotEqual(t, Hash([]byte("hello")), Hash([]byte("world")))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Hash(nil))
}

func TestLoadNonExistent(t *testing.T) {
	j, err := Load(filepath.Join(t.TempDir(), "strsync.journal"))
	require.NoError(t, err)
	assert.Equal(t, Version, j.Version)
	assert.Empty(t, j.Records)
	_, ok := j.Last()
	assert.False(t, ok, "empty journal has no last record")
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strsync.journal")
	writeFile(t, path, "version: 99\nrecords: []\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestAtomicWritesChangedDocuments(t *testing.T) {
	j, a, b := setup(t)

	paths, err := j.Atomic("sync", []Document{a, b}, func() error {
		a.content = "a1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a.path}, paths)
	assert.Equal(t, "a1", readFile(t, a.path))
	assert.Equal(t, "b0", readFile(t, b.path))

	rec, ok := j.Last()
	require.True(t, ok)
	assert.Equal(t, "sync", rec.Action)
	require.Len(t, rec.Files, 1)
	assert.Equal(t, "a0", rec.Files[0].Before)
	assert.Equal(t, Hash([]byte("a1")), rec.Files[0].AfterMD5)

	// The record survives a reload.
	j2, err := Load(j.Path())
	require.NoError(t, err)
	require.Len(t, j2.Records, 1)
	assert.Equal(t, a.path, j2.Records[0].Files[0].Path)
}

func TestAtomicNoChangesRecordsNothing(t *testing.T) {
	j, a, b := setup(t)
	paths, err := j.Atomic("sync", []Document{a, b}, func() error { return nil })
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Empty(t, j.Records)
	assert.NoFileExists(t, j.Path(), "journal written for an empty run")
}

func TestAtomicBodyErrorWritesNothing(t *testing.T) {
	j, a, b := setup(t)
	boom := errors.New("boom")

	_, err := j.Atomic("sync", []Document{a, b}, func() error {
		a.content = "a1"
		b.content = "b1"
		return boom
	})
	assert.Same(t, boom, err, "body error is returned unchanged")
	assert.Equal(t, "a0", readFile(t, a.path))
	assert.Equal(t, "b0", readFile(t, b.path))
	assert.Empty(t, j.Records)
}

func TestAtomicBodyPanicPropagates(t *testing.T) {
	j, a, _ := setup(t)
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = j.Atomic("sync", []Document{a}, func() error {
			a.content = "a1"
			panic("boom")
		})
	})
	assert.Equal(t, "a0", readFile(t, a.path), "file written despite panic")
}

// dirDoc turns its path into a directory when marshaled, so the write
// that follows fails.
type dirDoc struct{ memDoc }

func (d *dirDoc) Marshal() []byte {
	_ = os.MkdirAll(d.path, 0755)
	return []byte("data")
}

func TestAtomicWriteFailureRestores(t *testing.T) {
	j, a, _ := setup(t)
	blocked := &dirDoc{memDoc{path: filepath.Join(filepath.Dir(a.path), "blocked.xml")}}

	_, err := j.Atomic("sync", []Document{a, blocked}, func() error {
		a.content = "a1"
		return nil
	})
	require.Error(t, err, "writing over a directory")
	assert.Equal(t, "a0", readFile(t, a.path), "a restored")
	assert.Empty(t, j.Records)
}

func TestAtomicTrimsHistory(t *testing.T) {
	j, a, _ := setup(t)
	for i := 0; i < MaxRecords+5; i++ {
		_, err := j.Atomic("sync", []Document{a}, func() error {
			a.content += "x"
			return nil
		})
		require.NoError(t, err, "run %d", i)
	}
	require.Len(t, j.Records, MaxRecords)
	assert.Equal(t, Hash([]byte(a.content)), j.Records[len(j.Records)-1].Files[0].AfterMD5,
		"latest record is the last run")
}

func TestUndoRestoresPreviousContent(t *testing.T) {
	j, a, b := setup(t)
	_, err := j.Atomic("sync", []Document{a, b}, func() error {
		a.content = "a1"
		b.content = "b1"
		return nil
	})
	require.NoError(t, err)

	rec, err := j.Undo()
	require.NoError(t, err)
	assert.Len(t, rec.Files, 2)
	assert.Equal(t, "a0", readFile(t, a.path))
	assert.Equal(t, "b0", readFile(t, b.path))
	assert.Empty(t, j.Records)

	_, err = j.Undo()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestUndoRefusesModifiedFiles(t *testing.T) {
	j, a, b := setup(t)
	_, err := j.Atomic("sync", []Document{a, b}, func() error {
		a.content = "a1"
		b.content = "b1"
		return nil
	})
	require.NoError(t, err)
	writeFile(t, b.path, "edited")

	_, err = j.Undo()
	assert.ErrorIs(t, err, ErrModified)
	assert.Equal(t, "a1", readFile(t, a.path), "a untouched when undo is refused")
	assert.Len(t, j.Records, 1)
}
