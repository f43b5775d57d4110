// Package journal implements strsync.journal, the transaction log of
// synchronization runs. Every run that changes files records the previous
// content of each file and the MD5 checksum of what was written, so the last
// run can be undone as long as nobody edited the files since.
//
// Edits happen in memory inside Atomic; files are only written once the whole
// edit succeeded, and a failed write restores the files already written.
package journal

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the journal file format version.
const Version = 1

// MaxRecords is the number of runs kept in the journal.
const MaxRecords = 20

var (
	// ErrEmpty is returned by Undo when there is nothing to undo.
	ErrEmpty = errors.New("journal is empty")
	// ErrModified is returned by Undo when a file changed after it was
	// written by the recorded run.
	ErrModified = errors.New("file modified since last run")
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Document is a file edited in memory and written on commit.
type Document interface {
	Path() string
	Marshal() []byte
}

// Journal represents the strsync.journal file structure.
type Journal struct {
	Version int      `yaml:"version"`
	Records []Record `yaml:"records"`

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// Record is one committed run.
type Record struct {
	Time   time.Time    `yaml:"time"`
	Action string       `yaml:"action"`
	Files  []FileRecord `yaml:"files"`
}

// FileRecord holds what is needed to revert one file.
type FileRecord struct {
	Path     string `yaml:"path"`
	Before   string `yaml:"before"`
	AfterMD5 string `yaml:"after_md5"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the journal at path.
// Returns an empty journal if the file doesn't exist.
func Load(path string) (*Journal, error) {
	j := &Journal{
		Version: Version,
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return j, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, j); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if j.Version > Version {
		return nil, fmt.Errorf("%s: unsupported journal version %d", path, j.Version)
	}
	j.path = path
	return j, nil
}

// Save writes the journal to disk.
func (j *Journal) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.save()
}

func (j *Journal) save() error {
	if j.path == "" {
		return fmt.Errorf("journal path not set")
	}

	data, err := yaml.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshaling journal: %w", err)
	}
	if err := writeAtomic(j.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", j.path, err)
	}
	return nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Hash computes the MD5 hex digest of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Atomic runs body, then writes every document whose content changed and
// records the run under action. If body fails or panics nothing is written
// and the error (or panic) reaches the caller unchanged. If writing fails,
// files already written are restored. It returns the paths written.
func (j *Journal) Atomic(action string, docs []Document, body func() error) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	before := make([][]byte, len(docs))
	existed := make([]bool, len(docs))
	for i, d := range docs {
		data, err := os.ReadFile(d.Path())
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", d.Path(), err)
		}
		before[i], existed[i] = data, err == nil
	}

	if err := body(); err != nil {
		return nil, err
	}

	rec := Record{Time: time.Now().UTC(), Action: action}
	var written []int
	rollback := func() {
		for _, i := range written {
			if !existed[i] {
				_ = os.Remove(docs[i].Path())
				continue
			}
			_ = writeAtomic(docs[i].Path(), before[i])
		}
	}

	for i, d := range docs {
		after := d.Marshal()
		if bytes.Equal(after, before[i]) {
			continue
		}
		if err := writeAtomic(d.Path(), after); err != nil {
			rollback()
			return nil, fmt.Errorf("writing %s: %w", d.Path(), err)
		}
		written = append(written, i)
		rec.Files = append(rec.Files, FileRecord{
			Path:     d.Path(),
			Before:   string(before[i]),
			AfterMD5: Hash(after),
		})
	}
	if len(written) == 0 {
		return nil, nil
	}

	j.Records = append(j.Records, rec)
	if n := len(j.Records); n > MaxRecords {
		j.Records = append([]Record(nil), j.Records[n-MaxRecords:]...)
	}
	if err := j.save(); err != nil {
		j.Records = j.Records[:len(j.Records)-1]
		rollback()
		return nil, err
	}

	paths := make([]string, len(rec.Files))
	for i, f := range rec.Files {
		paths[i] = f.Path
	}
	return paths, nil
}

// Last returns the most recent record.
func (j *Journal) Last() (Record, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.Records) == 0 {
		return Record{}, false
	}
	return j.Records[len(j.Records)-1], true
}

// Undo restores the files of the most recent record and drops it. No file is
// touched if any of them changed since that run.
func (j *Journal) Undo() (Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.Records) == 0 {
		return Record{}, ErrEmpty
	}
	rec := j.Records[len(j.Records)-1]

	for _, f := range rec.Files {
		current, err := os.ReadFile(f.Path)
		if err != nil {
			return Record{}, fmt.Errorf("reading %s: %w", f.Path, err)
		}
		if Hash(current) != f.AfterMD5 {
			return Record{}, fmt.Errorf("%s: %w", f.Path, ErrModified)
		}
	}
	for _, f := range rec.Files {
		if err := writeAtomic(f.Path, []byte(f.Before)); err != nil {
			return Record{}, fmt.Errorf("restoring %s: %w", f.Path, err)
		}
	}

	j.Records = j.Records[:len(j.Records)-1]
	if err := j.save(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// writeAtomic replaces path with data through a temporary file in the same
// directory, keeping the permissions of an existing file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
