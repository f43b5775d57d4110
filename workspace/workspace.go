// Package workspace binds the merge and align passes to the files of an
// Android resource family. A Family is the parsed default document plus
// every localized sibling; each operation edits them in memory and commits
// through the undo journal.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/strsync/align"
	"github.com/minios-linux/strsync/android"
	"github.com/minios-linux/strsync/config"
	"github.com/minios-linux/strsync/journal"
	"github.com/minios-linux/strsync/merge"
	"github.com/minios-linux/strsync/resource"
)

var (
	// ErrNotLocalized is returned by Sort for the default document.
	ErrNotLocalized = errors.New("not a localized document")
	// ErrNotInFamily is returned for a path outside the loaded family.
	ErrNotInFamily = errors.New("document not in family")
)

// Journal actions.
const (
	ActionAddMissing = "add-missing"
	ActionSort       = "sort"
	ActionSync       = "sync"
)

// Document is one parsed strings file.
type Document struct {
	*android.File

	// Tag is the localization tag ("def" for the default document).
	Tag string

	path string
	orig []byte
}

// Path returns the absolute path of the document.
func (d *Document) Path() string { return d.path }

// Changed reports whether the document differs from the file it was read from.
func (d *Document) Changed() bool {
	return string(d.Marshal()) != string(d.orig)
}

func loadDocument(path, tag string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := android.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &Document{File: f, Tag: tag, path: path, orig: data}, nil
}

// Family is a loaded resource family.
type Family struct {
	Default   *Document
	Localized []*Document

	// Journal commits every operation. With a nil journal the documents are
	// only changed in memory.
	Journal *journal.Journal
	// Log receives per-document diagnostics.
	Log zerolog.Logger
}

// Load locates the family of the strings file at path and parses it.
func Load(ctx context.Context, path string, cfg *config.Config) (*Family, error) {
	fam, err := cfg.Locate(path)
	if err != nil {
		return nil, err
	}
	return LoadFamily(ctx, fam, cfg)
}

// LoadFamily parses the documents of a located family concurrently.
func LoadFamily(ctx context.Context, fam *config.Family, cfg *config.Config) (*Family, error) {
	f := &Family{
		Localized: make([]*Document, len(fam.Localized)),
		Log:       zerolog.Nop(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		doc, err := loadDocument(fam.Default, cfg.DefaultTag)
		if err != nil {
			return err
		}
		f.Default = doc
		return nil
	})
	for i, path := range fam.Localized {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := loadDocument(path, cfg.Tag(path))
			if err != nil {
				return err
			}
			f.Localized[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// Document returns the loaded document at path.
func (f *Family) Document(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for _, d := range f.docs() {
		if d.path == abs {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotInFamily)
}

// Changed returns the documents that differ from their files.
func (f *Family) Changed() []*Document {
	var out []*Document
	for _, d := range f.docs() {
		if d.Changed() {
			out = append(out, d)
		}
	}
	return out
}

func (f *Family) docs() []*Document {
	return append([]*Document{f.Default}, f.Localized...)
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// AddMissing copies the entries doc lacks. The default document receives
// the entries of every localized document marked with the default tag; a
// localized document receives those of the default document marked with
// its own tag. It returns the files written.
func (f *Family) AddMissing(path string) ([]string, error) {
	doc, err := f.Document(path)
	if err != nil {
		return nil, err
	}
	return f.commit(ActionAddMissing, func() error {
		return f.addMissing(doc)
	})
}

// Sort reorders the localized document at path to follow the default one.
func (f *Family) Sort(path string) ([]string, error) {
	doc, err := f.Document(path)
	if err != nil {
		return nil, err
	}
	if doc == f.Default {
		return nil, fmt.Errorf("%s: %w", path, ErrNotLocalized)
	}
	return f.commit(ActionSort, func() error {
		return f.sort(doc)
	})
}

// SyncAll adds missing entries to and sorts every localized document in one
// transaction.
func (f *Family) SyncAll() ([]string, error) {
	return f.commit(ActionSync, func() error {
		for _, doc := range f.Localized {
			if err := f.addMissing(doc); err != nil {
				return err
			}
			if err := f.sort(doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *Family) addMissing(doc *Document) error {
	var (
		n   int
		err error
	)
	if doc == f.Default {
		srcs := make([]resource.Tree, len(f.Localized))
		for i, d := range f.Localized {
			srcs[i] = d
		}
		n, err = merge.MissingFromAll(srcs, doc, doc.Tag)
	} else {
		n, err = merge.Missing(f.Default, doc, doc.Tag)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", doc.path, err)
	}
	f.Log.Debug().Str("file", doc.path).Str("tag", doc.Tag).Int("added", n).Msg("added missing entries")
	return nil
}

func (f *Family) sort(doc *Document) error {
	n, err := align.Order(doc, f.Default)
	if err != nil {
		return fmt.Errorf("%s: %w", doc.path, err)
	}
	f.Log.Debug().Str("file", doc.path).Int("swaps", n).Msg("sorted entries")
	return nil
}

func (f *Family) commit(action string, body func() error) ([]string, error) {
	if f.Journal == nil {
		return nil, body()
	}
	docs := f.docs()
	jdocs := make([]journal.Document, len(docs))
	for i, d := range docs {
		jdocs[i] = d
	}
	written, err := f.Journal.Atomic(action, jdocs, body)
	if err != nil {
		return nil, err
	}
	for _, p := range written {
		f.Log.Debug().Str("file", p).Str("action", action).Msg("wrote document")
	}
	return written, nil
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status describes how far a localized document is from the default one.
type Status struct {
	Path string
	Tag  string
	// Missing counts default entries absent from the document.
	Missing int
	// Untranslated counts values still carrying the document's copy marker.
	Untranslated int
}

// Status reports every localized document of the family.
func (f *Family) Status() []Status {
	out := make([]Status, 0, len(f.Localized))
	for _, doc := range f.Localized {
		out = append(out, Status{
			Path:         doc.path,
			Tag:          doc.Tag,
			Missing:      missing(f.Default, doc),
			Untranslated: untranslated(doc, doc.Tag),
		})
	}
	return out
}

func missing(src, dst resource.Tree) int {
	present := make(map[string]bool)
	for _, k := range resource.Keys(dst) {
		present[k] = true
	}
	n := 0
	for _, k := range resource.Keys(src) {
		if !present[k] {
			present[k] = true
			n++
		}
	}
	return n
}

func untranslated(t resource.Tree, tag string) int {
	prefix := merge.Mark(tag, "")
	prefix = prefix[:len(prefix)-1]
	marked := func(e *resource.Entry) bool {
		v := e.Value
		if resource.IsLiteral(v) {
			v = resource.LiteralText(v)
		}
		return !e.Markup && strings.HasPrefix(v, prefix)
	}

	n := 0
	for _, e := range t.Children() {
		switch e.Kind {
		case resource.KindString:
			if marked(e) {
				n++
			}
		case resource.KindGroup:
			for _, it := range e.Items {
				if marked(it) {
					n++
				}
			}
		}
	}
	return n
}
