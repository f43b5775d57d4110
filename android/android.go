// Package android implements reading, editing and writing of Android
// strings.xml resource files as a resource.Tree.
//
// The file is kept as the raw bytes of every top-level child of <resources>,
// so an untouched document is written back byte for byte and edits only
// rewrite the entries they touch. Recognized children:
//   - <string>      : resource.KindString
//   - <string-array>: resource.KindGroup (GroupArray), one item per <item>
//   - <plurals>     : resource.KindGroup (GroupPlurals), one item per <item quantity="…">
//   - XML comments  : resource.KindComment
//
// Anything else (<integer>, <dimen>, <item type="…">, processing
// instructions, stray text) is resource.KindOpaque and is carried verbatim.
package android

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/strsync/resource"
)

// File represents a parsed Android strings.xml file.
type File struct {
	// head is everything up to and including the <resources> start tag.
	head string
	// tail is the whitespace before </resources> and everything after it.
	tail string
	// selfClosed reports a <resources/> root; it is expanded on first Append.
	selfClosed bool
	// namespaces maps the prefixes declared on <resources> to their
	// escaped URI.
	namespaces map[string]string

	order []*node
	nodes map[*resource.Entry]*node
}

// node is the serialized form of one entry.
type node struct {
	entry *resource.Entry
	// lead is the whitespace preceding the node; it moves with the node.
	lead string
	// open is the start tag as written, or the whole element when it is
	// self-closing (close is empty then).
	open  string
	close string
	// gaps surround the items of a group: gaps[0] item0 gaps[1] … gaps[n].
	gaps []string
	// raw is the full text of comments and opaque nodes.
	raw string
}

var _ resource.Tree = (*File)(nil)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an Android strings.xml file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses Android strings.xml data.
func Parse(data []byte) (*File, error) {
	f := &File{
		namespaces: make(map[string]string),
		nodes:      make(map[*resource.Entry]*node),
	}
	p := newParser(data, f)

	if err := p.root(); err != nil {
		return nil, err
	}
	if err := p.children(); err != nil {
		return nil, err
	}
	return f, nil
}

// Keys returns the names of all strings, string-arrays and plurals in
// document order.
func (f *File) Keys() []string {
	return resource.Keys(f)
}

// GetEntry returns the string or group with the given name, or nil.
func (f *File) GetEntry(name string) *resource.Entry {
	for _, n := range f.order {
		if n.entry.Translatable() && n.entry.Key == name {
			return n.entry
		}
	}
	return nil
}

// Get returns the raw value of a <string> resource.
func (f *File) Get(name string) (string, bool) {
	e := f.GetEntry(name)
	if e == nil || e.Kind != resource.KindString {
		return "", false
	}
	return e.Value, true
}

// ---------------------------------------------------------------------------
// resource.Tree
// ---------------------------------------------------------------------------

// Children implements resource.Tree.
func (f *File) Children() []*resource.Entry {
	out := make([]*resource.Entry, len(f.order))
	for i, n := range f.order {
		out[i] = n.entry
	}
	return out
}

// Append implements resource.Tree. The copy is written with the indentation
// of the last entry of the file. Namespace declarations the copy refers to
// are added to <resources> when missing.
func (f *File) Append(e *resource.Entry) (*resource.Entry, error) {
	switch e.Kind {
	case resource.KindString, resource.KindGroup, resource.KindComment:
	default:
		return nil, fmt.Errorf("cannot append %s entry", e.Kind)
	}

	c := e.Clone()
	f.expandRoot()
	f.declare(c.Namespaces)
	lead := f.entryLead()
	n := &node{entry: c, lead: lead}

	switch c.Kind {
	case resource.KindString:
		if c.Tag == "" {
			c.Tag = "string"
		}
		c.Attrs = f.declaredAttrs(c.Attrs)
		n.open, n.close = startTag(c), endTag(c)
	case resource.KindGroup:
		if c.Tag == "" {
			c.Tag = "string-array"
			if c.Group == resource.GroupPlurals {
				c.Tag = "plurals"
			}
		}
		c.Attrs = f.declaredAttrs(c.Attrs)
		n.open, n.close = startTag(c), endTag(c)
		itemLead := lead + indentUnit(lead)
		n.gaps = make([]string, len(c.Items)+1)
		for i, it := range c.Items {
			if it.Tag == "" {
				it.Tag = "item"
			}
			it.Attrs = f.declaredAttrs(it.Attrs)
			f.nodes[it] = &node{entry: it, open: startTag(it), close: endTag(it)}
			n.gaps[i] = itemLead
		}
		n.gaps[len(c.Items)] = lead
	case resource.KindComment:
		n.raw = c.Text
	}

	f.order = append(f.order, n)
	f.nodes[c] = n
	return c, nil
}

// MoveAfter implements resource.Tree.
func (f *File) MoveAfter(e, anchor *resource.Entry) error {
	if e == anchor {
		return nil
	}
	from := f.index(e)
	if from < 0 {
		return fmt.Errorf("moving %s: %w", describe(e), resource.ErrNotFound)
	}
	if f.index(anchor) < 0 {
		return fmt.Errorf("moving after %s: %w", describe(anchor), resource.ErrNotFound)
	}
	n := f.order[from]
	f.order = append(f.order[:from], f.order[from+1:]...)
	to := f.index(anchor) + 1
	f.order = append(f.order, nil)
	copy(f.order[to+1:], f.order[to:])
	f.order[to] = n
	return nil
}

// SetValue implements resource.Tree. e must be a <string> or an <item> of
// this file.
func (f *File) SetValue(e *resource.Entry, raw string, literal bool) error {
	n, ok := f.nodes[e]
	if !ok {
		return fmt.Errorf("setting value of %s: %w", describe(e), resource.ErrNotFound)
	}
	if n.entry.Kind != resource.KindString {
		return fmt.Errorf("setting value of %s: not a string", describe(e))
	}
	if literal {
		raw = resource.WrapLiteral(raw)
	}
	e.Value = raw
	return nil
}

func (f *File) index(e *resource.Entry) int {
	for i, n := range f.order {
		if n.entry == e {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal returns the XML text of the file.
func (f *File) Marshal() []byte {
	var b bytes.Buffer
	b.WriteString(f.head)
	for _, n := range f.order {
		b.WriteString(n.lead)
		f.render(&b, n)
	}
	b.WriteString(f.tail)
	return b.Bytes()
}

// WriteFile writes the file to disk, creating parent directories.
func (f *File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, f.Marshal(), 0644)
}

func (f *File) render(b *bytes.Buffer, n *node) {
	e := n.entry
	switch e.Kind {
	case resource.KindString:
		renderValue(b, n)
	case resource.KindGroup:
		b.WriteString(n.open)
		for i, it := range e.Items {
			b.WriteString(gap(n, i))
			if in, ok := f.nodes[it]; ok {
				renderValue(b, in)
			}
		}
		b.WriteString(gap(n, len(e.Items)))
		b.WriteString(n.close)
	default:
		b.WriteString(n.raw)
	}
}

func renderValue(b *bytes.Buffer, n *node) {
	e := n.entry
	if n.close == "" {
		if e.Value == "" {
			b.WriteString(n.open)
			return
		}
		b.WriteString(startTag(e))
		b.WriteString(e.Value)
		b.WriteString(endTag(e))
		return
	}
	b.WriteString(n.open)
	b.WriteString(e.Value)
	b.WriteString(n.close)
}

func gap(n *node, i int) string {
	if i < len(n.gaps) {
		return n.gaps[i]
	}
	return ""
}

// expandRoot turns <resources/> into an open/close pair so entries can be
// appended.
func (f *File) expandRoot() {
	if !f.selfClosed {
		return
	}
	f.selfClosed = false
	i := strings.LastIndex(f.head, "/>")
	rest := f.head[i+2:]
	f.head = strings.TrimRight(f.head[:i], " \t\r\n") + ">"
	f.tail = "\n</resources>" + rest + f.tail
}

// entryLead returns the whitespace written before an appended entry.
func (f *File) entryLead() string {
	for i := len(f.order) - 1; i >= 0; i-- {
		lead := f.order[i].lead
		if j := strings.LastIndexByte(lead, '\n'); j >= 0 {
			return "\n" + lead[j+1:]
		}
	}
	return "\n    "
}

// indentUnit returns one level of the indentation used by lead.
func indentUnit(lead string) string {
	indent := lead[strings.LastIndexByte(lead, '\n')+1:]
	if indent == "" {
		return "    "
	}
	return indent
}

// declare adds the declarations of ns that f lacks to the <resources> start
// tag. The root must not be self-closing.
func (f *File) declare(ns []resource.Attr) {
	for _, d := range ns {
		if _, ok := f.namespaces[d.Name]; ok {
			continue
		}
		end := len(f.head) - len(">")
		f.head = f.head[:end] + fmt.Sprintf(` xmlns:%s="%s"`, d.Name, d.Value) + f.head[end:]
		f.namespaces[d.Name] = d.Value
	}
}

// namespacesFor returns the declarations of the given prefixes, sorted by
// prefix. Well-known prefixes the file does not declare resolve to their
// standard URI; other unknown prefixes are left out.
func (f *File) namespacesFor(prefixes map[string]bool) []resource.Attr {
	var out []resource.Attr
	for prefix := range prefixes {
		uri, ok := f.namespaces[prefix]
		if !ok {
			uri, ok = knownNamespaces[prefix]
		}
		if ok {
			out = append(out, resource.Attr{Name: prefix, Value: uri})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// knownNamespaces are the namespaces commonly used in Android resources.
var knownNamespaces = map[string]string{
	"android": "http://schemas.android.com/apk/res/android",
	"tools":   "http://schemas.android.com/tools",
	"xliff":   "urn:oasis:names:tc:xliff:document:1.2",
}

// declaredAttrs drops attributes whose namespace prefix is not declared on
// the root element of f.
func (f *File) declaredAttrs(attrs []resource.Attr) []resource.Attr {
	out := attrs[:0]
	for _, a := range attrs {
		if i := strings.IndexByte(a.Name, ':'); i >= 0 && a.Name[:i] != "xml" && !f.declared(a.Name[:i]) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (f *File) declared(prefix string) bool {
	_, ok := f.namespaces[prefix]
	return ok
}

func startTag(e *resource.Entry) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		fmt.Fprintf(&b, ` %s="%s"`, a.Name, a.Value)
	}
	b.WriteString(">")
	return b.String()
}

func endTag(e *resource.Entry) string {
	return "</" + e.Tag + ">"
}

func describe(e *resource.Entry) string {
	if key, ok := e.Identity(); ok {
		return fmt.Sprintf("%s %q", e.Kind, key)
	}
	return e.Kind.String()
}

// errNoResources is returned for documents without a <resources> root.
var errNoResources = errors.New("no <resources> element")

// isEOF reports the end of input.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
