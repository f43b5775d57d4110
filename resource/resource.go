// Package resource defines the document-agnostic model shared by the merge
// and align packages: an ordered list of keyed entries (strings, string
// arrays, plurals), comments, and opaque nodes, plus the minimal edit
// contract a concrete document must satisfy.
package resource

import "strings"

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// Kind identifies the shape of an entry.
type Kind int

const (
	// KindOpaque is any node the model does not recognize. Opaque entries are
	// never matched, copied or moved.
	KindOpaque Kind = iota
	// KindString is a single translatable value identified by a key.
	KindString
	// KindGroup is a keyed list of keyless sub-values (string-array, plurals).
	KindGroup
	// KindComment is a free-standing comment, identified by its text.
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindGroup:
		return "group"
	case KindComment:
		return "comment"
	}
	return "opaque"
}

// GroupKind distinguishes the two group shapes.
type GroupKind int

const (
	// GroupArray is an ordered list of values (<string-array>).
	GroupArray GroupKind = iota
	// GroupPlurals is a list of quantity-tagged values (<plurals>).
	GroupPlurals
)

// Attr is a single element attribute. Value is kept in its serialized
// (escaped) form.
type Attr struct {
	Name  string
	Value string
}

// Entry is one node of a document: a top-level child, or an item of a group.
type Entry struct {
	Kind Kind

	// Tag is the element name the entry was read from ("string", "plurals",
	// "item", ...). Empty for comments and non-element opaque nodes.
	Tag string
	// Attrs are the element attributes in document order.
	Attrs []Attr
	// Namespaces are the xmlns declarations the entry's attributes or markup
	// refer to, Name holding the prefix and Value the namespace URI. A tree
	// receiving a copy declares the ones it lacks.
	Namespaces []Attr

	// Key is the declared name. Empty means the entry has no key and is inert.
	Key string

	// --- KindString and group items ---

	// Value is the raw serialized value: escaped text, or a literal block.
	Value string
	// Markup reports that Value contains child elements rather than text.
	Markup bool

	// --- KindGroup ---

	Group GroupKind
	Items []*Entry

	// --- KindComment ---

	// Text is the exact comment text, delimiters included.
	Text string
}

// Identity returns the key used to match equivalent entries across two
// documents. ok is false for opaque entries and for keyless strings/groups.
func (e *Entry) Identity() (key string, ok bool) {
	switch e.Kind {
	case KindString, KindGroup:
		return e.Key, e.Key != ""
	case KindComment:
		return e.Text, true
	}
	return "", false
}

// Translatable reports whether the entry carries translatable content that
// needs to exist in every localized document.
func (e *Entry) Translatable() bool {
	if e.Kind != KindString && e.Kind != KindGroup {
		return false
	}
	return e.Key != ""
}

// Attr returns the value of the named attribute.
func (e *Entry) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Attrs != nil {
		c.Attrs = append([]Attr(nil), e.Attrs...)
	}
	if e.Namespaces != nil {
		c.Namespaces = append([]Attr(nil), e.Namespaces...)
	}
	if e.Items != nil {
		c.Items = make([]*Entry, len(e.Items))
		for i, it := range e.Items {
			c.Items[i] = it.Clone()
		}
	}
	return &c
}

// ---------------------------------------------------------------------------
// Literal blocks
// ---------------------------------------------------------------------------

const (
	literalOpen  = "<![CDATA["
	literalClose = "]]>"
)

// IsLiteral reports whether a raw value is exactly one literal block, with
// nothing before its opening or after its closing marker.
func IsLiteral(raw string) bool {
	if !strings.HasPrefix(raw, literalOpen) {
		return false
	}
	end := strings.Index(raw[len(literalOpen):], literalClose)
	return end >= 0 && len(literalOpen)+end+len(literalClose) == len(raw)
}

// LiteralText returns the text held by a literal block. Values that are not
// a single literal block are returned as is.
func LiteralText(raw string) string {
	if !IsLiteral(raw) {
		return raw
	}
	return raw[len(literalOpen) : len(raw)-len(literalClose)]
}

// WrapLiteral wraps text in a literal block.
func WrapLiteral(text string) string {
	return literalOpen + text + literalClose
}

// ---------------------------------------------------------------------------
// Edit contract
// ---------------------------------------------------------------------------

// Tree is the editable view of one document. Implementations own the
// entries they return; callers only hold them for the duration of one
// operation.
type Tree interface {
	// Children returns the top-level entries in document order, opaque
	// entries included.
	Children() []*Entry
	// Append inserts a deep copy of e as the last top-level child and
	// returns the inserted entry.
	Append(e *Entry) (*Entry, error)
	// MoveAfter relocates e so it immediately follows anchor.
	MoveAfter(e, anchor *Entry) error
	// SetValue rewrites the value of a string entry or group item.
	// When literal is true raw is unescaped text stored as a literal block;
	// otherwise raw is already escaped.
	SetValue(e *Entry, raw string, literal bool) error
}

// Keys returns the identities of the translatable entries of t in order.
func Keys(t Tree) []string {
	var keys []string
	for _, e := range t.Children() {
		if e.Translatable() {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Alignable returns the entries of t that have an identity, in order.
func Alignable(t Tree) []*Entry {
	var out []*Entry
	for _, e := range t.Children() {
		if _, ok := e.Identity(); ok {
			out = append(out, e)
		}
	}
	return out
}
