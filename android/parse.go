package android

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/minios-linux/strsync/resource"
)

// parser walks the raw token stream and slices the input by decoder offsets.
// RawToken is used so namespace prefixes (xliff:g, tools:ignore) are kept as
// written; element nesting is checked here instead.
type parser struct {
	data []byte
	dec  *xml.Decoder
	file *File
	// used collects the prefixes referenced by the current top-level element.
	used map[string]bool
}

func newParser(data []byte, f *File) *parser {
	return &parser{
		data: data,
		dec:  xml.NewDecoder(bytes.NewReader(data)),
		file: f,
	}
}

func (p *parser) offset() int64 {
	return p.dec.InputOffset()
}

func (p *parser) since(start int64) string {
	return string(p.data[start:p.offset()])
}

func (p *parser) errorf(format string, args ...any) error {
	line, _ := p.dec.InputPos()
	return fmt.Errorf("line %d: %s", line, fmt.Sprintf(format, args...))
}

// next returns the next token and the offset it starts at.
func (p *parser) next() (xml.Token, int64, error) {
	at := p.offset()
	tok, err := p.dec.RawToken()
	if err != nil {
		if isEOF(err) {
			return nil, at, p.errorf("unexpected end of file")
		}
		return nil, at, p.errorf("%v", err)
	}
	return tok, at, nil
}

// root consumes the prolog and the <resources> start tag.
func (p *parser) root() error {
	for {
		tok, err := p.dec.RawToken()
		if err != nil {
			if isEOF(err) {
				return errNoResources
			}
			return p.errorf("%v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if qualified(se.Name) != "resources" {
			return p.errorf("unexpected root element <%s>", qualified(se.Name))
		}
		for _, a := range se.Attr {
			if a.Name.Space == "xmlns" {
				p.file.namespaces[a.Name.Local] = attrEscaper.Replace(a.Value)
			}
		}
		p.file.head = string(p.data[:p.offset()])
		p.file.selfClosed = bytes.HasSuffix(bytes.TrimRight([]byte(p.file.head), " \t\r\n"), []byte("/>"))
		return nil
	}
}

// children reads every top-level child up to </resources>.
func (p *parser) children() error {
	var lead strings.Builder
	push := func(n *node) {
		n.lead = lead.String()
		lead.Reset()
		p.file.order = append(p.file.order, n)
		p.file.nodes[n.entry] = n
	}

	for {
		tok, at, err := p.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if qualified(t.Name) != "resources" {
				return p.errorf("unexpected </%s>", qualified(t.Name))
			}
			p.file.tail = lead.String() + string(p.data[at:])
			return nil

		case xml.CharData:
			raw := p.since(at)
			if strings.TrimSpace(raw) == "" {
				lead.WriteString(raw)
				continue
			}
			push(&node{entry: &resource.Entry{Kind: resource.KindOpaque}, raw: raw})

		case xml.Comment:
			raw := p.since(at)
			push(&node{entry: &resource.Entry{Kind: resource.KindComment, Text: raw}, raw: raw})

		case xml.StartElement:
			n, err := p.element(t, at)
			if err != nil {
				return err
			}
			push(n)

		default:
			push(&node{entry: &resource.Entry{Kind: resource.KindOpaque}, raw: p.since(at)})
		}
	}
}

// element reads one top-level element whose start tag began at start.
func (p *parser) element(se xml.StartElement, start int64) (*node, error) {
	e := &resource.Entry{
		Tag:   qualified(se.Name),
		Attrs: attrs(se.Attr),
		Key:   attrValue(se, "name"),
	}
	n := &node{entry: e, open: p.since(start)}
	p.used = make(map[string]bool)
	p.use(se)

	switch e.Tag {
	case "string":
		e.Kind = resource.KindString
		if err := p.value(n, se.Name); err != nil {
			return nil, fmt.Errorf("reading <string name=%q>: %w", e.Key, err)
		}
		e.Namespaces = p.file.namespacesFor(p.used)
	case "string-array", "plurals":
		e.Kind = resource.KindGroup
		e.Group = resource.GroupArray
		if e.Tag == "plurals" {
			e.Group = resource.GroupPlurals
		}
		if err := p.group(n, se.Name); err != nil {
			return nil, fmt.Errorf("reading <%s name=%q>: %w", e.Tag, e.Key, err)
		}
		e.Namespaces = p.file.namespacesFor(p.used)
	default:
		e.Kind = resource.KindOpaque
		if err := p.skip(se.Name); err != nil {
			return nil, fmt.Errorf("reading <%s>: %w", e.Tag, err)
		}
		n.raw = p.since(start)
		n.open = ""
	}
	return n, nil
}

// value reads the content of an element holding a single value, up to and
// including its end tag.
func (p *parser) value(n *node, name xml.Name) error {
	begin := p.offset()
	var stack []xml.Name
	for {
		tok, at, err := p.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			p.use(t)
			n.entry.Markup = true
		case xml.EndElement:
			if len(stack) == 0 {
				if t.Name != name {
					return p.errorf("expected </%s>, got </%s>", qualified(name), qualified(t.Name))
				}
				n.entry.Value = string(p.data[begin:at])
				n.close = p.since(at)
				return nil
			}
			if err := p.pop(&stack, t.Name); err != nil {
				return err
			}
		}
	}
}

// group reads the items of a string-array or plurals element.
func (p *parser) group(n *node, name xml.Name) error {
	gapStart := p.offset()
	var stack []xml.Name
	for {
		tok, at, err := p.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.use(t)
			if len(stack) == 0 && qualified(t.Name) == "item" {
				n.gaps = append(n.gaps, string(p.data[gapStart:at]))
				item := &resource.Entry{
					Kind:  resource.KindString,
					Tag:   "item",
					Attrs: attrs(t.Attr),
				}
				in := &node{entry: item, open: p.since(at)}
				if err := p.value(in, t.Name); err != nil {
					return fmt.Errorf("reading <item> %d: %w", len(n.entry.Items), err)
				}
				n.entry.Items = append(n.entry.Items, item)
				p.file.nodes[item] = in
				gapStart = p.offset()
				continue
			}
			stack = append(stack, t.Name)
		case xml.EndElement:
			if len(stack) == 0 {
				if t.Name != name {
					return p.errorf("expected </%s>, got </%s>", qualified(name), qualified(t.Name))
				}
				n.gaps = append(n.gaps, string(p.data[gapStart:at]))
				n.close = p.since(at)
				return nil
			}
			if err := p.pop(&stack, t.Name); err != nil {
				return err
			}
		}
	}
}

// skip consumes tokens up to the end tag matching name.
func (p *parser) skip(name xml.Name) error {
	stack := []xml.Name{name}
	for len(stack) > 0 {
		tok, _, err := p.next()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
		case xml.EndElement:
			if err := p.pop(&stack, t.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) pop(stack *[]xml.Name, name xml.Name) error {
	s := *stack
	if top := s[len(s)-1]; top != name {
		return p.errorf("expected </%s>, got </%s>", qualified(top), qualified(name))
	}
	*stack = s[:len(s)-1]
	return nil
}

// use records the prefixes of an element name and of its attributes.
func (p *parser) use(se xml.StartElement) {
	names := []xml.Name{se.Name}
	for _, a := range se.Attr {
		names = append(names, a.Name)
	}
	for _, n := range names {
		switch n.Space {
		case "", "xml", "xmlns":
		default:
			p.used[n.Space] = true
		}
	}
}

// qualified returns prefix:local as written in the document.
func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func attrs(in []xml.Attr) []resource.Attr {
	if len(in) == 0 {
		return nil
	}
	out := make([]resource.Attr, len(in))
	for i, a := range in {
		out[i] = resource.Attr{Name: qualified(a.Name), Value: attrEscaper.Replace(a.Value)}
	}
	return out
}

func attrValue(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;")
