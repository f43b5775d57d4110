// Package merge propagates missing entries from one resource document to
// another, the way msgmerge adds new template entries to a catalog:
//   - Entries whose key is absent from the destination are copied to its end.
//   - Entries already present are left alone, translations included.
//   - Comments and opaque nodes are never copied.
//   - Copied values are marked untranslated as "{tag}:[{value}]".
package merge

import (
	"fmt"

	"github.com/minios-linux/strsync/resource"
)

// Missing appends to dst a localized copy of every string and group of src
// whose key dst does not have yet. It returns the number of entries added.
//
// Running Missing again with the same arguments adds nothing. Keys repeated
// within src are not deduplicated: each occurrence missing from dst is
// appended.
func Missing(src, dst resource.Tree, tag string) (int, error) {
	existing := make(map[string]bool)
	for _, e := range dst.Children() {
		if e.Translatable() {
			existing[e.Key] = true
		}
	}

	added := 0
	for _, e := range src.Children() {
		if !e.Translatable() || existing[e.Key] {
			continue
		}
		c, err := dst.Append(e)
		if err != nil {
			return added, fmt.Errorf("adding %s %q: %w", e.Kind, e.Key, err)
		}
		added++
		if err := localize(dst, c, tag); err != nil {
			return added, fmt.Errorf("localizing %s %q: %w", e.Kind, e.Key, err)
		}
	}
	return added, nil
}

// MissingFromAll runs Missing for every source in order against the same
// destination. A key brought in by an earlier source is not copied again by a
// later one.
func MissingFromAll(srcs []resource.Tree, dst resource.Tree, tag string) (int, error) {
	total := 0
	for _, src := range srcs {
		n, err := Missing(src, dst, tag)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Mark returns the untranslated marker for value.
func Mark(tag, value string) string {
	return fmt.Sprintf("%s:[%s]", tag, value)
}

// localize marks a freshly copied entry as untranslated.
func localize(t resource.Tree, e *resource.Entry, tag string) error {
	switch e.Kind {
	case resource.KindString:
		return localizeValue(t, e, tag)
	case resource.KindGroup:
		for _, it := range e.Items {
			if err := localizeValue(t, it, tag); err != nil {
				return err
			}
		}
	}
	return nil
}

// localizeValue rewrites a single value. Values holding child markup are left
// untouched since their structure cannot be rewritten safely. Literal blocks
// are templated on their inner text and written back as literal blocks.
func localizeValue(t resource.Tree, e *resource.Entry, tag string) error {
	if e.Markup {
		return nil
	}
	if resource.IsLiteral(e.Value) {
		return t.SetValue(e, Mark(tag, resource.LiteralText(e.Value)), true)
	}
	return t.SetValue(e, Mark(tag, e.Value), false)
}
