package align

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/strsync/resource"
)

// tree builds a MemTree from short codes: "#text" is a comment, "~name" an
// opaque node, anything else a string keyed by its code.
func tree(codes ...string) *resource.MemTree {
	t := resource.NewMemTree()
	for _, s := range codes {
		switch {
		case len(s) > 0 && s[0] == '#':
			t.Entries = append(t.Entries, &resource.Entry{Kind: resource.KindComment, Text: "<!--" + s[1:] + "-->"})
		case len(s) > 0 && s[0] == '~':
			t.Entries = append(t.Entries, &resource.Entry{Kind: resource.KindOpaque, Tag: s[1:]})
		default:
			t.Entries = append(t.Entries, &resource.Entry{Kind: resource.KindString, Tag: "string", Key: s, Value: s})
		}
	}
	return t
}

func codesOf(t *resource.MemTree) []string {
	var out []string
	for _, e := range t.Entries {
		switch e.Kind {
		case resource.KindComment:
			out = append(out, "#"+e.Text[4:len(e.Text)-3])
		case resource.KindOpaque:
			out = append(out, "~"+e.Tag)
		default:
			out = append(out, e.Key)
		}
	}
	return out
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name   string
		ref    []string
		target []string
		want   []string
		swaps  int
	}{
		{
			name:   "rotation",
			ref:    []string{"a", "b", "c"},
			target: []string{"c", "a", "b"},
			want:   []string{"a", "b", "c"},
			swaps:  2,
		},
		{
			name:   "already aligned",
			ref:    []string{"a", "b", "c"},
			target: []string{"a", "b", "c"},
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "target-only entry pushed behind matched ones",
			ref:    []string{"a", "b"},
			target: []string{"b", "x", "a"},
			want:   []string{"a", "b", "x"},
			swaps:  2,
		},
		{
			name:   "reference keys missing from target are skipped",
			ref:    []string{"m1", "a", "b"},
			target: []string{"b", "a", "c"},
			want:   []string{"a", "b", "c"},
			swaps:  1,
		},
		{
			name:   "walk stops at the end of the shorter list",
			ref:    []string{"m1", "m2", "a", "b"},
			target: []string{"b", "a"},
			want:   []string{"b", "a"},
		},
		{
			name:   "reference longer than target",
			ref:    []string{"x", "y", "a"},
			target: []string{"b", "a"},
			want:   []string{"b", "a"},
		},
		{
			name:   "unmatched tail keeps its order",
			ref:    []string{"a", "b"},
			target: []string{"b", "a", "x", "y"},
			want:   []string{"a", "b", "x", "y"},
			swaps:  1,
		},
		{
			name:   "pairwise swaps displace unmatched entries",
			ref:    []string{"a", "b"},
			target: []string{"x", "a", "y", "b"},
			want:   []string{"a", "b", "y", "x"},
			swaps:  2,
		},
		{
			name:   "comments align by text",
			ref:    []string{"#one", "a", "#two", "b"},
			target: []string{"b", "#two", "a", "#one"},
			want:   []string{"#one", "a", "#two", "b"},
			swaps:  2,
		},
		{
			name:   "repeated comments use the first unmatched occurrence",
			ref:    []string{"#s", "a", "#s", "b"},
			target: []string{"a", "#s", "b", "#s"},
			want:   []string{"#s", "a", "#s", "b"},
			swaps:  2,
		},
		{
			name:   "opaque entries keep their place",
			ref:    []string{"a", "b", "c"},
			target: []string{"c", "~integer", "a", "b"},
			want:   []string{"a", "~integer", "b", "c"},
			swaps:  2,
		},
		{
			name:   "empty reference",
			ref:    nil,
			target: []string{"b", "a"},
			want:   []string{"b", "a"},
		},
		{
			name:   "empty target",
			ref:    []string{"a"},
			target: nil,
			want:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := tree(tc.target...)
			n, err := Order(target, tree(tc.ref...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, codesOf(target))
			assert.Equal(t, tc.swaps, n)
		})
	}
}

func TestOrderDoesNotTouchReferenceOrContents(t *testing.T) {
	ref := tree("a", "b", "c")
	target := tree("c", "b", "a")
	target.Entries[0].Value = "C translated"

	_, err := Order(target, ref)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, codesOf(ref))
	assert.Equal(t, []string{"a", "b", "c"}, codesOf(target))
	assert.Equal(t, "C translated", target.Entries[2].Value)
}

func TestOrderIgnoresKeylessEntries(t *testing.T) {
	target := tree("b", "a")
	keyless := &resource.Entry{Kind: resource.KindString, Tag: "string", Value: "nameless"}
	target.Entries = append([]*resource.Entry{keyless}, target.Entries...)

	_, err := Order(target, tree("a", "b"))
	require.NoError(t, err)
	assert.Same(t, keyless, target.Entries[0])
	assert.Equal(t, []string{"a", "b"}, resource.Keys(target))
}

func TestOrderFixedPointAndPrefixProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		ref, target := randomPair(rng)
		refKeys := codesOf(ref)

		_, err := Order(target, ref)
		require.NoError(t, err)
		once := codesOf(target)

		n, err := Order(target, ref)
		require.NoError(t, err)
		assert.Zero(t, n, "round %d: second pass swapped", round)
		assert.Equal(t, once, codesOf(target), "round %d", round)

		present := make(map[string]bool)
		for _, s := range once {
			present[s] = true
		}
		var prefix []string
		for _, k := range refKeys {
			if k[0] == '~' {
				continue
			}
			if !present[k] {
				break
			}
			prefix = append(prefix, k)
		}
		var got []string
		for _, s := range once {
			if s[0] != '~' {
				got = append(got, s)
			}
		}
		require.GreaterOrEqual(t, len(got), len(prefix))
		if len(prefix) > 0 {
			assert.Equal(t, prefix, got[:len(prefix)], "round %d: ref=%v", round, refKeys)
		}
	}
}

// randomPair returns a reference and a target sharing part of their keys,
// with a few target-only keys and opaque nodes sprinkled into the target.
func randomPair(rng *rand.Rand) (*resource.MemTree, *resource.MemTree) {
	n := rng.Intn(8)
	var refSpecs, tgtSpecs []string
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("k%d", i)
		if i%3 == 0 {
			k = "#" + k
		}
		refSpecs = append(refSpecs, k)
		if rng.Intn(4) != 0 {
			tgtSpecs = append(tgtSpecs, k)
		}
	}
	for i := rng.Intn(3); i > 0; i-- {
		tgtSpecs = append(tgtSpecs, fmt.Sprintf("only%d", i))
	}
	rng.Shuffle(len(tgtSpecs), func(i, j int) { tgtSpecs[i], tgtSpecs[j] = tgtSpecs[j], tgtSpecs[i] })
	if len(tgtSpecs) > 0 && rng.Intn(2) == 0 {
		at := rng.Intn(len(tgtSpecs))
		tgtSpecs = append(tgtSpecs[:at], append([]string{"~dimen"}, tgtSpecs[at:]...)...)
	}
	return tree(refSpecs...), tree(tgtSpecs...)
}

type failingTree struct {
	*resource.MemTree
	err error
}

func (f failingTree) MoveAfter(*resource.Entry, *resource.Entry) error { return f.err }

func TestOrderPropagatesTreeErrors(t *testing.T) {
	boom := fmt.Errorf("boom")
	target := failingTree{MemTree: tree("b", "a"), err: boom}

	n, err := Order(target, tree("a", "b"))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}
