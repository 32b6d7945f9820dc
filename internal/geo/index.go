package geo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/ristretto"
)

// Sentinel errors for geography resolution and loading.
var (
	// ErrNotFound indicates the referenced area does not exist in the tree.
	ErrNotFound = errors.New("geo: not found")
	// ErrInvariant indicates the loaded reference data is inconsistent.
	// Fatal at startup, never returned at request time.
	ErrInvariant = errors.New("geo: invariant violation")
)

// Resolution is the outcome of a name or id lookup. Ambiguous is set when the
// reference matched areas at several levels and the narrowest one was chosen.
type Resolution struct {
	Node      *Node
	Ambiguous bool
}

// Index is the immutable geography tree. It is built once at startup and is
// safe for lock-free concurrent reads. Descendant sets are memoized per node,
// which is safe because the tree never changes after construction.
type Index struct {
	nodes       map[string]*Node
	byName      map[string][]*Node
	children    map[string][]string
	descendants *ristretto.Cache
}

// NewIndex validates the node set and builds lookup structures. Validation
// failures wrap ErrInvariant and must abort startup.
func NewIndex(nodes []Node) (*Index, error) {
	idx := &Index{
		nodes:    make(map[string]*Node, len(nodes)),
		byName:   make(map[string][]*Node),
		children: make(map[string][]string),
	}
	for i := range nodes {
		n := nodes[i]
		if n.ID == "" || n.Name == "" {
			return nil, fmt.Errorf("%w: node with empty id or name", ErrInvariant)
		}
		if !n.Level.Valid() || n.Level == LevelNational {
			return nil, fmt.Errorf("%w: node %s has invalid level %s", ErrInvariant, n.ID, n.Level)
		}
		if _, dup := idx.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %s", ErrInvariant, n.ID)
		}
		idx.nodes[n.ID] = &n
	}
	for _, n := range idx.nodes {
		if n.Level == LevelProvince {
			if n.ParentID != "" {
				return nil, fmt.Errorf("%w: province %s must not have a parent", ErrInvariant, n.ID)
			}
			continue
		}
		parent, ok := idx.nodes[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: node %s references missing parent %s", ErrInvariant, n.ID, n.ParentID)
		}
		if parent.Level != n.Level-1 {
			return nil, fmt.Errorf("%w: node %s at %s has parent at %s", ErrInvariant, n.ID, n.Level, parent.Level)
		}
		idx.children[parent.ID] = append(idx.children[parent.ID], n.ID)
	}
	for _, n := range idx.nodes {
		key := nameKey(n.Name)
		idx.byName[key] = append(idx.byName[key], n)
	}
	for _, matches := range idx.byName {
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(len(nodes)+1) * 10,
		MaxCost:     int64(len(nodes) + 1),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("geo: descendant cache: %w", err)
	}
	idx.descendants = cache
	return idx, nil
}

// Get returns the node with the given id.
func (idx *Index) Get(id string) (*Node, bool) {
	n, ok := idx.nodes[id]
	return n, ok
}

// Len returns the number of nodes in the tree.
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Resolve finds a node by id or by case-insensitive name. Canonical suffixed
// forms ("Lusaka Province") resolve as well; the suffix acts as a level hint.
// Pass LevelAny when the caller has no level context. When a bare name matches
// areas at several levels the narrowest level wins and Ambiguous is set.
func (idx *Index) Resolve(ref string, hint Level) (Resolution, error) {
	ref = collapseSpaces(ref)
	if ref == "" {
		return Resolution{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if n, ok := idx.nodes[ref]; ok {
		if hint != LevelAny && n.Level != hint {
			return Resolution{}, fmt.Errorf("%w: %q is not a %s", ErrNotFound, ref, hint)
		}
		return Resolution{Node: n}, nil
	}

	name, suffixHint := stripLevelSuffix(ref)
	if suffixHint != LevelAny {
		if hint != LevelAny && hint != suffixHint {
			return Resolution{}, fmt.Errorf("%w: %q conflicts with requested level %s", ErrNotFound, ref, hint)
		}
		hint = suffixHint
	}

	matches := idx.byName[nameKey(name)]
	if len(matches) == 0 {
		return Resolution{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	if hint != LevelAny {
		for _, n := range matches {
			if n.Level == hint {
				return Resolution{Node: n}, nil
			}
		}
		return Resolution{}, fmt.Errorf("%w: no %s named %q", ErrNotFound, hint, name)
	}
	if len(matches) == 1 {
		return Resolution{Node: matches[0]}, nil
	}
	// Several levels share this name; prefer the narrowest.
	best := matches[0]
	for _, n := range matches[1:] {
		if n.Level.NarrowerThan(best.Level) {
			best = n
		}
	}
	return Resolution{Node: best, Ambiguous: true}, nil
}

// Descendants returns every node beneath the given node. Results are memoized
// per node id.
func (idx *Index) Descendants(node *Node) []*Node {
	if node == nil {
		return nil
	}
	if cached, ok := idx.descendants.Get(node.ID); ok {
		if set, ok := cached.([]*Node); ok {
			return set
		}
	}
	var set []*Node
	stack := append([]string(nil), idx.children[node.ID]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		child := idx.nodes[id]
		set = append(set, child)
		stack = append(stack, idx.children[id]...)
	}
	sort.Slice(set, func(i, j int) bool { return set[i].ID < set[j].ID })
	idx.descendants.Set(node.ID, set, 1)
	return set
}

// DescendantsAtLevel returns the node itself when it sits at the requested
// level, otherwise its descendants at that level.
func (idx *Index) DescendantsAtLevel(node *Node, level Level) []*Node {
	if node == nil {
		return nil
	}
	if node.Level == level {
		return []*Node{node}
	}
	if node.Level.NarrowerThan(level) {
		return nil
	}
	var out []*Node
	for _, d := range idx.Descendants(node) {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out
}

// IsDescendantOf reports whether candidate sits strictly beneath ancestor.
func (idx *Index) IsDescendantOf(candidate, ancestor *Node) bool {
	if candidate == nil || ancestor == nil || candidate.ID == ancestor.ID {
		return false
	}
	for cur := candidate; cur.ParentID != ""; {
		parent, ok := idx.nodes[cur.ParentID]
		if !ok {
			return false
		}
		if parent.ID == ancestor.ID {
			return true
		}
		cur = parent
	}
	return false
}

// Covers reports whether candidate equals ancestor or sits beneath it.
func (idx *Index) Covers(ancestor, candidate *Node) bool {
	if ancestor == nil || candidate == nil {
		return false
	}
	return ancestor.ID == candidate.ID || idx.IsDescendantOf(candidate, ancestor)
}

// AncestorAtLevel walks up from node to the ancestor at the requested level.
// Returns the node itself when it already sits at that level, nil when the
// level is narrower than the node's own.
func (idx *Index) AncestorAtLevel(node *Node, level Level) *Node {
	for cur := node; cur != nil; {
		if cur.Level == level {
			return cur
		}
		if !cur.Level.NarrowerThan(level) {
			return nil
		}
		cur = idx.nodes[cur.ParentID]
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(collapseSpaces(name))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripLevelSuffix removes a trailing level word ("... Province") and returns
// the implied level, or LevelAny when no suffix is present.
func stripLevelSuffix(ref string) (string, Level) {
	lower := strings.ToLower(ref)
	for _, level := range []Level{LevelProvince, LevelDistrict, LevelConstituency, LevelWard} {
		suffix := " " + level.String()
		if strings.HasSuffix(lower, suffix) {
			return collapseSpaces(ref[:len(ref)-len(suffix)]), level
		}
	}
	return ref, LevelAny
}
