package scene

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

type node struct {
	id       NodeID
	name     string
	kind     Kind
	parent   NodeID
	children []NodeID
	local    xform.Matrix
	points   []xform.Vec3 // geometry in local space
	attrs    map[string]string
	attrLock map[string]bool
	locked   bool
	hidden   bool
}

func (n *node) clone() *node {
	c := *n
	c.children = slices.Clone(n.children)
	c.points = slices.Clone(n.points)
	c.attrs = make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		c.attrs[k] = v
	}
	c.attrLock = make(map[string]bool, len(n.attrLock))
	for k, v := range n.attrLock {
		c.attrLock[k] = v
	}
	return &c
}

func (n *node) transformLocked() bool {
	for _, a := range TransformAttrs {
		if n.attrLock[a] {
			return true
		}
	}
	return false
}

// IDGenerator produces node IDs.
type IDGenerator func() NodeID

// UUIDGenerator returns random UUID-based node IDs.
func UUIDGenerator() NodeID {
	return NodeID(uuid.NewString())
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator overrides node ID generation (tests use sequential IDs).
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) { g.newID = gen }
}

// WithUndoLimit keeps at most n undo steps, dropping the oldest first.
// Zero or less keeps every step.
func WithUndoLimit(n int) Option {
	return func(g *Graph) { g.undoLimit = n }
}

// Graph is an in-memory Host.
//
// Thread-safety: every method takes the graph mutex, so concurrent readers
// are safe. Multi-step edits are not atomic; callers own sequencing.
//
// Every undo step is a full copy of the scene taken when its chunk opened.
// A non-atomic update over M instances leaves M+1 steps, so long-lived
// graphs should set WithUndoLimit.
type Graph struct {
	mu        sync.Mutex
	nodes     map[NodeID]*node
	roots     []NodeID
	selection []NodeID
	chunks    []snapshot
	history   []snapshot
	undoLimit int
	newID     IDGenerator
}

var _ Host = (*Graph)(nil)

// NewGraph returns an empty scene.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		nodes: make(map[NodeID]*node),
		newID: UUIDGenerator,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateTransform adds an empty transform under parent.
func (g *Graph) CreateTransform(name string, parent NodeID) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.create(name, KindTransform, parent)
}

// CreateLocator adds a point entity under parent.
func (g *Graph) CreateLocator(name string, parent NodeID) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.create(name, KindLocator, parent)
}

func (g *Graph) create(name string, kind Kind, parent NodeID) (NodeID, error) {
	if !validName(name) {
		return "", fmt.Errorf("create %q: %w", name, ErrInvalidName)
	}
	if parent != Root {
		if _, ok := g.nodes[parent]; !ok {
			return "", fmt.Errorf("create %q: parent %s: %w", name, parent, ErrNotFound)
		}
	}
	n := &node{
		id:       g.newID(),
		name:     g.uniqueName(parent, name, ""),
		kind:     kind,
		parent:   parent,
		local:    xform.Identity(),
		attrs:    map[string]string{},
		attrLock: map[string]bool{},
	}
	g.nodes[n.id] = n
	g.attach(n.id, parent)
	return n.id, nil
}

// Exists reports whether id is a live node.
func (g *Graph) Exists(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.nodes[id]
	return ok
}

// Kind returns the node kind.
func (g *Graph) Kind(id NodeID) (Kind, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return KindAny, err
	}
	return n.kind, nil
}

// Delete removes a node and its whole subtree. Fails if any node in the
// subtree is locked.
func (g *Graph) Delete(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.get(id)
	if err != nil {
		return err
	}
	var subtree []NodeID
	g.walk(id, func(c *node) { subtree = append(subtree, c.id) })
	for _, cid := range subtree {
		if g.nodes[cid].locked {
			return fmt.Errorf("delete %s: %w", g.path(cid), ErrLocked)
		}
	}
	g.detach(id, n.parent)
	for _, cid := range subtree {
		delete(g.nodes, cid)
	}
	g.selection = slices.DeleteFunc(g.selection, func(s NodeID) bool {
		_, ok := g.nodes[s]
		return !ok
	})
	return nil
}

// Duplicate deep-copies a subtree as a sibling of the source. The copy
// receives a unique name; attributes and locks are copied.
func (g *Graph) Duplicate(id NodeID) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, err := g.get(id)
	if err != nil {
		return "", err
	}
	copyID := g.copySubtree(src, src.parent)
	c := g.nodes[copyID]
	c.name = g.uniqueName(src.parent, src.name, copyID)
	g.attach(copyID, src.parent)
	return copyID, nil
}

func (g *Graph) copySubtree(src *node, parent NodeID) NodeID {
	c := src.clone()
	c.id = g.newID()
	c.parent = parent
	c.children = nil
	g.nodes[c.id] = c
	for _, child := range src.children {
		c.children = append(c.children, g.copySubtree(g.nodes[child], c.id))
	}
	return c.id
}

// Name returns the display name.
func (g *Graph) Name(id NodeID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	return n.name, nil
}

// Path returns the full `|`-separated path.
func (g *Graph) Path(id NodeID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.get(id); err != nil {
		return "", err
	}
	return g.path(id), nil
}

// Lookup resolves a full path to a node.
func (g *Graph) Lookup(p string) (NodeID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lookup(p)
}

func (g *Graph) lookup(p string) (NodeID, bool) {
	if p == "" || p == PathSeparator {
		return Root, false
	}
	parentPath, name := SplitPath(p)
	parent := Root
	if parentPath != "" {
		var ok bool
		if parent, ok = g.lookup(parentPath); !ok {
			return Root, false
		}
	}
	for _, c := range g.childrenOf(parent) {
		if g.nodes[c].name == name {
			return c, true
		}
	}
	return Root, false
}

// Parent returns the parent of id, or Root for top-level nodes.
func (g *Graph) Parent(id NodeID) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return Root, err
	}
	return n.parent, nil
}

// Children returns the direct children of id (Root lists top-level nodes).
func (g *Graph) Children(id NodeID) ([]NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id != Root {
		if _, err := g.get(id); err != nil {
			return nil, err
		}
	}
	return slices.Clone(g.childrenOf(id)), nil
}

// Reparent moves id under parent (Root for world) keeping its world
// transform. A name clash with a new sibling is resolved by renaming, the
// way a DCC parent command does. Returns the new full path.
func (g *Graph) Reparent(id, parent NodeID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	if n.locked {
		return "", fmt.Errorf("reparent %s: %w", g.path(id), ErrLocked)
	}
	if parent != Root {
		if _, err := g.get(parent); err != nil {
			return "", err
		}
		for p := parent; p != Root; p = g.nodes[p].parent {
			if p == id {
				return "", fmt.Errorf("reparent %s: %w", g.path(id), ErrCycle)
			}
		}
	}
	if n.parent == parent {
		return g.path(id), nil
	}

	world := g.world(id)
	newParentWorld := xform.Identity()
	if parent != Root {
		newParentWorld = g.world(parent)
	}
	inv, err := newParentWorld.Inverse()
	if err != nil {
		return "", fmt.Errorf("reparent %s: %w", g.path(id), err)
	}

	g.detach(id, n.parent)
	n.parent = parent
	n.local = inv.Mul(world)
	n.name = g.uniqueName(parent, n.name, id)
	g.attach(id, parent)
	return g.path(id), nil
}

// Rename changes the display name. Unlike Reparent it refuses to resolve
// sibling collisions.
func (g *Graph) Rename(id NodeID, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	if n.locked {
		return "", fmt.Errorf("rename %s: %w", g.path(id), ErrLocked)
	}
	if !validName(name) {
		return "", fmt.Errorf("rename %s to %q: %w", g.path(id), name, ErrInvalidName)
	}
	for _, sib := range g.childrenOf(n.parent) {
		if sib != id && g.nodes[sib].name == name {
			return "", fmt.Errorf("rename %s to %q: %w", g.path(id), name, ErrNameCollision)
		}
	}
	n.name = name
	return g.path(id), nil
}

// GetAttr returns a string attribute.
func (g *Graph) GetAttr(id NodeID, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return "", err
	}
	v, ok := n.attrs[name]
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", g.path(id), name, ErrNoAttr)
	}
	return v, nil
}

// SetAttr creates or overwrites a string attribute.
func (g *Graph) SetAttr(id NodeID, name, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if n.locked {
		return fmt.Errorf("set %s.%s: %w", g.path(id), name, ErrLocked)
	}
	n.attrs[name] = value
	return nil
}

// HasAttr reports whether the attribute exists.
func (g *Graph) HasAttr(id NodeID, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	_, ok = n.attrs[name]
	return ok
}

// DeleteAttr removes an attribute. Missing attributes are not an error.
func (g *Graph) DeleteAttr(id NodeID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if n.locked {
		return fmt.Errorf("delete %s.%s: %w", g.path(id), name, ErrLocked)
	}
	delete(n.attrs, name)
	return nil
}

// NodesWithAttr returns every node carrying the attribute, ordered by path.
func (g *Graph) NodesWithAttr(name string) []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []NodeID
	for id, n := range g.nodes {
		if _, ok := n.attrs[name]; ok {
			out = append(out, id)
		}
	}
	g.sortByPath(out)
	return out
}

// LockAttr locks or unlocks a transform attribute.
func (g *Graph) LockAttr(id NodeID, attr string, locked bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if !slices.Contains(TransformAttrs, attr) {
		return fmt.Errorf("lock %s.%s: %w", g.path(id), attr, ErrNoAttr)
	}
	if n.locked {
		return fmt.Errorf("lock %s.%s: %w", g.path(id), attr, ErrLocked)
	}
	n.attrLock[attr] = locked
	return nil
}

// IsAttrLocked reports the lock state of a transform attribute.
func (g *Graph) IsAttrLocked(id NodeID, attr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return ok && n.attrLock[attr]
}

// LockNode locks or unlocks the node as a whole. A locked node cannot be
// deleted, renamed, re-parented or have attributes changed.
func (g *Graph) LockNode(id NodeID, locked bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	n.locked = locked
	return nil
}

// IsNodeLocked reports the node lock state.
func (g *Graph) IsNodeLocked(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return ok && n.locked
}

// SetTranslate sets the local translation.
func (g *Graph) SetTranslate(id NodeID, t xform.Vec3) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if n.attrLock[AttrTranslate] {
		return fmt.Errorf("translate %s: %w", g.path(id), ErrAttrLocked)
	}
	n.local = n.local.WithTranslation(t)
	return nil
}

// LocalMatrix returns the node's local transform.
func (g *Graph) LocalMatrix(id NodeID) (xform.Matrix, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return xform.Matrix{}, err
	}
	return n.local, nil
}

// WorldMatrix returns the node's world transform.
func (g *Graph) WorldMatrix(id NodeID) (xform.Matrix, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.get(id); err != nil {
		return xform.Matrix{}, err
	}
	return g.world(id), nil
}

// SetWorldMatrix poses the node in world space. Fails if any transform
// attribute is locked.
func (g *Graph) SetWorldMatrix(id NodeID, m xform.Matrix) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if n.transformLocked() {
		return fmt.Errorf("xform %s: %w", g.path(id), ErrAttrLocked)
	}
	parentWorld := xform.Identity()
	if n.parent != Root {
		parentWorld = g.world(n.parent)
	}
	inv, err := parentWorld.Inverse()
	if err != nil {
		return fmt.Errorf("xform %s: %w", g.path(id), err)
	}
	n.local = inv.Mul(m)
	return nil
}

// WorldPosition returns the world-space pivot position of a node.
func (g *Graph) WorldPosition(id NodeID) (xform.Vec3, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.get(id); err != nil {
		return xform.Vec3{}, err
	}
	return g.world(id).Translation(), nil
}

// Freeze collapses the node's transform into its geometry: the local
// matrix becomes identity while geometry and children keep their world
// placement.
func (g *Graph) Freeze(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	if n.transformLocked() {
		return fmt.Errorf("freeze %s: %w", g.path(id), ErrAttrLocked)
	}
	for i, p := range n.points {
		n.points[i] = n.local.TransformPoint(p)
	}
	for _, c := range n.children {
		child := g.nodes[c]
		child.local = n.local.Mul(child.local)
	}
	n.local = xform.Identity()
	return nil
}

// SetPoints replaces the node's geometry (local space).
func (g *Graph) SetPoints(id NodeID, pts []xform.Vec3) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return err
	}
	n.points = slices.Clone(pts)
	return nil
}

// WorldPoints returns the node's geometry in world space.
func (g *Graph) WorldPoints(id NodeID) ([]xform.Vec3, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.get(id)
	if err != nil {
		return nil, err
	}
	w := g.world(id)
	out := make([]xform.Vec3, len(n.points))
	for i, p := range n.points {
		out[i] = w.TransformPoint(p)
	}
	return out, nil
}

// Select replaces the selection; order is preserved.
func (g *Graph) Select(ids ...NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if _, err := g.get(id); err != nil {
			return err
		}
	}
	g.selection = slices.Clone(ids)
	return nil
}

// Selection returns selected nodes matching f in selection order.
func (g *Graph) Selection(f Filter) []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []NodeID
	for _, id := range g.selection {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		if f.Kind != KindAny && n.kind != f.Kind {
			continue
		}
		if !matchPath(f.Pattern, g.path(id)) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Hide hides nodes.
func (g *Graph) Hide(ids ...NodeID) error {
	return g.setHidden(ids, true)
}

// Show un-hides nodes.
func (g *Graph) Show(ids ...NodeID) error {
	return g.setHidden(ids, false)
}

func (g *Graph) setHidden(ids []NodeID, hidden bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		n, err := g.get(id)
		if err != nil {
			return err
		}
		n.hidden = hidden
	}
	return nil
}

// IsHidden reports whether the node is hidden.
func (g *Graph) IsHidden(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return ok && n.hidden
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// SortByPath orders ids by full path in place.
func (g *Graph) SortByPath(ids []NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sortByPath(ids)
}

// internal helpers; callers hold g.mu.

func (g *Graph) get(id NodeID) (*node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrNotFound)
	}
	return n, nil
}

func (g *Graph) childrenOf(id NodeID) []NodeID {
	if id == Root {
		return g.roots
	}
	return g.nodes[id].children
}

func (g *Graph) attach(id, parent NodeID) {
	if parent == Root {
		g.roots = append(g.roots, id)
		return
	}
	p := g.nodes[parent]
	p.children = append(p.children, id)
}

func (g *Graph) detach(id, parent NodeID) {
	remove := func(s []NodeID) []NodeID {
		return slices.DeleteFunc(s, func(c NodeID) bool { return c == id })
	}
	if parent == Root {
		g.roots = remove(g.roots)
		return
	}
	p := g.nodes[parent]
	p.children = remove(p.children)
}

func (g *Graph) path(id NodeID) string {
	var p string
	for cur := id; cur != Root; cur = g.nodes[cur].parent {
		p = PathSeparator + g.nodes[cur].name + p
	}
	return p
}

func (g *Graph) world(id NodeID) xform.Matrix {
	m := xform.Identity()
	for cur := id; cur != Root; cur = g.nodes[cur].parent {
		m = g.nodes[cur].local.Mul(m)
	}
	return m
}

func (g *Graph) walk(id NodeID, fn func(*node)) {
	n := g.nodes[id]
	fn(n)
	for _, c := range n.children {
		g.walk(c, fn)
	}
}

// uniqueName returns name, or the next free numbered variant, among the
// children of parent other than self.
func (g *Graph) uniqueName(parent NodeID, name string, self NodeID) string {
	taken := make(map[string]bool)
	for _, c := range g.childrenOf(parent) {
		if c != self {
			taken[g.nodes[c].name] = true
		}
	}
	for taken[name] {
		name = nextName(name)
	}
	return name
}

func (g *Graph) sortByPath(ids []NodeID) {
	paths := make(map[NodeID]string, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; ok {
			paths[id] = g.path(id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool { return paths[ids[i]] < paths[ids[j]] })
}
