package scene

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// DocumentVersion is the scene document format version.
const DocumentVersion = 1

// Document is the YAML form of a Graph.
//
//	version: 1
//	nodes:
//	  - name: Pillar
//	    kind: transform
//	    matrix: [1,0,0,5, 0,1,0,0, 0,0,1,0, 0,0,0,1]
//	    points: [[0,0,0], [0,3,0]]
//	    children: [...]
//	selection: ["|Pillar"]
type Document struct {
	Version   int       `yaml:"version"`
	Nodes     []NodeDoc `yaml:"nodes"`
	Selection []string  `yaml:"selection,omitempty"`
}

// NodeDoc is one node and its subtree.
type NodeDoc struct {
	Name        string            `yaml:"name"`
	Kind        Kind              `yaml:"kind"`
	Matrix      []float64         `yaml:"matrix,omitempty"` // local, row-major; omitted means identity
	Points      []xform.Vec3      `yaml:"points,omitempty"`
	Attrs       map[string]string `yaml:"attrs,omitempty"`
	LockedAttrs []string          `yaml:"locked_attrs,omitempty"`
	Locked      bool              `yaml:"locked,omitempty"`
	Hidden      bool              `yaml:"hidden,omitempty"`
	Children    []NodeDoc         `yaml:"children,omitempty"`
}

// Document exports the graph.
func (g *Graph) Document() Document {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc := Document{Version: DocumentVersion}
	for _, id := range g.roots {
		doc.Nodes = append(doc.Nodes, g.nodeDoc(id))
	}
	for _, id := range g.selection {
		doc.Selection = append(doc.Selection, g.path(id))
	}
	return doc
}

func (g *Graph) nodeDoc(id NodeID) NodeDoc {
	n := g.nodes[id]
	d := NodeDoc{
		Name:   n.name,
		Kind:   n.kind,
		Points: slices.Clone(n.points),
		Locked: n.locked,
		Hidden: n.hidden,
	}
	if n.local != xform.Identity() {
		d.Matrix = n.local.Flat()
	}
	if len(n.attrs) > 0 {
		d.Attrs = make(map[string]string, len(n.attrs))
		for k, v := range n.attrs {
			d.Attrs[k] = v
		}
	}
	for _, a := range TransformAttrs {
		if n.attrLock[a] {
			d.LockedAttrs = append(d.LockedAttrs, a)
		}
	}
	for _, c := range n.children {
		d.Children = append(d.Children, g.nodeDoc(c))
	}
	return d
}

// FromDocument builds a graph from a document.
func FromDocument(doc Document, opts ...Option) (*Graph, error) {
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("scene document version %d not supported", doc.Version)
	}
	g := NewGraph(opts...)
	for i := range doc.Nodes {
		if err := g.addDoc(&doc.Nodes[i], Root); err != nil {
			return nil, err
		}
	}
	for _, p := range doc.Selection {
		id, ok := g.lookup(p)
		if !ok {
			return nil, fmt.Errorf("selection %q: %w", p, ErrNotFound)
		}
		g.selection = append(g.selection, id)
	}
	return g, nil
}

func (g *Graph) addDoc(d *NodeDoc, parent NodeID) error {
	if d.Kind != KindTransform && d.Kind != KindLocator {
		return fmt.Errorf("node %q: unknown kind %q", d.Name, d.Kind)
	}
	if !validName(d.Name) {
		return fmt.Errorf("node %q: %w", d.Name, ErrInvalidName)
	}
	for _, c := range g.childrenOf(parent) {
		if g.nodes[c].name == d.Name {
			return fmt.Errorf("node %q: %w", d.Name, ErrNameCollision)
		}
	}
	local := xform.Identity()
	if d.Matrix != nil {
		m, err := xform.FromFlat(d.Matrix)
		if err != nil {
			return fmt.Errorf("node %q: %w", d.Name, err)
		}
		if !m.IsAffine(xform.DefaultTolerance) {
			return fmt.Errorf("node %q: %w", d.Name, ErrNotAffine)
		}
		local = m
	}
	n := &node{
		id:       g.newID(),
		name:     d.Name,
		kind:     d.Kind,
		parent:   parent,
		local:    local,
		points:   slices.Clone(d.Points),
		attrs:    map[string]string{},
		attrLock: map[string]bool{},
		locked:   d.Locked,
		hidden:   d.Hidden,
	}
	for k, v := range d.Attrs {
		n.attrs[k] = v
	}
	for _, a := range d.LockedAttrs {
		if !slices.Contains(TransformAttrs, a) {
			return fmt.Errorf("node %q: cannot lock %q: %w", d.Name, a, ErrNoAttr)
		}
		n.attrLock[a] = true
	}
	g.nodes[n.id] = n
	g.attach(n.id, parent)
	for i := range d.Children {
		if err := g.addDoc(&d.Children[i], n.id); err != nil {
			return err
		}
	}
	return nil
}

// Parse validates raw YAML against the scene schema and decodes it.
func Parse(data []byte) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ValidateDocument(raw); err != nil {
		return Document{}, err
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode scene: %w", err)
	}
	return doc, nil
}

// Load reads a scene file.
func Load(path string, opts ...Option) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return FromDocument(doc, opts...)
}

// Marshal renders the graph as YAML.
func (g *Graph) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g.Document()); err != nil {
		return nil, fmt.Errorf("failed to encode scene: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode scene: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the graph to path.
func (g *Graph) Save(path string) error {
	data, err := g.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scene file: %w", err)
	}
	return nil
}
