package scene

import (
	"errors"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// NodeID is a stable handle to a node. It survives renames and re-parenting.
type NodeID string

// Root is the parent of every top-level node.
const Root NodeID = ""

// Kind distinguishes ordinary transforms from auxiliary point entities.
type Kind string

const (
	KindAny       Kind = ""
	KindTransform Kind = "transform"
	KindLocator   Kind = "locator"
)

// Transform attribute names accepted by LockAttr.
const (
	AttrTranslate = "translate"
	AttrRotate    = "rotate"
	AttrScale     = "scale"
)

// TransformAttrs lists the attributes that make up a node's transform.
var TransformAttrs = []string{AttrTranslate, AttrRotate, AttrScale}

var (
	ErrNotFound      = errors.New("scene: node not found")
	ErrLocked        = errors.New("scene: node is locked")
	ErrAttrLocked    = errors.New("scene: attribute is locked")
	ErrNoAttr        = errors.New("scene: attribute not found")
	ErrNameCollision = errors.New("scene: name already used by a sibling")
	ErrInvalidName   = errors.New("scene: invalid node name")
	ErrCycle         = errors.New("scene: cannot parent a node under itself")
	ErrNotAffine     = errors.New("scene: matrix is not affine")
	ErrNothingToUndo = errors.New("scene: nothing to undo")
	ErrChunkOpen     = errors.New("scene: undo chunk still open")
	ErrNoChunk       = errors.New("scene: no undo chunk open")
)

// Filter narrows a selection query.
//
// Pattern is matched against full paths one `|`-separated segment at a time
// using path.Match syntax, so "|Originals|*" matches direct children of
// Originals only. An empty pattern matches everything.
type Filter struct {
	Kind    Kind
	Pattern string
}

// Host is the scene-graph surface the layout tools drive. It is a thin
// abstraction over a DCC application's command layer; Graph is the
// in-memory implementation.
type Host interface {
	CreateTransform(name string, parent NodeID) (NodeID, error)
	CreateLocator(name string, parent NodeID) (NodeID, error)
	Exists(id NodeID) bool
	Kind(id NodeID) (Kind, error)
	Delete(id NodeID) error
	Duplicate(id NodeID) (NodeID, error)

	Name(id NodeID) (string, error)
	Path(id NodeID) (string, error)
	Lookup(path string) (NodeID, bool)
	Parent(id NodeID) (NodeID, error)
	Children(id NodeID) ([]NodeID, error)
	Reparent(id, parent NodeID) (string, error)
	Rename(id NodeID, name string) (string, error)

	GetAttr(id NodeID, name string) (string, error)
	SetAttr(id NodeID, name, value string) error
	HasAttr(id NodeID, name string) bool
	DeleteAttr(id NodeID, name string) error
	NodesWithAttr(name string) []NodeID

	LockAttr(id NodeID, attr string, locked bool) error
	IsAttrLocked(id NodeID, attr string) bool
	LockNode(id NodeID, locked bool) error
	IsNodeLocked(id NodeID) bool

	SetTranslate(id NodeID, t xform.Vec3) error
	WorldMatrix(id NodeID) (xform.Matrix, error)
	SetWorldMatrix(id NodeID, m xform.Matrix) error
	WorldPosition(id NodeID) (xform.Vec3, error)
	Freeze(id NodeID) error

	Select(ids ...NodeID) error
	Selection(f Filter) []NodeID
	Hide(ids ...NodeID) error
	Show(ids ...NodeID) error
	IsHidden(id NodeID) bool

	OpenChunk(label string)
	CloseChunk() error
	Undo() error
}
