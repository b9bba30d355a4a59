// Package basis captures an entity's affine frame with four auxiliary
// points parented under it.
//
// A transform's own channels lose their history when the transform is
// frozen: the matrix collapses to identity and the offset is baked into the
// geometry. Points parented under the entity keep their world positions
// through a freeze, so the frame they span can always be read back from
// world space.
package basis

import (
	"errors"
	"fmt"
	"math"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// Names of the four frame points under their owner.
const (
	OriginName = "Zero"
	XName      = "X"
	YName      = "Y"
	ZName      = "Z"
)

// PointNames lists the frame points in attach order.
var PointNames = [4]string{OriginName, XName, YName, ZName}

var (
	// ErrFrameMissing means one of the four points is not a direct child.
	ErrFrameMissing = errors.New("basis: frame point missing")
	// ErrFrameExists means the entity already owns a frame.
	ErrFrameExists = errors.New("basis: entity already has a frame")
	// ErrDegenerate means the sampled axes do not span 3-space.
	ErrDegenerate = errors.New("basis: degenerate frame")
)

// minDeterminant is the smallest |det| accepted for a sampled basis.
const minDeterminant = 1e-12

// Frame holds the four point nodes of an entity's basis frame.
type Frame struct {
	Origin scene.NodeID
	X      scene.NodeID
	Y      scene.NodeID
	Z      scene.NodeID
}

// Points returns the frame points in attach order.
func (f Frame) Points() []scene.NodeID {
	return []scene.NodeID{f.Origin, f.X, f.Y, f.Z}
}

// Attach creates the four hidden points under entity, at the entity's local
// origin and one unit along each local axis.
func Attach(h scene.Host, entity scene.NodeID) (Frame, error) {
	if _, err := Locate(h, entity); err == nil {
		return Frame{}, fmt.Errorf("attach frame: %w", ErrFrameExists)
	}

	offsets := [4]xform.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	var ids [4]scene.NodeID
	for i, name := range PointNames {
		id, err := h.CreateLocator(name, entity)
		if err != nil {
			return Frame{}, fmt.Errorf("attach frame: create %s: %w", name, err)
		}
		if err := h.SetTranslate(id, offsets[i]); err != nil {
			return Frame{}, fmt.Errorf("attach frame: place %s: %w", name, err)
		}
		ids[i] = id
	}
	if err := h.Hide(ids[:]...); err != nil {
		return Frame{}, fmt.Errorf("attach frame: hide: %w", err)
	}
	return Frame{Origin: ids[0], X: ids[1], Y: ids[2], Z: ids[3]}, nil
}

// Locate finds the frame points among the entity's direct children.
func Locate(h scene.Host, entity scene.NodeID) (Frame, error) {
	children, err := h.Children(entity)
	if err != nil {
		return Frame{}, err
	}
	found := make(map[string]scene.NodeID, 4)
	for _, c := range children {
		kind, err := h.Kind(c)
		if err != nil || kind != scene.KindLocator {
			continue
		}
		name, err := h.Name(c)
		if err != nil {
			continue
		}
		found[name] = c
	}
	for _, name := range PointNames {
		if _, ok := found[name]; !ok {
			return Frame{}, fmt.Errorf("%s: %w", name, ErrFrameMissing)
		}
	}
	return Frame{
		Origin: found[OriginName],
		X:      found[XName],
		Y:      found[YName],
		Z:      found[ZName],
	}, nil
}

// Sample reconstructs the entity's world transform from its frame points.
// The translation column is the origin point's world position and basis
// column i is axis point i minus the origin. The bottom row is (0,0,0,1)
// by construction.
//
// Points edited by hand in a way that keeps the axes independent are not
// detected; the result is then silently wrong.
func Sample(h scene.Host, entity scene.NodeID) (xform.Matrix, error) {
	f, err := Locate(h, entity)
	if err != nil {
		return xform.Matrix{}, fmt.Errorf("sample frame: %w", err)
	}

	var pos [4]xform.Vec3
	for i, id := range f.Points() {
		p, err := h.WorldPosition(id)
		if err != nil {
			return xform.Matrix{}, fmt.Errorf("sample frame: %w", err)
		}
		pos[i] = p
	}

	origin := pos[0]
	m := xform.FromBasis(origin, pos[1].Sub(origin), pos[2].Sub(origin), pos[3].Sub(origin))
	if math.Abs(m.Determinant3()) < minDeterminant {
		return xform.Matrix{}, fmt.Errorf("sample frame: %w", ErrDegenerate)
	}
	return m, nil
}

// Transfer moves the frame points from one entity onto another. Their world
// positions are kept, so the frame keeps describing the old entity's pose.
// A frame already present on the target (a candidate duplicated from an
// instance carries one) is deleted first.
func Transfer(h scene.Host, from, to scene.NodeID) (Frame, error) {
	f, err := Locate(h, from)
	if err != nil {
		return Frame{}, fmt.Errorf("transfer frame: %w", err)
	}
	if stale, err := Locate(h, to); err == nil {
		for _, id := range stale.Points() {
			if err := h.Delete(id); err != nil {
				return Frame{}, fmt.Errorf("transfer frame: drop stale frame: %w", err)
			}
		}
	}
	for _, id := range f.Points() {
		if _, err := h.Reparent(id, to); err != nil {
			return Frame{}, fmt.Errorf("transfer frame: %w", err)
		}
	}
	return f, nil
}
