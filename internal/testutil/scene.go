package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// NewGraph returns an empty graph with node IDs n1, n2, ...
func NewGraph(t testing.TB) *scene.Graph {
	t.Helper()
	n := 0
	return scene.NewGraph(scene.WithIDGenerator(func() scene.NodeID {
		n++
		return scene.NodeID(fmt.Sprintf("n%d", n))
	}))
}

// Box is a unit cube's corners, the default geometry for fixtures.
var Box = []xform.Vec3{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// Entity creates a transform named name under parent, posed at world and
// carrying pts as geometry.
func Entity(t testing.TB, g *scene.Graph, name string, parent scene.NodeID, world xform.Matrix, pts []xform.Vec3) scene.NodeID {
	t.Helper()
	id, err := g.CreateTransform(name, parent)
	require.NoError(t, err)
	require.NoError(t, g.SetWorldMatrix(id, world))
	if len(pts) > 0 {
		require.NoError(t, g.SetPoints(id, pts))
	}
	return id
}

// Path returns the node's path or fails the test.
func Path(t testing.TB, g *scene.Graph, id scene.NodeID) string {
	t.Helper()
	p, err := g.Path(id)
	require.NoError(t, err)
	return p
}

// MustLookup resolves a path or fails the test.
func MustLookup(t testing.TB, g *scene.Graph, path string) scene.NodeID {
	t.Helper()
	id, ok := g.Lookup(path)
	require.True(t, ok, "no node at %s", path)
	return id
}

// TransformPoints maps pts through m.
func TransformPoints(m xform.Matrix, pts []xform.Vec3) []xform.Vec3 {
	out := make([]xform.Vec3, len(pts))
	for i, p := range pts {
		out[i] = m.TransformPoint(p)
	}
	return out
}

// RequirePointsNear fails unless got and want match pairwise within tol.
func RequirePointsNear(t testing.TB, want, got []xform.Vec3, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].ApproxEqual(got[i], tol), "point %d: want %v, got %v", i, want[i], got[i])
	}
}
