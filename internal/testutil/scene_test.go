package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

func TestEntity_PosedWithPoints(t *testing.T) {
	g := NewGraph(t)
	m := xform.Translate(xform.Vec3{1, 2, 3})
	id := Entity(t, g, "Crate", scene.Root, m, Box)

	assert.Equal(t, scene.NodeID("n1"), id)
	assert.Equal(t, "|Crate", Path(t, g, id))
	assert.Equal(t, id, MustLookup(t, g, "|Crate"))

	got, err := g.WorldPoints(id)
	assert.NoError(t, err)
	RequirePointsNear(t, TransformPoints(m, Box), got, 1e-12)
}
