package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

type fixture struct {
	g       *scene.Graph
	store   *canonical.Store
	factory *Factory
	canon   scene.NodeID
}

// newFixture publishes a "Pillar" canonical entity with a frame by hand.
func newFixture(t *testing.T) fixture {
	t.Helper()
	g := scene.NewGraph()
	tags := identity.New("")
	store := canonical.New(g, tags, "")

	e, err := g.CreateTransform("Pillar", scene.Root)
	require.NoError(t, err)
	require.NoError(t, g.SetWorldMatrix(e, xform.Translate(xform.Vec3{2, 0, 0})))
	_, err = basis.Attach(g, e)
	require.NoError(t, err)
	_, err = store.Insert(e, "Pillar", "")
	require.NoError(t, err)

	return fixture{g: g, store: store, factory: NewFactory(g, store, tags, nil), canon: e}
}

func TestInstantiate_UnlockedCopyAtWorld(t *testing.T) {
	f := newFixture(t)

	inst, err := f.factory.Instantiate(f.canon)
	require.NoError(t, err)

	p, err := f.g.Path(inst)
	require.NoError(t, err)
	assert.Equal(t, "|Pillar1", p)
	assert.False(t, canonical.IsLocked(f.g, inst))
	assert.True(t, canonical.IsLocked(f.g, f.canon), "canonical stays locked")

	id, err := identity.New("").Of(f.g, inst)
	require.NoError(t, err)
	assert.Equal(t, "Pillar", id)

	// The frame travels with the copy and samples the same pose.
	want, err := basis.Sample(f.g, f.canon)
	require.NoError(t, err)
	got, err := basis.Sample(f.g, inst)
	require.NoError(t, err)
	assert.True(t, got.ApproxEqual(want, 1e-9))

	assert.Equal(t, 1, f.g.UndoDepth())
}

func TestInstantiate_TwiceGivesDistinctNames(t *testing.T) {
	f := newFixture(t)

	a, err := f.factory.Instantiate(f.canon)
	require.NoError(t, err)
	b, err := f.factory.Instantiate(f.canon)
	require.NoError(t, err)

	pa, _ := f.g.Path(a)
	pb, _ := f.g.Path(b)
	assert.Equal(t, "|Pillar1", pa)
	assert.Equal(t, "|Pillar2", pb)
	assert.Equal(t, []scene.NodeID{a, b}, f.factory.List("Pillar"))

	require.NoError(t, f.g.Delete(a))
	assert.True(t, f.g.Exists(b))
	assert.True(t, f.g.Exists(f.canon))
	found, err := f.store.Find("Pillar")
	require.NoError(t, err)
	assert.Equal(t, f.canon, found)
}

func TestInstantiate_FailureUndoes(t *testing.T) {
	f := newFixture(t)
	before := f.g.Len()

	_, err := f.factory.Instantiate("missing")
	require.ErrorIs(t, err, scene.ErrNotFound)
	assert.Equal(t, before, f.g.Len())
	assert.Equal(t, 0, f.g.UndoDepth(), "failed chunk is undone")
}

func TestInstantiateSelected(t *testing.T) {
	f := newFixture(t)

	_, err := f.factory.InstantiateSelected()
	assert.ErrorIs(t, err, ErrSelection, "empty selection")

	inst, err := f.factory.Instantiate(f.canon)
	require.NoError(t, err)
	require.NoError(t, f.g.Select(inst))
	_, err = f.factory.InstantiateSelected()
	assert.ErrorIs(t, err, ErrSelection, "instances are not canonical")

	require.NoError(t, f.g.Select(f.canon))
	second, err := f.factory.InstantiateSelected()
	require.NoError(t, err)
	assert.NotEqual(t, inst, second)
	assert.Len(t, f.factory.List("Pillar"), 2)
}

func TestInstantiateSelected_RefusesUntagged(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, canonical.UnlockTransform(f.g, f.canon))
	require.NoError(t, f.g.DeleteAttr(f.canon, identity.DefaultAttr))
	require.NoError(t, f.g.Select(f.canon))
	before := f.g.Len()

	_, err := f.factory.InstantiateSelected()
	assert.ErrorIs(t, err, identity.ErrUntagged)
	assert.Equal(t, before, f.g.Len(), "nothing duplicated")
}

func TestList_IgnoresCanonicalAndOtherIdentifiers(t *testing.T) {
	f := newFixture(t)
	other, err := f.g.CreateTransform("Wall", scene.Root)
	require.NoError(t, err)
	require.NoError(t, identity.New("").Tag(f.g, other, "Wall"))

	assert.Empty(t, f.factory.List("Pillar"))
	assert.Equal(t, []scene.NodeID{other}, f.factory.List("Wall"))
}
