package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/identity"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/store"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/testutil"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

const tol = 1e-9

// faultyHost fails the n-th Duplicate call (1-based) when failOn > 0.
type faultyHost struct {
	*scene.Graph
	failOn int
	calls  int
}

var errInjected = errors.New("injected duplicate failure")

func (h *faultyHost) Duplicate(id scene.NodeID) (scene.NodeID, error) {
	h.calls++
	if h.failOn > 0 && h.calls == h.failOn {
		return "", errInjected
	}
	return h.Graph.Duplicate(id)
}

type failingJournal struct{}

func (failingJournal) Record(context.Context, ir.Publish, []ir.Propagation) error {
	return errors.New("disk full")
}

var pillarPose = xform.Translate(xform.Vec3{2, 0, 0})

// published returns an engine over a graph holding a published Pillar and
// its first instance "|Pillar1".
func published(t *testing.T, opts ...Option) (*Engine, *scene.Graph, *Result) {
	t.Helper()
	g := testutil.NewGraph(t)
	e := New(g, opts...)
	cand := testutil.Entity(t, g, "Pillar", scene.Root, pillarPose, testutil.Box)
	require.NoError(t, g.Select(cand))
	res, err := e.PublishFirst(context.Background())
	require.NoError(t, err)
	return e, g, res
}

func TestPublishFirst(t *testing.T) {
	e, g, res := published(t)

	assert.Equal(t, ir.KindFirst, res.Kind)
	assert.Equal(t, "Pillar", res.Identifier)
	assert.Equal(t, "|Originals|Pillar", res.CanonicalPath)
	assert.True(t, canonical.IsLocked(g, res.Canonical))

	id, err := e.Tags().Of(g, res.Canonical)
	require.NoError(t, err)
	assert.Equal(t, "Pillar", id)

	pose, err := basis.Sample(g, res.Canonical)
	require.NoError(t, err)
	assert.True(t, pose.ApproxEqual(pillarPose, tol))

	require.Len(t, res.Instances, 1)
	inst := res.Instances[0]
	assert.Equal(t, "|Pillar1", inst.Path)
	assert.Empty(t, inst.StalePath)
	assert.True(t, inst.Pose.ApproxEqual(pillarPose, tol))
	assert.False(t, canonical.IsLocked(g, inst.ID))

	assert.Equal(t, 1, g.UndoDepth(), "one undo step per publish")
	assert.Equal(t, int64(1), res.Publish.Seq)
	require.Len(t, res.Propagations, 1)
	assert.Equal(t, res.Publish.ID, res.Propagations[0].PublishID)
}

func TestPublishFirst_UndoRestoresScene(t *testing.T) {
	g := testutil.NewGraph(t)
	e := New(g)
	cand := testutil.Entity(t, g, "Pillar", scene.Root, pillarPose, testutil.Box)
	require.NoError(t, g.Select(cand))
	before := g.Document()

	_, err := e.PublishFirst(context.Background())
	require.NoError(t, err)
	require.NoError(t, g.Undo())
	assert.Equal(t, before, g.Document())
}

func TestPublishFirst_SelectionErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, g *scene.Graph)
	}{
		{"empty", func(t *testing.T, g *scene.Graph) {}},
		{"two nodes", func(t *testing.T, g *scene.Graph) {
			a := testutil.Entity(t, g, "A", scene.Root, xform.Identity(), nil)
			b := testutil.Entity(t, g, "B", scene.Root, xform.Identity(), nil)
			require.NoError(t, g.Select(a, b))
		}},
		{"locator", func(t *testing.T, g *scene.Graph) {
			l, err := g.CreateLocator("L", scene.Root)
			require.NoError(t, err)
			require.NoError(t, g.Select(l))
		}},
		{"already tagged", func(t *testing.T, g *scene.Graph) {
			a := testutil.Entity(t, g, "A", scene.Root, xform.Identity(), nil)
			require.NoError(t, identity.New("").Tag(g, a, "A"))
			require.NoError(t, g.Select(a))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testutil.NewGraph(t)
			tt.setup(t, g)
			before := g.Document()

			res, err := New(g).PublishFirst(context.Background())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, IsSelectionError(err), "got %v", err)
			assert.Equal(t, before, g.Document())
			assert.Equal(t, 0, g.UndoDepth())
		})
	}
}

func TestPublishFirst_IdentifierAlreadyCanonical(t *testing.T) {
	e, g, _ := published(t)
	dup := testutil.Entity(t, g, "Pillar", scene.Root, xform.Identity(), nil)
	require.NoError(t, g.Select(dup))
	before := g.Document()

	_, err := e.PublishFirst(context.Background())
	require.Error(t, err)
	assert.True(t, IsIdentityError(err), "got %v", err)
	assert.Equal(t, before, g.Document())
}

func TestPublishFirst_FailureRollsBack(t *testing.T) {
	h := &faultyHost{Graph: testutil.NewGraph(t), failOn: 1}
	cand := testutil.Entity(t, h.Graph, "Pillar", scene.Root, pillarPose, testutil.Box)
	require.NoError(t, h.Select(cand))
	before := h.Document()

	res, err := New(h).PublishFirst(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsHostError(err), "got %v", err)
	assert.ErrorIs(t, err, errInjected)

	assert.Equal(t, before, h.Document())
	assert.Equal(t, 0, h.UndoDepth())
}

func TestPublishFirst_CanceledContext(t *testing.T) {
	g := testutil.NewGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(g).PublishFirst(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstantiateSelected(t *testing.T) {
	e, g, res := published(t)

	_, err := e.InstantiateSelected(context.Background())
	assert.True(t, IsSelectionError(err), "nothing selected")

	require.NoError(t, g.Select(res.Instances[0].ID))
	_, err = e.InstantiateSelected(context.Background())
	assert.True(t, IsSelectionError(err), "instances are not canonical")

	require.NoError(t, g.Select(res.Canonical))
	inst, err := e.InstantiateSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "|Pillar2", inst.Path)
	assert.True(t, inst.Pose.ApproxEqual(pillarPose, tol))

	second, err := e.InstantiateSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "|Pillar3", second.Path)
	assert.Len(t, e.Factory().List("Pillar"), 3)
}

func TestPublishUpdate_PreservesInstancePlacement(t *testing.T) {
	e, g, first := published(t)
	oldCanon := first.Canonical
	inst := first.Instances[0].ID

	// Move the instance under a rotated group, pose it, freeze it and
	// rename it. Only its frame remembers the pose afterwards.
	set := testutil.Entity(t, g, "Set", scene.Root,
		xform.Translate(xform.Vec3{10, 0, 0}).Mul(xform.RotateY(0.5)), nil)
	_, err := g.Reparent(inst, set)
	require.NoError(t, err)
	w := xform.Translate(xform.Vec3{4, 1, -2}).Mul(xform.RotateZ(0.3)).Mul(xform.Scale(xform.Vec3{1, 2, 1}))
	require.NoError(t, g.SetWorldMatrix(inst, w))
	require.NoError(t, g.Freeze(inst))
	_, err = g.Rename(inst, "Hero")
	require.NoError(t, err)

	sampled, err := basis.Sample(g, inst)
	require.NoError(t, err)
	require.True(t, sampled.ApproxEqual(w, tol))

	candPts := []xform.Vec3{{0, 0, 0}, {0, 4, 0}, {1, 4, 1}}
	cand := testutil.Entity(t, g, "PillarV2", scene.Root, xform.Translate(xform.Vec3{-3, 0, 0}), candPts)
	require.NoError(t, g.Select(cand, inst))

	res, err := e.PublishUpdate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ir.KindUpdate, res.Kind)
	assert.Equal(t, "Pillar", res.Identifier)
	assert.Equal(t, "|Originals|Pillar", res.CanonicalPath)
	assert.NotEqual(t, oldCanon, res.Canonical)
	assert.False(t, g.Exists(oldCanon))
	assert.True(t, canonical.IsLocked(g, res.Canonical))

	found, err := e.Store().Find("Pillar")
	require.NoError(t, err)
	assert.Equal(t, res.Canonical, found)
	canonPose, err := basis.Sample(g, res.Canonical)
	require.NoError(t, err)
	assert.True(t, canonPose.ApproxEqual(pillarPose, tol), "new version sits where the old one did")

	require.Len(t, res.Instances, 1)
	fresh := res.Instances[0]
	assert.Equal(t, "|Set|Hero", fresh.StalePath)
	assert.Equal(t, "|Set|Hero", fresh.Path)
	assert.False(t, g.Exists(inst))
	assert.True(t, fresh.Pose.ApproxEqual(w, tol))

	got, err := g.WorldMatrix(fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.ApproxEqual(w, tol))
	pts, err := g.WorldPoints(fresh.ID)
	require.NoError(t, err)
	testutil.RequirePointsNear(t, testutil.TransformPoints(w, candPts), pts, 1e-9)

	// The candidate itself is left untouched.
	assert.Equal(t, "|PillarV2", testutil.Path(t, g, cand))
	_, err = e.Tags().Of(g, cand)
	assert.ErrorIs(t, err, identity.ErrUntagged)
}

func TestPublishUpdate_ReplacesEveryInstance(t *testing.T) {
	e, g, first := published(t)
	require.NoError(t, g.Select(first.Canonical))
	for i := 0; i < 2; i++ {
		_, err := e.InstantiateSelected(context.Background())
		require.NoError(t, err)
	}

	stale := e.Factory().List("Pillar")
	require.Len(t, stale, 3)
	poses := make(map[string]xform.Matrix)
	for i, id := range stale {
		m := xform.Translate(xform.Vec3{float64(i) * 5, 0, 1}).Mul(xform.RotateX(float64(i) * 0.2))
		require.NoError(t, g.SetWorldMatrix(id, m))
		poses[testutil.Path(t, g, id)] = m
	}

	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), testutil.Box)
	require.NoError(t, g.Select(cand, first.Canonical))
	res, err := e.PublishUpdate(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Instances, 3)
	for _, inst := range res.Instances {
		want, ok := poses[inst.Path]
		require.True(t, ok, "unexpected path %s", inst.Path)
		assert.Equal(t, inst.StalePath, inst.Path)
		got, err := g.WorldMatrix(inst.ID)
		require.NoError(t, err)
		assert.True(t, got.ApproxEqual(want, tol), inst.Path)
	}
	for _, id := range stale {
		assert.False(t, g.Exists(id))
	}
	assert.Len(t, e.Factory().List("Pillar"), 3)
	assert.Len(t, e.Store().List(), 1)
}

func TestPublishUpdate_NestedInstancePreserved(t *testing.T) {
	e, g, first := published(t)
	require.NoError(t, g.Select(first.Canonical))
	inner, err := e.InstantiateSelected(context.Background())
	require.NoError(t, err)
	_, err = g.Reparent(inner.ID, first.Instances[0].ID)
	require.NoError(t, err)
	_, err = g.Rename(inner.ID, "Hero")
	require.NoError(t, err)
	heroWorld := xform.Translate(xform.Vec3{7, 7, 7}).Mul(xform.RotateZ(0.5))
	require.NoError(t, g.SetWorldMatrix(inner.ID, heroWorld))

	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), nil)
	require.NoError(t, g.Select(cand, first.Instances[0].ID))
	res, err := e.PublishUpdate(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Instances, 2)
	assert.Equal(t, "|Pillar1", res.Instances[0].Path)
	assert.Equal(t, "|Pillar1|Hero", res.Instances[1].Path)
	assert.Equal(t, "|Pillar1|Hero", res.Instances[1].StalePath)
	assert.Len(t, e.Factory().List("Pillar"), 2)

	hero := testutil.MustLookup(t, g, "|Pillar1|Hero")
	assert.NotEqual(t, inner.ID, hero, "nested instance was replaced, not kept")
	got, err := basis.Sample(g, hero)
	require.NoError(t, err)
	assert.True(t, got.ApproxEqual(heroWorld, tol))
}

func TestPublishUpdate_NestedTaggedNodeOfOtherIdentifierKept(t *testing.T) {
	e, g, first := published(t)
	prop := testutil.Entity(t, g, "Lamp", first.Instances[0].ID, xform.Translate(xform.Vec3{0, 4, 0}), nil)
	require.NoError(t, e.Tags().Tag(g, prop, "Lamp"))

	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), nil)
	require.NoError(t, g.Select(cand, first.Instances[0].ID))
	_, err := e.PublishUpdate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, prop, testutil.MustLookup(t, g, "|Pillar1|Lamp"))
	w, err := g.WorldMatrix(prop)
	require.NoError(t, err)
	assert.True(t, w.ApproxEqual(xform.Translate(xform.Vec3{0, 4, 0}), tol))
}

func TestPublishUpdate_IdentityErrors(t *testing.T) {
	e, g, _ := published(t)
	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), nil)

	t.Run("untagged reference", func(t *testing.T) {
		plain := testutil.Entity(t, g, "Plain", scene.Root, xform.Identity(), nil)
		require.NoError(t, g.Select(cand, plain))
		n := g.Len()
		_, err := e.PublishUpdate(context.Background())
		assert.True(t, IsIdentityError(err), "got %v", err)
		assert.Equal(t, n, g.Len())
	})

	t.Run("identifier without canonical", func(t *testing.T) {
		ghost := testutil.Entity(t, g, "Ghost", scene.Root, xform.Identity(), nil)
		require.NoError(t, e.Tags().Tag(g, ghost, "Ghost"))
		require.NoError(t, g.Select(cand, ghost))
		n := g.Len()
		_, err := e.PublishUpdate(context.Background())
		assert.True(t, IsIdentityError(err), "got %v", err)
		assert.ErrorIs(t, err, canonical.ErrNotFound)
		assert.Equal(t, n, g.Len(), "no stray duplicate")
	})
}

func TestPublishUpdate_SelectionErrors(t *testing.T) {
	e, g, first := published(t)

	require.NoError(t, g.Select(first.Instances[0].ID))
	_, err := e.PublishUpdate(context.Background())
	assert.True(t, IsSelectionError(err), "one node")

	require.NoError(t, g.Select(first.Canonical, first.Instances[0].ID))
	_, err = e.PublishUpdate(context.Background())
	assert.True(t, IsSelectionError(err), "canonical as candidate")
}

// brokenSecondInstance publishes Pillar with two instances and collapses
// the frame of the second one so sampling it fails.
func brokenSecondInstance(t *testing.T, opts ...Option) (*Engine, *scene.Graph, scene.NodeID) {
	t.Helper()
	e, g, first := published(t, opts...)
	require.NoError(t, g.Select(first.Canonical))
	second, err := e.InstantiateSelected(context.Background())
	require.NoError(t, err)
	f, err := basis.Locate(g, second.ID)
	require.NoError(t, err)
	require.NoError(t, g.SetTranslate(f.X, xform.Vec3{}))

	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), nil)
	require.NoError(t, g.Select(cand, first.Canonical))
	return e, g, first.Canonical
}

func TestPublishUpdate_FailureLeavesPartialUpdate(t *testing.T) {
	e, g, oldCanon := brokenSecondInstance(t)

	res, err := e.PublishUpdate(context.Background())
	require.Error(t, err)
	assert.True(t, IsConsistencyError(err), "got %v", err)
	assert.ErrorIs(t, err, basis.ErrDegenerate)

	require.NotNil(t, res)
	require.Len(t, res.Instances, 1, "first instance was replaced before the failure")
	assert.Equal(t, "|Pillar1", res.Instances[0].Path)
	assert.False(t, g.Exists(oldCanon))
	assert.True(t, g.Exists(testutil.MustLookup(t, g, "|Pillar2")))
	assert.Empty(t, res.Publish.ID, "failed updates are not journaled")
}

func TestPublishUpdate_AtomicFailureRestoresScene(t *testing.T) {
	e, g, oldCanon := brokenSecondInstance(t, WithAtomicUpdate(true))
	before := g.Document()
	depth := g.UndoDepth()

	res, err := e.PublishUpdate(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsConsistencyError(err), "got %v", err)

	assert.Equal(t, before, g.Document())
	assert.Equal(t, depth, g.UndoDepth())
	assert.True(t, g.Exists(oldCanon))
}

func TestPublishUpdate_IdentitySurvivesRename(t *testing.T) {
	e, g, first := published(t)
	inst := first.Instances[0].ID
	_, err := g.Rename(inst, "Column")
	require.NoError(t, err)

	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), nil)
	require.NoError(t, g.Select(cand, inst))
	res, err := e.PublishUpdate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Pillar", res.Identifier)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, "|Column", res.Instances[0].Path)
}

func TestJournal_RecordsPublishes(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e, g, first := published(t,
		WithJournal(s),
		WithClock(testutil.NewDeterministicClock()),
		WithTokens(NewFixedGenerator("tok-1", "tok-2")),
	)

	cand := testutil.Entity(t, g, "Draft", scene.Root, xform.Identity(), nil)
	require.NoError(t, g.Select(cand, first.Canonical))
	second, err := e.PublishUpdate(ctx)
	require.NoError(t, err)

	pubs, err := s.ReadPublishes(ctx, "Pillar")
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, first.Publish, pubs[0])
	assert.Equal(t, second.Publish, pubs[1])
	assert.Equal(t, "tok-1", pubs[0].Token)
	assert.Equal(t, ir.KindUpdate, pubs[1].Kind)
	assert.Equal(t, int64(3), pubs[1].Seq)

	props, err := s.ReadPropagations(ctx, pubs[1].ID)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "|Pillar1", props[0].StalePath)
	assert.Equal(t, "|Pillar1", props[0].FreshPath)
	assert.Equal(t, int64(4), props[0].Seq)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, e.Clock().Current(), last)
}

func TestJournal_FailureReported(t *testing.T) {
	g := testutil.NewGraph(t)
	e := New(g, WithJournal(failingJournal{}))
	cand := testutil.Entity(t, g, "Pillar", scene.Root, pillarPose, nil)
	require.NoError(t, g.Select(cand))

	res, err := e.PublishFirst(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrCodeJournal, CodeOf(err))
	require.NotNil(t, res, "the scene was updated")
	_, err = e.Store().Find("Pillar")
	assert.NoError(t, err)
}
