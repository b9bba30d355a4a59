package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/engine"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/store"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/testutil"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// Harness is the scenario execution state.
type Harness struct {
	graph  *scene.Graph
	engine *engine.Engine
	store  *store.Store
	clock  *testutil.DeterministicClock
	tokens *testutil.TokenSequence
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh scene and a fresh in-memory journal.
// An error is returned when the scenario cannot run at all (unreadable
// scene, failing setup step); expectation and assertion failures are
// reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	g, err := newGraph(scenario.Scene)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		graph:  g,
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		tokens: testutil.NewTokenSequence(scenario.TokenPrefix),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.engine = engine.New(g,
		engine.WithJournal(st),
		engine.WithClock(h.clock),
		engine.WithTokens(h.tokens),
		engine.WithLogger(h.logger),
		engine.WithAtomicUpdate(scenario.AtomicUpdate),
	)

	ctx := context.Background()
	for i, step := range scenario.Setup {
		if err := h.edit(step); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Do, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		h.runStep(ctx, i, step, result)
	}

	actx := &AssertionContext{Graph: g, Engine: h.engine, Store: st, Result: result, Ctx: ctx}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// newGraph loads the scene document, or starts empty. Node IDs are
// sequential either way.
func newGraph(path string) (*scene.Graph, error) {
	n := 0
	ids := scene.WithIDGenerator(func() scene.NodeID {
		n++
		return scene.NodeID(fmt.Sprintf("n%d", n))
	})
	if path == "" {
		return scene.NewGraph(ids), nil
	}
	g, err := scene.Load(path, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	return g, nil
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) {
	if !isOperation(step.Do) {
		if err := h.edit(step); err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Do, err))
		}
		return
	}

	if step.Select != nil {
		if err := h.selectPaths(step.Select); err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Do, err))
			return
		}
	}

	event, err := h.operate(ctx, i, step.Do)
	result.Trace = append(result.Trace, event)

	switch {
	case step.Expect == nil && err != nil:
		result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Do, err))
	case step.Expect != nil && err == nil:
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %s error, got success", i, step.Do, step.Expect.Error))
	case step.Expect != nil && event.Error != step.Expect.Error:
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %s error, got %v", i, step.Do, step.Expect.Error, err))
	}
}

// operate runs one engine operation and describes it as a trace event.
func (h *Harness) operate(ctx context.Context, i int, op string) (TraceEvent, error) {
	event := TraceEvent{Step: i, Op: op}

	if op == DoInstantiate {
		inst, err := h.engine.InstantiateSelected(ctx)
		if err != nil {
			event.Error = string(engine.CodeOf(err))
			return event, err
		}
		event.Path = inst.Path
		return event, nil
	}

	var (
		res *engine.Result
		err error
	)
	if op == DoPublish {
		res, err = h.engine.PublishFirst(ctx)
	} else {
		res, err = h.engine.PublishUpdate(ctx)
	}
	if err != nil {
		event.Error = string(engine.CodeOf(err))
		if res != nil {
			for _, inst := range res.Instances {
				event.Replaced = append(event.Replaced, inst.Path)
			}
		}
		return event, err
	}
	pub := res.Publish
	event.Publish = &pub
	event.Propagations = res.Propagations
	return event, nil
}

// edit applies one scene edit step.
func (h *Harness) edit(step Step) error {
	g := h.graph
	if step.Do == DoSelect {
		return h.selectPaths(step.Select)
	}
	if step.Do == DoCreate {
		parentPath, name := scene.SplitPath(step.Path)
		parent, err := h.lookupParent(parentPath)
		if err != nil {
			return err
		}
		id, err := g.CreateTransform(name, parent)
		if err != nil {
			return err
		}
		if err := g.SetWorldMatrix(id, stepMatrix(step.Translate, step.Rotate, step.Scale)); err != nil {
			return err
		}
		if len(step.Points) > 0 {
			return g.SetPoints(id, toPoints(step.Points))
		}
		return nil
	}

	id, ok := g.Lookup(step.Path)
	if !ok {
		return fmt.Errorf("no node at %q", step.Path)
	}
	switch step.Do {
	case DoMove:
		return g.SetWorldMatrix(id, stepMatrix(step.Translate, step.Rotate, step.Scale))
	case DoFreeze:
		return g.Freeze(id)
	case DoRename:
		_, err := g.Rename(id, step.To)
		return err
	case DoReparent:
		parent, err := h.lookupParent(step.To)
		if err != nil {
			return err
		}
		_, err = g.Reparent(id, parent)
		return err
	case DoDelete:
		return g.Delete(id)
	case DoCollapseFrame:
		// Moves the X axis point onto the origin point.
		f, err := basis.Locate(g, id)
		if err != nil {
			return err
		}
		return g.SetTranslate(f.X, xform.Vec3{})
	}
	return fmt.Errorf("unknown step %q", step.Do)
}

func (h *Harness) lookupParent(path string) (scene.NodeID, error) {
	if path == "" || path == scene.PathSeparator {
		return scene.Root, nil
	}
	id, ok := h.graph.Lookup(path)
	if !ok {
		return "", fmt.Errorf("no parent at %q", path)
	}
	return id, nil
}

func (h *Harness) selectPaths(paths []string) error {
	ids := make([]scene.NodeID, 0, len(paths))
	for _, p := range paths {
		id, ok := h.graph.Lookup(p)
		if !ok {
			return fmt.Errorf("select: no node at %q", p)
		}
		ids = append(ids, id)
	}
	return h.graph.Select(ids...)
}

// stepMatrix composes a TRS matrix; rotation is in degrees. Missing parts
// default to the identity.
func stepMatrix(t, r, s []float64) xform.Matrix {
	tv := vec(t, 0)
	rv := vec(r, 0)
	for i := range rv {
		rv[i] *= math.Pi / 180
	}
	return xform.Compose(tv, rv, vec(s, 1))
}

func vec(v []float64, def float64) xform.Vec3 {
	if len(v) != 3 {
		return xform.Vec3{def, def, def}
	}
	return xform.Vec3{v[0], v[1], v[2]}
}

func toPoints(pts [][]float64) []xform.Vec3 {
	out := make([]xform.Vec3, len(pts))
	for i, p := range pts {
		out[i] = vec(p, 0)
	}
	return out
}
