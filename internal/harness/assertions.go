package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/basis"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/canonical"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/engine"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/store"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// poseTolerance is the tolerance for world and pose assertions; scenario
// files give matrices to a handful of decimals.
const poseTolerance = 1e-6

// AssertionContext is the state assertions are evaluated against.
type AssertionContext struct {
	Graph  *scene.Graph
	Engine *engine.Engine
	Store  *store.Store
	Result *Result
	Ctx    context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch {
			case event.Error != "":
				fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Step, event.Op, event.Error)
			case event.Publish != nil:
				fmt.Fprintf(&buf, "  [%d] %s %s (%d instances)\n", event.Step, event.Op, event.Publish.Identifier, event.Publish.InstanceCount)
			default:
				fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Step, event.Op, event.Path)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: actx.Result.Trace}
	}
	g := actx.Graph

	switch a.Type {
	case AssertTraceCount:
		if n := actx.Result.Count(a.Op); n != a.Count {
			return fail(fmt.Sprintf("%d successful %s", a.Count, a.Op), fmt.Sprintf("%d", n))
		}
		return nil
	case AssertJournalCount:
		pubs, err := actx.Store.ReadPublishes(actx.Ctx, a.Identifier)
		if err != nil {
			return err
		}
		if len(pubs) != a.Count {
			return fail(fmt.Sprintf("%d journaled publishes", a.Count), fmt.Sprintf("%d", len(pubs)))
		}
		return nil
	case AssertUndoDepth:
		if d := g.UndoDepth(); d != a.Count {
			return fail(fmt.Sprintf("undo depth %d", a.Count), fmt.Sprintf("%d", d))
		}
		return nil
	case AssertInstances:
		var paths []string
		for _, id := range actx.Engine.Factory().List(a.Identifier) {
			p, err := g.Path(id)
			if err != nil {
				return err
			}
			paths = append(paths, p)
		}
		if a.Paths != nil {
			if !slices.Equal(paths, a.Paths) {
				return fail(fmt.Sprintf("instances %v", a.Paths), fmt.Sprintf("%v", paths))
			}
			return nil
		}
		if len(paths) != a.Count {
			return fail(fmt.Sprintf("%d instances", a.Count), fmt.Sprintf("%d %v", len(paths), paths))
		}
		return nil
	}

	id, ok := g.Lookup(a.Path)
	if a.Type == AssertAbsent {
		if ok {
			return fail("no node at "+a.Path, "node exists")
		}
		return nil
	}
	if !ok {
		return fail("node at "+a.Path, "not found")
	}

	switch a.Type {
	case AssertExists:
		return nil
	case AssertLocked, AssertUnlocked:
		want := a.Type == AssertLocked
		if got := canonical.IsLocked(g, id); got != want {
			return fail(fmt.Sprintf("%s locked=%v", a.Path, want), fmt.Sprintf("locked=%v", got))
		}
		return nil
	case AssertIdentifier:
		got, err := actx.Engine.Tags().Of(g, id)
		if err != nil {
			return fail(fmt.Sprintf("identifier %q", a.Identifier), err.Error())
		}
		if got != a.Identifier {
			return fail(fmt.Sprintf("identifier %q", a.Identifier), fmt.Sprintf("%q", got))
		}
		return nil
	case AssertWorld, AssertPose:
		var (
			got xform.Matrix
			err error
		)
		if a.Type == AssertWorld {
			got, err = g.WorldMatrix(id)
		} else {
			got, err = basis.Sample(g, id)
		}
		if err != nil {
			return fail("a readable matrix", err.Error())
		}
		want := stepMatrix(a.Translate, a.Rotate, a.Scale)
		if !got.ApproxEqual(want, poseTolerance) {
			return fail(want.String(), got.String())
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
