package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toCanonicalMap converts the snapshot for ir.MarshalCanonical. Record IDs
// and tokens are left out; seq values and content already pin them.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"step": event.Step,
			"op":   event.Op,
		}
		if event.Publish != nil {
			m["publish"] = event.Publish.Object()
			props := make([]any, len(event.Propagations))
			for j, p := range event.Propagations {
				props[j] = p.Object()
			}
			m["propagations"] = props
		}
		if event.Path != "" {
			m["path"] = event.Path
		}
		if event.Error != "" {
			m["error"] = event.Error
		}
		if len(event.Replaced) > 0 {
			m["replaced"] = event.Replaced
		}
		trace[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	}
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. Regenerate with -update.
//
// Returns an error if the scenario cannot run. Trace mismatches fail t
// through goldie; expectation and assertion failures are in the Result.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
