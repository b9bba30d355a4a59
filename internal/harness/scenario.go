package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a layout test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scene is an optional scene document loaded before setup. Relative
	// paths resolve against the scenario file.
	Scene string `yaml:"scene,omitempty"`

	// TokenPrefix prefixes the generated publish tokens ("scenario" when
	// empty).
	TokenPrefix string `yaml:"token_prefix,omitempty"`

	// AtomicUpdate runs updates WithAtomicUpdate.
	AtomicUpdate bool `yaml:"atomic_update,omitempty"`

	// Setup edits the scene before the flow. Every setup step must succeed
	// and none is traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the main sequence of scene edits and operations.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final scene, journal and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scene edit or operation.
type Step struct {
	// Do names the step, one of the Do* constants.
	Do string `yaml:"do"`

	// Path is the node the edit applies to.
	Path string `yaml:"path,omitempty"`

	// To is the new name (rename) or new parent path (reparent, "" for the
	// top level).
	To string `yaml:"to,omitempty"`

	// Select replaces the selection before the step runs.
	Select []string `yaml:"select,omitempty"`

	// Translate, Rotate (degrees, XYZ order) and Scale give the world pose
	// for create and move.
	Translate []float64 `yaml:"translate,omitempty"`
	Rotate    []float64 `yaml:"rotate,omitempty"`
	Scale     []float64 `yaml:"scale,omitempty"`

	// Points is the local geometry for create.
	Points [][]float64 `yaml:"points,omitempty"`

	// Expect describes how an operation should fail. Nil means it must
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected failure of an operation step.
type Expect struct {
	// Error is the engine error code (SELECTION, IDENTITY, ...).
	Error string `yaml:"error"`
}

// Step kinds.
const (
	DoCreate        = "create"
	DoMove          = "move"
	DoFreeze        = "freeze"
	DoRename        = "rename"
	DoReparent      = "reparent"
	DoDelete        = "delete"
	DoSelect        = "select"
	DoCollapseFrame = "collapse_frame"
	DoPublish       = "publish"
	DoUpdate        = "update"
	DoInstantiate   = "instantiate"
)

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is the node checked by exists, absent, locked, unlocked,
	// identifier, world and pose.
	Path string `yaml:"path,omitempty"`

	// Identifier is used by identifier, instances and journal_count.
	Identifier string `yaml:"identifier,omitempty"`

	// Paths is the exact, path-ordered instance list (instances).
	Paths []string `yaml:"paths,omitempty"`

	// Translate, Rotate and Scale give the expected matrix (world, pose).
	Translate []float64 `yaml:"translate,omitempty"`
	Rotate    []float64 `yaml:"rotate,omitempty"`
	Scale     []float64 `yaml:"scale,omitempty"`

	// Op is the operation counted by trace_count.
	Op string `yaml:"op,omitempty"`

	// Count is used by instances (when Paths is nil), trace_count,
	// journal_count and undo_depth.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertExists       = "exists"
	AssertAbsent       = "absent"
	AssertLocked       = "locked"
	AssertUnlocked     = "unlocked"
	AssertIdentifier   = "identifier"
	AssertInstances    = "instances"
	AssertWorld        = "world"
	AssertPose         = "pose"
	AssertTraceCount   = "trace_count"
	AssertJournalCount = "journal_count"
	AssertUndoDepth    = "undo_depth"
)

// LoadScenario reads and parses a scenario YAML file. The scene path is
// resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the scene path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Unknown fields are typos.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) && basePath != "" {
		scenario.Scene = filepath.Join(basePath, scenario.Scene)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", p, s.Name, prev)
		}
		seen[s.Name] = p
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Scene != "" {
		if _, err := os.Stat(s.Scene); os.IsNotExist(err) {
			return fmt.Errorf("scene file not found: %s", s.Scene)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), &step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, s *Step) error {
	for name, v := range map[string][]float64{"translate": s.Translate, "rotate": s.Rotate, "scale": s.Scale} {
		if v != nil && len(v) != 3 {
			return fmt.Errorf("%s: %s needs 3 values, got %d", where, name, len(v))
		}
	}
	for i, p := range s.Points {
		if len(p) != 3 {
			return fmt.Errorf("%s: points[%d] needs 3 values, got %d", where, i, len(p))
		}
	}

	switch s.Do {
	case DoCreate, DoMove, DoFreeze, DoDelete, DoCollapseFrame:
		if s.Path == "" {
			return fmt.Errorf("%s: path is required for %s", where, s.Do)
		}
	case DoRename:
		if s.Path == "" || s.To == "" {
			return fmt.Errorf("%s: path and to are required for rename", where)
		}
	case DoReparent:
		if s.Path == "" {
			return fmt.Errorf("%s: path is required for reparent", where)
		}
	case DoSelect, DoPublish, DoUpdate, DoInstantiate:
	case "":
		return fmt.Errorf("%s: do is required", where)
	default:
		return fmt.Errorf("%s: unknown step %q", where, s.Do)
	}

	if s.Expect != nil {
		if !isOperation(s.Do) {
			return fmt.Errorf("%s: expect is only allowed on publish, update and instantiate", where)
		}
		if s.Expect.Error == "" {
			return fmt.Errorf("%s.expect: error is required", where)
		}
	}
	return nil
}

func isOperation(do string) bool {
	return do == DoPublish || do == DoUpdate || do == DoInstantiate
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertExists, AssertAbsent, AssertLocked, AssertUnlocked:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertIdentifier:
		if a.Path == "" || a.Identifier == "" {
			return fmt.Errorf("assertions[%d]: path and identifier are required for identifier", index)
		}
	case AssertInstances:
		if a.Identifier == "" {
			return fmt.Errorf("assertions[%d]: identifier is required for instances", index)
		}
	case AssertWorld, AssertPose:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
		for name, v := range map[string][]float64{"translate": a.Translate, "rotate": a.Rotate, "scale": a.Scale} {
			if v != nil && len(v) != 3 {
				return fmt.Errorf("assertions[%d]: %s needs 3 values, got %d", index, name, len(v))
			}
		}
	case AssertTraceCount:
		if !isOperation(a.Op) {
			return fmt.Errorf("assertions[%d]: op must be publish, update or instantiate for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertJournalCount, AssertUndoDepth:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
