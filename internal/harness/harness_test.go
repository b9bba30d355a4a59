package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/update_propagates.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.Trace[2].Publish.ID, second.Trace[2].Publish.ID, "record IDs are reproducible")
}

func pillarScenario(flow []Step, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Setup: []Step{
			{Do: DoCreate, Path: "|Pillar", Translate: []float64{2, 0, 0}},
		},
		Flow:       flow,
		Assertions: assertions,
	}
}

func TestRun_UnexpectedError(t *testing.T) {
	s := pillarScenario(
		[]Step{{Do: DoPublish}}, // nothing selected
		Assertion{Type: AssertJournalCount, Count: 0},
	)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "SELECTION", result.Trace[0].Error)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s := pillarScenario(
		[]Step{{Do: DoPublish, Select: []string{"|Pillar"}, Expect: &Expect{Error: "IDENTITY"}}},
		Assertion{Type: AssertJournalCount, Count: 1},
	)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := pillarScenario(
		[]Step{{Do: DoInstantiate, Expect: &Expect{Error: "IDENTITY"}}},
		Assertion{Type: AssertUndoDepth, Count: 0},
	)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected IDENTITY error")
}

func TestRun_FailedEditIsReported(t *testing.T) {
	s := pillarScenario(
		[]Step{{Do: DoFreeze, Path: "|Missing"}},
		Assertion{Type: AssertExists, Path: "|Pillar"},
	)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "no node at")
	assert.Empty(t, result.Trace, "edits are not traced")
}

func TestRun_SetupFailureAborts(t *testing.T) {
	s := pillarScenario(
		[]Step{{Do: DoPublish, Select: []string{"|Pillar"}}},
		Assertion{Type: AssertExists, Path: "|Pillar"},
	)
	s.Setup = append(s.Setup, Step{Do: DoCreate, Path: "|Nowhere|Child"})

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[1]")
}
