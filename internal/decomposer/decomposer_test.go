package decomposer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
)

var errOracle = errors.New("oracle unavailable")

func newTestDecomposer() *Decomposer {
	return New(collab.NewDefaultSanitizer(), logging.NewNop(), nil)
}

func TestDecompose_ScenarioOne_UrgentAndDeferred(t *testing.T) {
	d := newTestDecomposer()
	records, err := d.Decompose(context.Background(), Request{Prompt: "Urgent: fix login. Later, write docs."})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, directive.PriorityHigh, records[0].Header.Priority)
	require.True(t, strings.HasPrefix(records[0].Header.Slug, "urgent-fix-login"))

	require.Equal(t, directive.PriorityLow, records[1].Header.Priority)
	require.Equal(t, []string{records[0].Header.Slug}, records[1].Header.Prerequisites)
}

func TestDecompose_ScenarioTwo_StructuredBuildAPI(t *testing.T) {
	d := newTestDecomposer()
	records, err := d.Decompose(context.Background(), Request{
		Prompt: "Build a user API with a Postgres database and tests.",
	})
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.Contains(t, records[0].Prompt, "Analyze")
	require.Equal(t, directive.PriorityHigh, records[0].Header.Priority)
	require.Equal(t, directive.PriorityHigh, records[1].Header.Priority)
	require.Equal(t, directive.PriorityHigh, records[2].Header.Priority)
	require.Equal(t, directive.PriorityMedium, records[3].Header.Priority)

	for i := 1; i < len(records); i++ {
		require.Equal(t, []string{records[i-1].Header.Slug}, records[i].Header.Prerequisites)
	}
}

func TestDecompose_EmptyPromptYieldsOneRecord(t *testing.T) {
	d := newTestDecomposer()
	records, err := d.Decompose(context.Background(), Request{Prompt: ""})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, directive.PriorityMedium, records[0].Header.Priority)
}

func TestDecompose_EveryRecordGetsFreshID(t *testing.T) {
	d := newTestDecomposer()
	records, err := d.Decompose(context.Background(), Request{Prompt: "Build an API. Write tests. Deploy it."})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range records {
		require.False(t, seen[r.Header.ID], "duplicate id %s", r.Header.ID)
		seen[r.Header.ID] = true
	}
}

type fakeOracle struct {
	splits []string
	err    error
}

func (f fakeOracle) ProposeSplit(_ context.Context, _ string) ([]string, error) {
	return f.splits, f.err
}

func TestDecompose_OracleFailureFallsBackToStructural(t *testing.T) {
	d := New(collab.NewDefaultSanitizer(), logging.NewNop(), fakeOracle{err: errOracle})

	// Plain sentence with no structured-mode signal, so the oracle would
	// normally be consulted; its failure must fall back to structural
	// mode rather than propagate.
	records, err := d.Decompose(context.Background(), Request{Prompt: "Write a short poem about autumn."})
	require.NoError(t, err)
	require.NotEmpty(t, records)
}

func TestDecompose_OracleSuccessIsUsed(t *testing.T) {
	d := New(collab.NewDefaultSanitizer(), logging.NewNop(), fakeOracle{splits: []string{"first step", "second step"}})

	records, err := d.Decompose(context.Background(), Request{Prompt: "Write a short poem about autumn."})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "first step", records[0].Prompt)
}
