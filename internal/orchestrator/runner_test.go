package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/agents"
	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/intent"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// failingClassifier fails the test if the orchestrator consults it.
type failingClassifier struct{ t *testing.T }

func (c failingClassifier) Classify(context.Context, string, string) (intent.Result, error) {
	c.t.Fatal("classifier must not be consulted")
	return intent.Result{}, nil
}

func newTestRunner(t *testing.T, classifier intent.Classifier) (*Runner, *session.Store) {
	t.Helper()
	store, err := session.NewStore(session.NewMemoryBackend(), zap.NewNop())
	require.NoError(t, err)

	reg := capability.NewAdapterRegistry(zap.NewNop())
	agents.RegisterDefaults(reg, agents.Deps{})

	runner, err := NewRunner(store, capability.DefaultCatalog(), reg,
		intent.NewResolver(classifier, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	return runner, store
}

func TestProcessRequestAppendsOneTurnPerCall(t *testing.T) {
	runner, store := newTestRunner(t, nil)
	ctx := context.Background()

	_, err := runner.ProcessRequest(ctx, "s1", "I want to build a task app", Options{})
	require.NoError(t, err)
	_, err = runner.ProcessRequest(ctx, "s1", "the users need secure data storage on the web at scale", Options{})
	require.NoError(t, err)

	state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, state.Transcript, 4)
	assert.Equal(t, session.RoleUser, state.Transcript[0].Role)
	assert.Equal(t, session.RoleAssistant, state.Transcript[1].Role)
	assert.Equal(t, session.RoleUser, state.Transcript[2].Role)
	assert.Equal(t, session.RoleAssistant, state.Transcript[3].Role)
}

func TestProcessRequestSurvivesFreshInstances(t *testing.T) {
	backend := session.NewMemoryBackend()
	ctx := context.Background()

	for turn := 0; turn < 2; turn++ {
		store, err := session.NewStore(backend, zap.NewNop())
		require.NoError(t, err)
		reg := capability.NewAdapterRegistry(zap.NewNop())
		agents.RegisterDefaults(reg, agents.Deps{})
		runner, err := NewRunner(store, capability.DefaultCatalog(), reg,
			intent.NewResolver(nil, zap.NewNop()), zap.NewNop())
		require.NoError(t, err)

		_, err = runner.ProcessRequest(ctx, "s1", "I want to build a task app", Options{})
		require.NoError(t, err)
	}

	persisted, err := backend.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, persisted.Transcript, 4)
}

func TestProcessRequestRunsFullTurn(t *testing.T) {
	runner, _ := newTestRunner(t, nil)

	resp, err := runner.ProcessRequest(context.Background(), "s1",
		"I want to build a task app", Options{})
	require.NoError(t, err)

	assert.Equal(t, intent.RequirementsGathering, resp.Intent.Primary)
	assert.Equal(t, []string{capability.RequirementsCollector}, resp.Plan)
	require.Len(t, resp.TaskResults, 1)
	assert.Equal(t, StatusSuccess, resp.TaskResults[0].Status)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, 1, resp.State.InvocationCounts[capability.RequirementsCollector])
	assert.NotEmpty(t, resp.AvailableCapabilities)
}

func TestFirstTurnAdvancesToRequirementsComplete(t *testing.T) {
	runner, store := newTestRunner(t, nil)
	ctx := context.Background()

	resp, err := runner.ProcessRequest(ctx, "s1", "I want to build a task app", Options{})
	require.NoError(t, err)

	// Even with clarifying questions left in the reply, a successful
	// collector run advances the phase; open gaps never hold it back.
	assert.Equal(t, session.PhaseRequirementsComplete, resp.State.Phase)
	assert.NotEmpty(t, resp.State.Requirements.Gaps)

	persisted, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.PhaseRequirementsComplete, persisted.Phase)
}

func TestAvailableCapabilitiesListsFullCatalog(t *testing.T) {
	runner, _ := newTestRunner(t, nil)

	resp, err := runner.ProcessRequest(context.Background(), "s1",
		"I want to build a task app", Options{})
	require.NoError(t, err)

	// Every catalog entry is advertised regardless of the current phase;
	// each carries its own compatibility list for the caller to gate on.
	catalog := capability.DefaultCatalog()
	require.Len(t, resp.AvailableCapabilities, catalog.Len())
	for _, info := range resp.AvailableCapabilities {
		desc, ok := catalog.ByID(info.ID)
		require.True(t, ok)
		assert.Equal(t, desc.Phases, info.PhaseCompatibility)
		assert.NotEmpty(t, info.Name)
	}
}

func TestProcessRequestManualModeBypassesClassifier(t *testing.T) {
	runner, store := newTestRunner(t, failingClassifier{t: t})
	ctx := context.Background()

	resp, err := runner.ProcessRequest(ctx, "s1", "just collect requirements", Options{
		Mode:                 ModeManual,
		SelectedCapabilityID: capability.RequirementsCollector,
	})
	require.NoError(t, err)

	assert.Equal(t, intent.Manual, resp.Intent.Primary)
	assert.Equal(t, []string{capability.RequirementsCollector}, resp.Plan)

	state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ModeManual, state.SelectionMode)
	assert.Equal(t, capability.RequirementsCollector, state.SelectedCapability)
}

func TestProcessRequestManualModeUnknownCapability(t *testing.T) {
	runner, store := newTestRunner(t, nil)

	_, err := runner.ProcessRequest(context.Background(), "s1", "run it", Options{
		Mode:                 ModeManual,
		SelectedCapabilityID: "no_such_capability",
	})
	assert.ErrorIs(t, err, ErrUnknownCapability)

	// The aborted turn leaves no transcript behind.
	state, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, state.Transcript)
}

func TestProcessRequestUnknownIntentRunsPipeline(t *testing.T) {
	runner, _ := newTestRunner(t, nil)

	resp, err := runner.ProcessRequest(context.Background(), "s1", "xyzzy plugh", Options{})
	require.NoError(t, err)

	assert.Equal(t, intent.Unknown, resp.Intent.Primary)
	// Unknown intent falls back to the full pipeline; at initialization only
	// phase-compatible capabilities survive into the plan.
	assert.NotEmpty(t, resp.Plan)
}

func TestProcessRequestSkipsUnavailableCapability(t *testing.T) {
	store, err := session.NewStore(session.NewMemoryBackend(), zap.NewNop())
	require.NoError(t, err)

	// Empty registry: every planned capability is unavailable.
	reg := capability.NewAdapterRegistry(zap.NewNop())
	runner, err := NewRunner(store, capability.DefaultCatalog(), reg,
		intent.NewResolver(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	resp, err := runner.ProcessRequest(context.Background(), "s1",
		"I want to build a task app", Options{})
	require.NoError(t, err)

	require.Len(t, resp.TaskResults, 1)
	assert.Equal(t, StatusSkipped, resp.TaskResults[0].Status)
	assert.Equal(t, fallbackMessage, resp.Message)
	// Skipped tasks merge nothing and do not count as invocations.
	assert.Zero(t, resp.State.InvocationCounts[capability.RequirementsCollector])
}

type explodingAdapter struct{ id string }

func (a explodingAdapter) ID() string { return a.id }
func (a explodingAdapter) Invoke(context.Context, capability.Invocation) (*capability.Result, error) {
	panic("adapter exploded")
}

type erroringAdapter struct{ id string }

func (a erroringAdapter) ID() string { return a.id }
func (a erroringAdapter) Invoke(context.Context, capability.Invocation) (*capability.Result, error) {
	return nil, errors.New("deliberate failure")
}

func TestProcessRequestContainsAdapterFailures(t *testing.T) {
	store, err := session.NewStore(session.NewMemoryBackend(), zap.NewNop())
	require.NoError(t, err)

	reg := capability.NewAdapterRegistry(zap.NewNop())
	agents.RegisterDefaults(reg, agents.Deps{})
	reg.Register(capability.RequirementsCollector, func() (capability.Adapter, error) {
		return explodingAdapter{id: capability.RequirementsCollector}, nil
	})
	reg.Register(capability.ProjectArchitect, func() (capability.Adapter, error) {
		return erroringAdapter{id: capability.ProjectArchitect}, nil
	})

	runner, err := NewRunner(store, capability.DefaultCatalog(), reg,
		intent.NewResolver(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	// Seed the session past requirements so the full pipeline schedules the
	// failing architect alongside the healthy mockup agent and exporter.
	_, err = store.Apply(context.Background(), "s1", session.Delta{
		Phase: func() *string { p := session.PhaseRequirementsComplete; return &p }(),
		Requirements: &session.Requirements{
			Functional: []string{"track tasks"},
		},
	})
	require.NoError(t, err)

	resp, err := runner.ProcessRequest(context.Background(), "s1", "xyzzy plugh", Options{})
	require.NoError(t, err)

	statuses := make(map[string]TaskStatus)
	for _, tr := range resp.TaskResults {
		statuses[tr.CapabilityID] = tr.Status
	}
	assert.Equal(t, StatusError, statuses[capability.RequirementsCollector])
	assert.Equal(t, StatusError, statuses[capability.ProjectArchitect])
	// Later tasks still ran despite upstream failures.
	assert.Equal(t, StatusSuccess, statuses[capability.MockupAgent])
	assert.Equal(t, StatusSuccess, statuses[capability.Exporter])
}

func TestPhaseTransitionLastWins(t *testing.T) {
	runner, store := newTestRunner(t, nil)
	ctx := context.Background()

	// Seed past requirements, then run the full pipeline via unknown intent.
	_, err := store.Apply(ctx, "s1", session.Delta{
		Phase: func() *string { p := session.PhaseRequirementsComplete; return &p }(),
		Requirements: &session.Requirements{
			Functional: []string{"a web app storing task data for 100 concurrent team users"},
		},
	})
	require.NoError(t, err)

	resp, err := runner.ProcessRequest(ctx, "s1", "xyzzy plugh", Options{})
	require.NoError(t, err)

	// The exporter runs last in the plan, so its transition is the one that
	// sticks.
	require.NotEmpty(t, resp.Plan)
	assert.Equal(t, capability.Exporter, resp.Plan[len(resp.Plan)-1])
	assert.Equal(t, session.PhaseExportComplete, resp.State.Phase)
}

func TestNewRunnerRequiresCollaborators(t *testing.T) {
	_, err := NewRunner(nil, nil, nil, nil, nil)
	require.Error(t, err)
}
