package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/intent"
	"github.com/fyrsmithlabs/mentord/internal/plan"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

const instrumentationName = "github.com/fyrsmithlabs/mentord/internal/orchestrator"

// ErrUnknownCapability is returned when manual mode names a capability the
// catalog does not carry.
var ErrUnknownCapability = errors.New("unknown capability")

// fallbackMessage is the reply when no capability produced output.
const fallbackMessage = "I couldn't make progress on that request. " +
	"Could you rephrase it, or pick a capability explicitly?"

// phaseTransitions maps a capability to the phase its completion implies,
// used when the capability's own delta does not set a phase. When several
// tasks in one turn advance the phase, the last one wins.
var phaseTransitions = map[string]string{
	capability.RequirementsCollector: session.PhaseRequirementsComplete,
	capability.ProjectArchitect:      session.PhaseArchitectureComplete,
	capability.MockupAgent:           session.PhaseMockupsComplete,
	capability.ExecutionPlanner:      session.PhasePlanningComplete,
	capability.Exporter:              session.PhaseExportComplete,
}

// Runner executes conversational turns.
type Runner struct {
	store    *session.Store
	catalog  *capability.Catalog
	adapters *capability.AdapterRegistry
	resolver *intent.Resolver
	builder  *plan.Builder
	logger   *zap.Logger

	tracer trace.Tracer
	meter  metric.Meter

	turnCounter metric.Int64Counter
	taskCounter metric.Int64Counter
}

// NewRunner wires a runner from its collaborators. A nil logger defaults to
// a no-op logger; the other collaborators are required.
func NewRunner(store *session.Store, catalog *capability.Catalog, adapters *capability.AdapterRegistry, resolver *intent.Resolver, logger *zap.Logger) (*Runner, error) {
	if store == nil || catalog == nil || adapters == nil || resolver == nil {
		return nil, fmt.Errorf("orchestrator: store, catalog, adapters, and resolver are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		store:    store,
		catalog:  catalog,
		adapters: adapters,
		resolver: resolver,
		builder:  plan.NewBuilder(catalog, logger),
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	r.initMetrics()
	return r, nil
}

func (r *Runner) initMetrics() {
	var err error
	r.turnCounter, err = r.meter.Int64Counter("mentord.orchestrator.turns_total",
		metric.WithDescription("Conversational turns processed"))
	if err != nil {
		r.logger.Warn("failed to create turn counter", zap.Error(err))
	}
	r.taskCounter, err = r.meter.Int64Counter("mentord.orchestrator.tasks_total",
		metric.WithDescription("Planned tasks executed, by status"))
	if err != nil {
		r.logger.Warn("failed to create task counter", zap.Error(err))
	}
}

// ProcessRequest runs one turn for the session. It returns an error only
// when the session cannot be loaded; every later failure is absorbed into
// the response so the conversation can continue.
func (r *Runner) ProcessRequest(ctx context.Context, sessionID, utterance string, opts Options) (*Response, error) {
	ctx, span := r.tracer.Start(ctx, "orchestrator.ProcessRequest",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	state, err := r.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	intentResult, requested, manualErr := r.resolveCapabilities(ctx, state, utterance, opts)
	if manualErr != nil {
		return nil, manualErr
	}

	p := r.builder.Build(requested, state, state.Phase)

	state, taskResults, contents := r.execute(ctx, state, utterance, p)

	message := strings.Join(contents, "\n\n")
	if message == "" {
		message = fallbackMessage
	}

	if persisted, err := r.persistTurn(ctx, state.ID, utterance, message, opts); err != nil {
		// The turn already ran; report it with the pre-persist snapshot.
		r.logger.Error("failed to persist transcript",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	} else {
		state = persisted
	}

	r.countTurn(ctx, intentResult.Primary)

	return &Response{
		Message:               message,
		State:                 state,
		Intent:                intentResult,
		Plan:                  p.CapabilityIDs(),
		TaskResults:           taskResults,
		AvailableCapabilities: r.available(),
	}, nil
}

// resolveCapabilities picks the capabilities for the turn: the manually
// selected one, or whatever intent resolution yields. In manual mode the
// classifier is never consulted.
func (r *Runner) resolveCapabilities(ctx context.Context, state *session.State, utterance string, opts Options) (intent.Result, []string, error) {
	if opts.Mode == ModeManual {
		desc, ok := r.catalog.ByID(opts.SelectedCapabilityID)
		if !ok {
			return intent.Result{}, nil, fmt.Errorf("manual mode: %w: %q", ErrUnknownCapability, opts.SelectedCapabilityID)
		}
		return intent.Result{
			Primary:      intent.Manual,
			Capabilities: []string{desc.ID},
			Confidence:   1.0,
		}, []string{desc.ID}, nil
	}

	res := r.resolver.Resolve(ctx, utterance, state.Phase)
	return res, res.Capabilities, nil
}

// execute runs every planned task in order. Failures and missing adapters
// never stop the plan; each task sees the state as left by its predecessors,
// restricted to its declared context.
func (r *Runner) execute(ctx context.Context, state *session.State, utterance string, p plan.Plan) (*session.State, []TaskResult, []string) {
	taskResults := make([]TaskResult, 0, len(p.Tasks))
	var contents []string

	for _, task := range p.Tasks {
		adapter, ok := r.adapters.Resolve(task.CapabilityID)
		if !ok {
			r.logger.Warn("capability unavailable, skipping task",
				zap.String("session_id", state.ID),
				zap.String("capability", task.CapabilityID),
			)
			taskResults = append(taskResults, TaskResult{CapabilityID: task.CapabilityID, Status: StatusSkipped})
			r.countTask(ctx, task.CapabilityID, StatusSkipped)
			continue
		}

		res, err := r.invoke(ctx, adapter, capability.Invocation{
			SessionID: state.ID,
			Phase:     state.Phase,
			Utterance: utterance,
			State:     state.Restrict(task.ContextArtifacts(), task.NeedsFullState()),
		})
		if err != nil {
			r.logger.Error("capability failed",
				zap.String("session_id", state.ID),
				zap.String("capability", task.CapabilityID),
				zap.Error(err),
			)
			taskResults = append(taskResults, TaskResult{
				CapabilityID: task.CapabilityID,
				Status:       StatusError,
				Error:        err.Error(),
			})
			r.countTask(ctx, task.CapabilityID, StatusError)
			continue
		}

		delta := res.Delta
		if delta.Phase == nil {
			if next, ok := phaseTransitions[task.CapabilityID]; ok {
				delta.Phase = &next
			}
		}
		if delta.InvocationIncrements == nil {
			delta.InvocationIncrements = make(map[string]int, 1)
		}
		delta.InvocationIncrements[task.CapabilityID]++

		merged, err := r.store.Apply(ctx, state.ID, delta)
		if err != nil {
			r.logger.Error("failed to merge capability delta",
				zap.String("session_id", state.ID),
				zap.String("capability", task.CapabilityID),
				zap.Error(err),
			)
			taskResults = append(taskResults, TaskResult{
				CapabilityID: task.CapabilityID,
				Status:       StatusError,
				Error:        "merge failed: " + err.Error(),
			})
			r.countTask(ctx, task.CapabilityID, StatusError)
			continue
		}
		state = merged

		if res.Content != "" {
			contents = append(contents, res.Content)
		}
		taskResults = append(taskResults, TaskResult{
			CapabilityID: task.CapabilityID,
			Status:       StatusSuccess,
			Metadata:     res.Metadata,
		})
		r.countTask(ctx, task.CapabilityID, StatusSuccess)
	}

	return state, taskResults, contents
}

// invoke shields the turn from a panicking adapter.
func (r *Runner) invoke(ctx context.Context, adapter capability.Adapter, inv capability.Invocation) (res *capability.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("capability %s panicked: %v", adapter.ID(), rec)
		}
	}()

	ctx, span := r.tracer.Start(ctx, "orchestrator.invoke",
		trace.WithAttributes(attribute.String("capability.id", adapter.ID())))
	defer span.End()

	res, err = adapter.Invoke(ctx, inv)
	if err == nil && res == nil {
		err = fmt.Errorf("capability %s returned no result", adapter.ID())
	}
	return res, err
}

// persistTurn appends exactly one user and one assistant message, and in
// manual mode records the selection on the session.
func (r *Runner) persistTurn(ctx context.Context, sessionID, utterance, message string, opts Options) (*session.State, error) {
	delta := session.Delta{
		Transcript: []session.Message{
			{Role: session.RoleUser, Content: utterance},
			{Role: session.RoleAssistant, Content: message},
		},
	}
	if opts.Mode == ModeManual {
		mode := ModeManual
		selected := opts.SelectedCapabilityID
		delta.SelectionMode = &mode
		delta.SelectedCapability = &selected
	}
	return r.store.Apply(ctx, sessionID, delta)
}

// available lists every catalog capability with its phase compatibility,
// so callers can render the full store and gate selection themselves.
func (r *Runner) available() []CapabilityInfo {
	entries := r.catalog.Entries()
	infos := make([]CapabilityInfo, 0, len(entries))
	for _, desc := range entries {
		infos = append(infos, CapabilityInfo{
			ID:                 desc.ID,
			Name:               desc.Name,
			Description:        desc.Description,
			PhaseCompatibility: append([]string(nil), desc.Phases...),
		})
	}
	return infos
}

func (r *Runner) countTurn(ctx context.Context, primary string) {
	if r.turnCounter == nil {
		return
	}
	r.turnCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", primary)))
}

func (r *Runner) countTask(ctx context.Context, capabilityID string, status TaskStatus) {
	if r.taskCounter == nil {
		return
	}
	r.taskCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capabilityID),
		attribute.String("status", string(status)),
	))
}
