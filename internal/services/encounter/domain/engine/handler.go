package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/replay"
)

const tracerName = "github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrDeciderRequired indicates a missing decider.
	ErrDeciderRequired = errors.New("decider is required")
)

// StateLoader loads domain state for deciders.
type StateLoader interface {
	Load(ctx context.Context, cmd command.Command) (any, error)
}

// EventJournal appends events to the journal.
type EventJournal interface {
	Append(ctx context.Context, evt event.Event) (event.Event, error)
}

// Applier folds events into state.
type Applier interface {
	Apply(state any, evt event.Event) (any, error)
}

// Decider returns a decision for a command.
type Decider interface {
	Decide(state any, cmd command.Command, now func() time.Time) command.Decision
}

// Handler validates, gates, decides and commits commands.
type Handler struct {
	Commands    *command.Registry
	Events      *event.Registry
	Journal     EventJournal
	Checkpoints replay.CheckpointStore
	Snapshots   StateSnapshotStore
	Gate        DecisionGate
	Authority   AuthorityGuard
	StateLoader StateLoader
	Decider     Decider
	Applier     Applier
	Tracer      trace.Tracer
	Now         func() time.Time
}

// Result captures execution outcomes.
type Result struct {
	Decision command.Decision
	State    any
}

// Handle validates a command, checks gate policy and returns a decision
// without persisting it.
func (h Handler) Handle(ctx context.Context, cmd command.Command) (command.Decision, error) {
	decision, _, err := h.decide(ctx, cmd)
	return decision, err
}

// Execute handles a command, appends the emitted events and folds them into
// the loaded state.
//
// Execute panics with ErrNotAuthoritative when the authority guard reports
// that this party may not write encounter state.
func (h Handler) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	mustBeAuthoritative(h.Authority)

	ctx, span := h.tracer().Start(ctx, "encounter.command",
		trace.WithAttributes(
			attribute.String("encounter.id", cmd.EncounterID),
			attribute.String("command.type", string(cmd.Type)),
			attribute.String("command.actor_type", string(cmd.ActorType)),
		),
	)
	defer span.End()

	result, err := h.execute(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.Int("decision.events", len(result.Decision.Events)),
		attribute.Int("decision.rejections", len(result.Decision.Rejections)),
		attribute.Int("decision.suppressed", len(result.Decision.Suppressed)),
	)
	if result.Decision.Rejected() {
		span.SetAttributes(attribute.String("decision.rejection_code", result.Decision.Rejections[0].Code))
	}
	return result, nil
}

func (h Handler) execute(ctx context.Context, cmd command.Command) (Result, error) {
	decision, state, err := h.decide(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	if decision.Rejected() || len(decision.Events) == 0 {
		return Result{Decision: decision, State: state}, nil
	}

	if h.Journal != nil {
		stored := make([]event.Event, 0, len(decision.Events))
		for _, evt := range decision.Events {
			appended, err := h.Journal.Append(ctx, evt)
			if err != nil {
				return Result{}, fmt.Errorf("append %s: %w", evt.Type, err)
			}
			stored = append(stored, appended)
		}
		decision.Events = stored
	}

	if h.Applier != nil {
		for _, evt := range decision.Events {
			state, err = h.Applier.Apply(state, evt)
			if err != nil {
				return Result{}, wrapNonRetryable(fmt.Errorf("fold %s: %w", evt.Type, err))
			}
		}
	}

	last := decision.Events[len(decision.Events)-1]
	if last.Seq > 0 {
		encounterID := decision.Events[0].EncounterID
		if h.Checkpoints != nil {
			if err := h.Checkpoints.Save(ctx, replay.Checkpoint{
				EncounterID: encounterID,
				LastSeq:     last.Seq,
				UpdatedAt:   h.now().UTC(),
			}); err != nil {
				return Result{}, wrapNonRetryable(fmt.Errorf("save checkpoint: %w", err))
			}
		}
		if h.Snapshots != nil {
			if err := h.Snapshots.SaveState(ctx, encounterID, last.Seq, state); err != nil {
				return Result{}, wrapNonRetryable(fmt.Errorf("save snapshot: %w", err))
			}
		}
	}
	return Result{Decision: decision, State: state}, nil
}

func (h Handler) decide(ctx context.Context, cmd command.Command) (command.Decision, any, error) {
	if h.Commands == nil {
		return command.Decision{}, nil, ErrCommandRegistryRequired
	}
	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return command.Decision{}, nil, err
	}
	cmd = validated

	if decision := h.Gate.Check(cmd); decision.Rejected() {
		return decision, nil, nil
	}

	if h.Decider == nil {
		return command.Decision{}, nil, ErrDeciderRequired
	}
	var state any
	if h.StateLoader != nil {
		state, err = h.StateLoader.Load(ctx, cmd)
		if err != nil {
			return command.Decision{}, nil, fmt.Errorf("load state: %w", err)
		}
	}
	decision := h.Decider.Decide(state, cmd, h.now)
	if h.Events != nil && len(decision.Events) > 0 {
		vetted := make([]event.Event, 0, len(decision.Events))
		for _, evt := range decision.Events {
			valid, err := h.Events.ValidateForAppend(evt)
			if err != nil {
				return command.Decision{}, nil, err
			}
			vetted = append(vetted, valid)
		}
		decision.Events = vetted
	}
	return decision, state, nil
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handler) tracer() trace.Tracer {
	if h.Tracer != nil {
		return h.Tracer
	}
	return otel.Tracer(tracerName)
}
