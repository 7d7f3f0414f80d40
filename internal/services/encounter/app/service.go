package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/platform/id"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encounter"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/event"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Stores    Stores
	Authority engine.AuthorityGuard
	Bus       *notify.Bus
	Logger    zerolog.Logger
	Locale    string
	// DefaultPolicy is applied to encounter.create commands that carry none.
	// Nil uses encounter.DefaultPolicy.
	DefaultPolicy *encounter.Policy
	NewID         id.Generator
	Now           func() time.Time
}

// Service is the authoritative command path. Execute calls are serialized so
// the load-decide-append-fold sequence of one command never interleaves with
// another.
type Service struct {
	mu            sync.Mutex
	handler       engine.Handler
	loader        engine.ReplayStateLoader
	commands      *command.Registry
	events        *event.Registry
	query         EventQuery
	bus           *notify.Bus
	formatter     notify.Formatter
	log           zerolog.Logger
	defaultPolicy encounter.Policy
}

// NewService builds the engine handler over cfg.Stores.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Stores.Journal == nil || cfg.Stores.Events == nil || cfg.Stores.Checkpoints == nil {
		return nil, errors.New("stores are required")
	}
	commands, events, err := encounter.NewRegistries()
	if err != nil {
		return nil, fmt.Errorf("build registries: %w", err)
	}
	decider := encounter.NewDecider()
	if cfg.NewID != nil {
		decider.NewID = cfg.NewID
	}
	folder := decider.Folder
	loader := engine.ReplayStateLoader{
		Events:      cfg.Stores.Events,
		Checkpoints: cfg.Stores.Checkpoints,
		Snapshots:   cfg.Stores.Snapshots,
		Folder:      folder,
	}
	authority := cfg.Authority
	if authority == nil {
		authority = engine.StaticAuthority(true)
	}
	policy := encounter.DefaultPolicy()
	if cfg.DefaultPolicy != nil {
		policy = *cfg.DefaultPolicy
	}
	bus := cfg.Bus
	if bus == nil {
		bus = notify.NewBus(cfg.Logger)
	}
	return &Service{
		handler: engine.Handler{
			Commands:    commands,
			Events:      events,
			Journal:     cfg.Stores.Journal,
			Checkpoints: cfg.Stores.Checkpoints,
			Snapshots:   cfg.Stores.Snapshots,
			Gate:        engine.DecisionGate{Registry: commands},
			Authority:   authority,
			StateLoader: loader,
			Decider:     decider,
			Applier:     folder,
			Now:         cfg.Now,
		},
		loader:        loader,
		commands:      commands,
		events:        events,
		query:         cfg.Stores.Query,
		bus:           bus,
		formatter:     notify.NewFormatter(cfg.Locale),
		log:           cfg.Logger,
		defaultPolicy: policy,
	}, nil
}

// Commands returns the command registry used by the handler.
func (s *Service) Commands() *command.Registry {
	return s.commands
}

// Bus returns the notification bus accepted decisions are published on.
func (s *Service) Bus() *notify.Bus {
	return s.bus
}

// Execute runs cmd through the engine and publishes the resulting
// notifications once the events are committed. Rejections are logged and
// returned in the decision; they are not errors.
func (s *Service) Execute(ctx context.Context, cmd command.Command) (engine.Result, error) {
	if cmd.Type == encounter.CommandTypeCreate {
		withPolicy, err := s.applyDefaultPolicy(cmd)
		if err != nil {
			return engine.Result{}, err
		}
		cmd = withPolicy
	}

	result, err := s.execute(ctx, cmd)
	if err != nil {
		if engine.IsNonRetryable(err) {
			s.log.Error().Err(err).
				Str("command_type", string(cmd.Type)).
				Str("encounter_id", cmd.EncounterID).
				Msg("command committed but not applied")
		}
		return engine.Result{}, err
	}

	for _, rejection := range result.Decision.Rejections {
		s.log.Warn().
			Str("code", rejection.Code).
			Str("command_type", string(cmd.Type)).
			Str("encounter_id", cmd.EncounterID).
			Str("actor_id", cmd.ActorID).
			Msg(rejection.Message)
	}
	for _, suppressed := range result.Decision.Suppressed {
		s.log.Debug().
			Str("code", suppressed.Code).
			Str("command_type", string(cmd.Type)).
			Str("encounter_id", cmd.EncounterID).
			Msg(suppressed.Message)
	}
	if result.Decision.Rejected() || len(result.Decision.Events) == 0 {
		return result, nil
	}

	state, ok := result.State.(encounter.State)
	if !ok {
		return result, nil
	}
	notifications, err := s.formatter.FromEvents(state, result.Decision.Events)
	if err != nil {
		s.log.Error().Err(err).Str("encounter_id", cmd.EncounterID).Msg("build notifications")
		return result, nil
	}
	s.bus.Publish(ctx, notifications...)
	return result, nil
}

func (s *Service) execute(ctx context.Context, cmd command.Command) (engine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Execute(ctx, cmd)
}

// State replays the current state of an encounter.
func (s *Service) State(ctx context.Context, encounterID string) (encounter.State, error) {
	loaded, err := s.loader.LoadEncounter(ctx, encounterID)
	if err != nil {
		return encounter.State{}, fmt.Errorf("load encounter %s: %w", encounterID, err)
	}
	state, ok := loaded.(encounter.State)
	if !ok || !state.Created {
		return encounter.State{}, apperrors.WithMetadata(apperrors.CodeEncounterNotFound, "encounter does not exist", map[string]string{
			"encounter": encounterID,
		})
	}
	return state, nil
}

// Projection returns the presentation projection of an encounter.
func (s *Service) Projection(ctx context.Context, encounterID string) (encounter.Projection, error) {
	state, err := s.State(ctx, encounterID)
	if err != nil {
		return encounter.Projection{}, err
	}
	return encounter.Project(state), nil
}

// ErrQueryUnsupported is returned by Events when the stores cannot filter
// the journal.
var ErrQueryUnsupported = errors.New("event filtering requires the sqlite journal")

// Events lists journal events of an encounter matching an AIP-160 filter.
func (s *Service) Events(ctx context.Context, encounterID, filter string, limit int) ([]event.Event, error) {
	if s.query == nil {
		return nil, ErrQueryUnsupported
	}
	return s.query.ListEventsFiltered(ctx, encounterID, filter, limit)
}

func (s *Service) applyDefaultPolicy(cmd command.Command) (command.Command, error) {
	var payload encounter.CreatePayload
	if len(cmd.PayloadJSON) > 0 {
		if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
			return cmd, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "create payload is invalid", map[string]string{
				"reason": err.Error(),
			})
		}
	}
	if payload.Policy != nil {
		return cmd, nil
	}
	policy := s.defaultPolicy
	payload.Policy = &policy
	data, err := json.Marshal(payload)
	if err != nil {
		return cmd, fmt.Errorf("encode create payload: %w", err)
	}
	cmd.PayloadJSON = data
	return cmd, nil
}
