package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/JakeHR99/Stryder-TTRPG/internal/platform/errors"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/channel"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/command"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/engine"
	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

const (
	defaultIntentsPerSecond = 10
	intentBurst             = 20
)

// ErrRateLimited is returned when one participant's intents arrive faster
// than the receiver admits them. The intent is dropped.
var ErrRateLimited = errors.New("intent rate limit exceeded")

// Executor runs a command on the authoritative writer.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (engine.Result, error)
}

// Publisher delivers notifications to observers.
type Publisher interface {
	Publish(ctx context.Context, notifications ...notify.Notification)
}

// Verifier resolves a participant token.
type Verifier interface {
	Verify(token string) (Participant, error)
}

// ReceiverConfig wires a Receiver.
type ReceiverConfig struct {
	Executor         Executor
	Commands         *command.Registry
	Verifier         Verifier
	Publisher        Publisher
	Logger           zerolog.Logger
	IntentsPerSecond float64
	Locale           string
}

// Receiver is the authority end of the gateway.
type Receiver struct {
	executor  Executor
	commands  *command.Registry
	verifier  Verifier
	publisher Publisher
	log       zerolog.Logger
	locale    string

	limit    rate.Limit
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewReceiver validates cfg and builds a receiver.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.Commands == nil {
		return nil, errors.New("command registry is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	limit := rate.Limit(cfg.IntentsPerSecond)
	if cfg.IntentsPerSecond <= 0 {
		limit = defaultIntentsPerSecond
	}
	return &Receiver{
		executor:  cfg.Executor,
		commands:  cfg.Commands,
		verifier:  cfg.Verifier,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		locale:    cfg.Locale,
		limit:     limit,
		limiters:  make(map[string]*rate.Limiter),
	}, nil
}

// allow spends one token from the participant's bucket. Callers whose token
// does not verify share the empty-key bucket.
func (r *Receiver) allow(participantID string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters[participantID]
	if !ok {
		limiter = rate.NewLimiter(r.limit, intentBurst)
		r.limiters[participantID] = limiter
	}
	r.mu.Unlock()
	return limiter.Allow()
}

// Listen subscribes the receiver to intents arriving on ch.
func (r *Receiver) Listen(ch channel.Channel) (unsubscribe func()) {
	return ch.OnReceive(channel.TopicIntents, func(ctx context.Context, payload json.RawMessage) {
		var intent Intent
		if err := json.Unmarshal(payload, &intent); err != nil {
			r.log.Warn().Err(err).Msg("drop undecodable intent")
			return
		}
		if _, err := r.Handle(ctx, intent); err != nil {
			r.log.Error().Err(err).
				Str("intent_id", intent.ID).
				Str("intent_kind", string(intent.Kind)).
				Str("encounter_id", intent.EncounterID).
				Msg("intent failed")
		}
	})
}

// Handle verifies, maps and executes one intent. Rejections are returned as
// warnings and published; the error is reserved for dropped intents and
// failures below the decider.
func (r *Receiver) Handle(ctx context.Context, intent Intent) (Receipt, error) {
	caller, err := r.verifier.Verify(intent.Token)
	if !r.allow(caller.ID) {
		return Receipt{}, ErrRateLimited
	}
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.CodePermissionDenied {
			return Receipt{}, err
		}
		target := intent.CombatantID
		if strings.TrimSpace(target) == "" {
			target = intent.EncounterID
		}
		return r.warn(ctx, intent, command.Rejection{
			Code:     string(apperrors.CodePermissionDenied),
			Message:  err.Error(),
			Metadata: map[string]string{"combatant": target},
		}), nil
	}

	cmd, err := toCommand(intent, caller)
	if err == nil {
		cmd, err = r.commands.ValidateForDecision(cmd)
	}
	if err != nil {
		return r.warn(ctx, intent, command.Rejection{
			Code:     string(apperrors.CodeInvalidArgument),
			Message:  err.Error(),
			Metadata: map[string]string{"reason": err.Error()},
		}), nil
	}

	result, err := r.executor.Execute(ctx, cmd)
	if err != nil {
		return Receipt{}, fmt.Errorf("execute %s: %w", cmd.Type, err)
	}
	if !result.Decision.Rejected() {
		return Receipt{Accepted: true}, nil
	}
	warnings := make([]notify.Notification, 0, len(result.Decision.Rejections))
	for _, rejection := range result.Decision.Rejections {
		warnings = append(warnings, notify.Warning(cmd.EncounterID, intent.ID, rejection, r.locale))
	}
	r.publish(ctx, warnings...)
	return Receipt{Warnings: warnings}, nil
}

func (r *Receiver) warn(ctx context.Context, intent Intent, rejection command.Rejection) Receipt {
	r.log.Warn().
		Str("code", rejection.Code).
		Str("intent_kind", string(intent.Kind)).
		Str("encounter_id", intent.EncounterID).
		Msg(rejection.Message)
	warning := notify.Warning(intent.EncounterID, intent.ID, rejection, r.locale)
	r.publish(ctx, warning)
	return Receipt{Warnings: []notify.Notification{warning}}
}

func (r *Receiver) publish(ctx context.Context, notifications ...notify.Notification) {
	if r.publisher == nil || len(notifications) == 0 {
		return
	}
	r.publisher.Publish(ctx, notifications...)
}
