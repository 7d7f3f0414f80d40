package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/channel"
)

// Mode says whether a gateway writes state or forwards intents.
type Mode string

const (
	ModeAuthority Mode = "authority"
	ModeRelay     Mode = "relay"
)

// ParseMode reads a configured mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAuthority:
		return ModeAuthority, nil
	case ModeRelay:
		return ModeRelay, nil
	default:
		return "", fmt.Errorf("gateway mode %q must be authority or relay", value)
	}
}

// Gateway is the single entry point for encounter mutations.
type Gateway struct {
	mode     Mode
	channel  channel.Channel
	receiver *Receiver
}

// NewAuthority returns a gateway that handles intents with receiver.
func NewAuthority(receiver *Receiver) (*Gateway, error) {
	if receiver == nil {
		return nil, errors.New("receiver is required")
	}
	return &Gateway{mode: ModeAuthority, receiver: receiver}, nil
}

// NewRelay returns a gateway that forwards intents on ch.
func NewRelay(ch channel.Channel) (*Gateway, error) {
	if ch == nil {
		return nil, errors.New("channel is required")
	}
	return &Gateway{mode: ModeRelay, channel: ch}, nil
}

// Mode reports the gateway mode.
func (g *Gateway) Mode() Mode {
	return g.mode
}

// Submit routes intent. A relay returns as soon as the intent is sent; the
// authority handles it in place.
func (g *Gateway) Submit(ctx context.Context, intent Intent) (Receipt, error) {
	if strings.TrimSpace(intent.ID) == "" {
		return Receipt{}, errors.New("intent id is required")
	}
	if strings.TrimSpace(intent.EncounterID) == "" {
		return Receipt{}, errors.New("encounter id is required")
	}
	switch g.mode {
	case ModeRelay:
		if err := g.channel.Send(ctx, channel.TopicIntents, intent); err != nil {
			return Receipt{}, fmt.Errorf("forward intent: %w", err)
		}
		return Receipt{Forwarded: true}, nil
	case ModeAuthority:
		return g.receiver.Handle(ctx, intent)
	default:
		return Receipt{}, fmt.Errorf("gateway mode %q is not supported", g.mode)
	}
}
