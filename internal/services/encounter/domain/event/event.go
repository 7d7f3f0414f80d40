package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/domain/encoding"
)

// Type identifies the event type string.
type Type string

// ActorType identifies who caused the event.
type ActorType string

const (
	// ActorTypeSystem indicates an automatic, service-originated event.
	ActorTypeSystem ActorType = "system"
	// ActorTypeParticipant indicates a player-originated event.
	ActorTypeParticipant ActorType = "participant"
	// ActorTypeGM indicates a GM-originated event.
	ActorTypeGM ActorType = "gm"
)

// Event is the journal envelope for one encounter fact.
type Event struct {
	EncounterID string
	Seq         uint64
	Hash        string
	PrevHash    string
	ChainHash   string
	Type        Type
	Timestamp   time.Time
	ActorType   ActorType
	ActorID     string
	RequestID   string
	EntityType  string
	EntityID    string
	PayloadJSON []byte
}

// hashEnvelope is the content hashed for integrity. Seq and hashes are
// excluded so the hash is a pure function of the fact.
type hashEnvelope struct {
	EncounterID string          `json:"encounter_id"`
	Type        string          `json:"type"`
	Timestamp   string          `json:"timestamp"`
	ActorType   string          `json:"actor_type"`
	ActorID     string          `json:"actor_id,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	EntityType  string          `json:"entity_type,omitempty"`
	EntityID    string          `json:"entity_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// EventHash returns the content hash of evt.
func EventHash(evt Event) (string, error) {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return encoding.ContentHash(hashEnvelope{
		EncounterID: evt.EncounterID,
		Type:        string(evt.Type),
		Timestamp:   evt.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorType:   string(evt.ActorType),
		ActorID:     evt.ActorID,
		RequestID:   evt.RequestID,
		EntityType:  evt.EntityType,
		EntityID:    evt.EntityID,
		Payload:     json.RawMessage(payload),
	})
}

// ChainHash links evt to its predecessor's chain hash.
func ChainHash(evt Event, prevHash string) (string, error) {
	hash := evt.Hash
	if hash == "" {
		computed, err := EventHash(evt)
		if err != nil {
			return "", err
		}
		hash = computed
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s:%s", evt.EncounterID, evt.Seq, prevHash, hash)))
	return hex.EncodeToString(sum[:]), nil
}
