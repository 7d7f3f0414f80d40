package scenario

import (
	"sync"

	"github.com/JakeHR99/Stryder-TTRPG/internal/services/encounter/notify"
)

// AssertionMode controls what a failed expectation does.
type AssertionMode int

const (
	// AssertionStrict fails the scenario on the first unmet expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs unmet expectations and keeps going.
	AssertionLogOnly
)

type scenarioState struct {
	encounterID string
	actors      map[string]string
	combatants  map[string]string
	// damage holds the damage ids recorded per actor id, oldest first.
	damage map[string][]string

	mu            sync.Mutex
	notifications []notify.Notification
}

func newScenarioState(encounterID string) *scenarioState {
	return &scenarioState{
		encounterID: encounterID,
		actors:      map[string]string{},
		combatants:  map[string]string{},
		damage:      map[string][]string{},
	}
}

func (s *scenarioState) record(n notify.Notification) {
	if n.EncounterID != s.encounterID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

// drain returns and forgets the notifications seen since the last call.
func (s *scenarioState) drain() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notifications
	s.notifications = nil
	return out
}
