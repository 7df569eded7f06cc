package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidmatch/platform/internal/shared/events"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Subscriber converts domain events into audit entries
type Subscriber struct {
	repo Repository
	bus  events.EventBus
}

// NewSubscriber creates a new audit subscriber
func NewSubscriber(repo Repository, bus events.EventBus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to every audited event stream
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"assessment.*", "audit-assessment-subscriber"},
		{"application.*", "audit-application-subscriber"},
		{"simulation.*", "audit-simulation-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", p.pattern, err)
		}
	}
	return nil
}

func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := s.entryFromEvent(event)
	if entry == nil {
		return nil
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// entryFromEvent maps one event to a chained entry. The resource type is
// the event type's prefix; the entry links to the current chain head.
func (s *Subscriber) entryFromEvent(event events.Event) *Entry {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}
	resourceType := parts[0]

	var resourceID *types.ID
	if !event.SubjectID.IsZero() {
		id := event.SubjectID
		resourceID = &id
	}

	actorType := ActorTypeSystem
	switch event.ActorType {
	case "applicant":
		actorType = ActorTypeApplicant
	case "agency":
		actorType = ActorTypeAgency
	}

	var details map[string]any
	if data, ok := event.Data.(map[string]any); ok {
		details = data
	}

	return NewEntry(actorType, event.SessionID, event.Type, resourceType, resourceID, details, s.repo.LastHash())
}
