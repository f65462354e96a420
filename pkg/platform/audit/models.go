package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so stores
// can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers registry changes and decisions with regulatory
	// significance. These require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers administrative access and list maintenance.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject names the entity acted on, e.g. "policy:7" or "list:0xab..".
	Subject  string
	Action   string
	Decision string
	Reason   string
	// RequestID is the correlation id of the originating request.
	RequestID string
	// ActorID tracks who performed an administrative action.
	ActorID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

type AuditEvent string

const (
	// Registry events
	EventPolicyRegistered    AuditEvent = "policy_registered"
	EventPolicyRemoved       AuditEvent = "policy_removed"
	EventPolicyStatusChanged AuditEvent = "policy_status_changed"

	// List module events
	EventListDeployed AuditEvent = "list_deployed"
	EventListAdded    AuditEvent = "list_added"
	EventListRemoved  AuditEvent = "list_removed"

	// Selection and decision events
	EventSelectionChanged AuditEvent = "selection_changed"
	EventDecisionMade     AuditEvent = "decision_made"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventPolicyRegistered:    CategoryCompliance,
	EventPolicyRemoved:       CategoryCompliance,
	EventPolicyStatusChanged: CategoryCompliance,
	EventDecisionMade:        CategoryCompliance,

	EventListDeployed: CategorySecurity,
	EventListAdded:    CategorySecurity,
	EventListRemoved:  CategorySecurity,

	EventSelectionChanged: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
