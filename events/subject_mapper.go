package events

import "fmt"

// SubjectMapper handles mapping between ledger events and NATS subjects
type SubjectMapper struct {
	prefix string
}

// NewSubjectMapper creates a mapper rooted at prefix, e.g. "ledger"
func NewSubjectMapper(prefix string) *SubjectMapper {
	return &SubjectMapper{prefix: prefix}
}

// MapEventToSubject converts an event type to its subject
func (m *SubjectMapper) MapEventToSubject(eventType EventType) string {
	switch eventType {
	case EventTypeProfileCreated:
		return m.subject("profile.created")
	case EventTypeBetCreated:
		return m.subject("bet.created")
	case EventTypeBetAccepted:
		return m.subject("bet.accepted")
	case EventTypeBetCancelled:
		return m.subject("bet.cancelled")
	case EventTypeBetResolved:
		return m.subject("bet.resolved")
	case EventTypeBetClosed:
		return m.subject("bet.closed")
	case EventTypeFriendRequested:
		return m.subject("friendship.requested")
	case EventTypeFriendAccepted:
		return m.subject("friendship.accepted")
	case EventTypeWalletFunded:
		return m.subject("wallet.funded")
	case EventTypeAccountsChanged:
		return m.subject("accounts.changed")
	default:
		return m.subject(fmt.Sprintf("unknown.%s", eventType))
	}
}

// MapSubjectToEventType converts a subject back to an event type
func (m *SubjectMapper) MapSubjectToEventType(subject string) (EventType, bool) {
	for _, eventType := range AllEventTypes {
		if m.MapEventToSubject(eventType) == subject {
			return eventType, true
		}
	}
	return "", false
}

// AllSubjects returns all subjects the ledger publishes to
func (m *SubjectMapper) AllSubjects() []string {
	subjects := make([]string, 0, len(AllEventTypes))
	for _, eventType := range AllEventTypes {
		subjects = append(subjects, m.MapEventToSubject(eventType))
	}
	return subjects
}

// Wildcard matches every ledger subject
func (m *SubjectMapper) Wildcard() string {
	return m.subject(">")
}

func (m *SubjectMapper) subject(suffix string) string {
	return m.prefix + "." + suffix
}
