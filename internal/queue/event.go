// Package queue defines message payloads exchanged over the message
// broker. Every admin decision that other teams care about (CR
// secretariats, finance) is published to a durable audit queue instead
// of being synchronously fanned out from the request path.
package queue

// Event type discriminators stored in the envelope.
const (
	TypeRegistrationReviewed = "registration.reviewed"
	TypeSessionArchived      = "session.archived"
)

// Envelope wraps every published event with its type and correlation
// id so the consumer can dispatch without sniffing payload shapes.
type Envelope struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	OccurredAt string `json:"occurred_at"`

	RegistrationReviewed *RegistrationReviewedEvent `json:"registration_reviewed,omitempty"`
	SessionArchived      *SessionArchivedEvent      `json:"session_archived,omitempty"`
}

// RegistrationReviewedEvent is published when an admin review decision
// lands on a registration. It carries enough to log or notify without
// querying the primary database.
type RegistrationReviewedEvent struct {
	RegistrationID  uint64  `json:"registration_id"`
	AssemblyID      uint64  `json:"assembly_id"`
	ModalityID      *uint64 `json:"modality_id,omitempty"`
	ParticipantName string  `json:"participant_name"`
	Status          string  `json:"status"`
	ReviewedBy      string  `json:"reviewed_by"`
}

// SessionArchivedEvent is published when a session is archived.
type SessionArchivedEvent struct {
	SessionID  uint64  `json:"session_id"`
	AssemblyID *uint64 `json:"assembly_id,omitempty"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	ArchivedBy string  `json:"archived_by"`
}
