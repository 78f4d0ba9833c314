package model

import "time"

// RegistrationStatus is the review state of a registration.  Transitions
// are driven by admin review actions and participant self-service; no
// transition graph is enforced at the data layer, which keeps admin
// correction workflows (e.g. un-cancelling by re-approving) possible.
type RegistrationStatus string

const (
	RegistrationPending       RegistrationStatus = "pending"
	RegistrationApproved      RegistrationStatus = "approved"
	RegistrationRejected      RegistrationStatus = "rejected"
	RegistrationCancelled     RegistrationStatus = "cancelled"
	RegistrationPendingReview RegistrationStatus = "pending_review"
)

// CountsTowardCapacity reports whether a registration in this status
// still occupies a spot in its modality.  Only rejected and cancelled
// registrations release their spot.
func (s RegistrationStatus) CountsTowardCapacity() bool {
	return s != RegistrationRejected && s != RegistrationCancelled
}

// Registration is one participant's enrolment in an assembly, optionally
// under a modality.  Personal and payment fields are a loose bag of
// optional columns filled in by the registration form; only identity and
// status drive behaviour.
//
// Fields:
//  ID              – primary key identifier.
//  AssemblyID      – owning assembly.
//  ModalityID      – chosen modality; nil for modality-less assemblies.
//  ParticipantType – identity class ("individual", "comite", "eb", "cr").
//  ParticipantID   – external identity of the participant.
//  Name            – participant display name.
//  Role            – optional organisational role.
//  ComiteLocal     – optional local-committee grouping tag.
//  Status          – review state (see RegistrationStatus).
type Registration struct {
	ID               uint64             // registrations.id
	AssemblyID       uint64             // registrations.assembly_id
	ModalityID       *uint64            // registrations.modality_id (nullable)
	ParticipantType  string             // registrations.participant_type
	ParticipantID    string             // registrations.participant_id
	Name             string             // registrations.name
	Role             *string            // registrations.role (nullable)
	ComiteLocal      *string            // registrations.comite_local (nullable)
	Status           RegistrationStatus // registrations.status
	Email            *string            // registrations.email (nullable)
	Phone            *string            // registrations.phone (nullable)
	City             *string            // registrations.city (nullable)
	UF               *string            // registrations.uf (nullable)
	EmergencyContact *string            // registrations.emergency_contact (nullable)
	DietaryNotes     *string            // registrations.dietary_notes (nullable)
	PaymentRef       *string            // registrations.payment_ref (nullable)
	RegisteredBy     string             // registrations.registered_by
	RegisteredAt     time.Time          // registrations.registered_at
	ReviewedBy       *string            // registrations.reviewed_by (nullable)
	ReviewedAt       *time.Time         // registrations.reviewed_at (nullable)
	ReviewNote       *string            // registrations.review_note (nullable)
	ResubmittedAt    *time.Time         // registrations.resubmitted_at (nullable)
	ResubmissionNote *string            // registrations.resubmission_note (nullable)
}
