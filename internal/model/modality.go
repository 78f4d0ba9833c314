package model

import "time"

// Modality is a registration category offered by one assembly, such as
// "Participante" or "Observador Externo".  Each modality carries its own
// price and an optional participant cap.  Display order is monotonic per
// assembly: new modalities receive max(existing order)+1, and order values
// are never reused after a deletion, so gaps are expected.
//
// Fields:
//  ID              – primary key identifier.
//  AssemblyID      – owning assembly.
//  Name            – modality name; no uniqueness is enforced.
//  Description     – optional longer description.
//  PriceCents      – price in integer minor-currency units.
//  MaxParticipants – optional cap on active registrations; nil = unlimited.
//  IsActive        – inactive modalities refuse new registrations.
//  DisplayOrder    – monotonic position within the assembly.
type Modality struct {
	ID              uint64    // registration_modalities.id
	AssemblyID      uint64    // registration_modalities.assembly_id
	Name            string    // registration_modalities.name
	Description     *string   // registration_modalities.description (nullable)
	PriceCents      int       // registration_modalities.price_cents
	MaxParticipants *int      // registration_modalities.max_participants (nullable)
	IsActive        bool      // registration_modalities.is_active
	DisplayOrder    int       // registration_modalities.display_order
	CreatedAt       time.Time // registration_modalities.created_at
	UpdatedAt       time.Time // registration_modalities.updated_at
}

// ModalityStats summarises occupancy for one modality.  ActiveCount is
// the number of registrations whose status still consumes a spot (i.e.
// anything other than rejected or cancelled).  IsFull and IsNearFull are
// only meaningful when the modality has a participant cap; a modality
// without a cap is never full.
type ModalityStats struct {
	ModalityID      uint64 `json:"modality_id"`
	ActiveCount     int    `json:"active_count"`
	MaxParticipants *int   `json:"max_participants,omitempty"`
	AvailableSpots  *int   `json:"available_spots,omitempty"`
	IsFull          bool   `json:"is_full"`
	IsNearFull      bool   `json:"is_near_full"`
}

// CapacityDecision is the outcome of a capacity check for a modality.
// Reason is a human-readable explanation intended for UI display only;
// callers must not parse it as a machine-readable code.
type CapacityDecision struct {
	CanAccept bool          `json:"can_accept"`
	Reason    string        `json:"reason"`
	Stats     ModalityStats `json:"stats"`
}
