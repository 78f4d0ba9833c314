package model

import "time"

// AssemblyKind distinguishes in-person general assemblies from online ones.
type AssemblyKind string

const (
	AssemblyKindAG  AssemblyKind = "AG"  // in-person General Assembly
	AssemblyKindAGE AssemblyKind = "AGE" // online (extraordinary) General Assembly
)

// AssemblyStatus is the lifecycle state of an assembly.  Assemblies are
// archived rather than deleted so that modalities, registrations and
// sessions remain queryable for history.
type AssemblyStatus string

const (
	AssemblyActive   AssemblyStatus = "active"
	AssemblyArchived AssemblyStatus = "archived"
)

// Assembly represents one edition of a General Assembly.  Modalities,
// registrations, participants and sessions all hang off an assembly.
//
// Fields:
//  ID                   – primary key identifier.
//  Name                 – human-readable edition name (e.g. "AG 2025.1").
//  Kind                 – AG (in-person) or AGE (online).
//  Location             – host city/venue; free text.
//  StartsAt / EndsAt    – assembly window.
//  Status               – active or archived.
//  RegistrationOpen     – whether new registrations are accepted.
//  RegistrationDeadline – optional cut-off for new registrations.
//  MaxCapacity          – optional overall participant cap.
//  PaymentRequired      – whether modalities carry real prices.
//  CreatedBy            – identity of the admin who created it.
type Assembly struct {
	ID                   uint64         // assemblies.id
	Name                 string         // assemblies.name
	Kind                 AssemblyKind   // assemblies.kind
	Location             string         // assemblies.location
	StartsAt             time.Time      // assemblies.starts_at
	EndsAt               time.Time      // assemblies.ends_at
	Status               AssemblyStatus // assemblies.status
	RegistrationOpen     bool           // assemblies.registration_open
	RegistrationDeadline *time.Time     // assemblies.registration_deadline (nullable)
	MaxCapacity          *int           // assemblies.max_capacity (nullable)
	PaymentRequired      bool           // assemblies.payment_required
	CreatedBy            string         // assemblies.created_by
	CreatedAt            time.Time      // assemblies.created_at
	UpdatedAt            time.Time      // assemblies.updated_at
	ArchivedAt           *time.Time     // assemblies.archived_at (nullable)
	ArchivedBy           *string        // assemblies.archived_by (nullable)
}

// AcceptsRegistrations reports whether a new registration may be created
// against this assembly at the given instant.  It checks the lifecycle
// status, the registration toggle and the optional deadline.  Capacity is
// a modality-level concern and is decided separately.
func (a *Assembly) AcceptsRegistrations(now time.Time) bool {
	if a.Status != AssemblyActive || !a.RegistrationOpen {
		return false
	}
	if a.RegistrationDeadline != nil && now.After(*a.RegistrationDeadline) {
		return false
	}
	return true
}
