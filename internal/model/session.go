package model

import "time"

// SessionKind selects how a session's attendance roster is seeded.
type SessionKind string

const (
	// SessionPlenaria is a full-assembly session: committees vote as a
	// bloc (one row per committee) alongside individually tracked EB/CR
	// officers.  Seeded from the assembly participants roster.
	SessionPlenaria SessionKind = "plenaria"
	// SessionSessao is a topical/breakout session where each approved
	// registration is tracked individually.
	SessionSessao SessionKind = "sessao"
	// SessionAvulsa is a standalone session with no roster; attendance
	// rows are created lazily as people check in or are marked.
	SessionAvulsa SessionKind = "avulsa"
)

// SessionStatus is the lifecycle state of a session.  Archival is
// reversible and has no side effects on attendance rows.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionArchived SessionStatus = "archived"
)

// Session is a meeting for which attendance is tracked.  AssemblyID is
// nil for avulsa sessions, which exist outside any assembly.
//
// Fields:
//  ID         – primary key identifier.
//  AssemblyID – owning assembly; nil for avulsa sessions.
//  Name       – session title.
//  Kind       – plenaria, sessao or avulsa.
//  Status     – active or archived.
//  CreatedBy  – identity of the operator who opened the session.
type Session struct {
	ID         uint64        // sessions.id
	AssemblyID *uint64       // sessions.assembly_id (nullable)
	Name       string        // sessions.name
	Kind       SessionKind   // sessions.kind
	Status     SessionStatus // sessions.status
	CreatedBy  string        // sessions.created_by
	CreatedAt  time.Time     // sessions.created_at
	ArchivedAt *time.Time    // sessions.archived_at (nullable)
	ArchivedBy *string       // sessions.archived_by (nullable)
}
