package model

import "time"

// AttendanceStatus is the quorum state of one roster entry in a session.
// This is a four-state model and all four states are load-bearing for
// quorum arithmetic: collapsing NotCounting into Absent would silently
// change quorum percentages.
type AttendanceStatus string

const (
	// AttendancePresent counts toward quorum.
	AttendancePresent AttendanceStatus = "present"
	// AttendanceAbsent was explicitly marked absent; part of the quorum
	// denominator.
	AttendanceAbsent AttendanceStatus = "absent"
	// AttendanceExcluded was explicitly removed from quorum, e.g. a
	// committee disqualified after the session started.
	AttendanceExcluded AttendanceStatus = "excluded"
	// AttendanceNotCounting exists on the roster but has not yet entered
	// the quorum calculation.  This is the seed state for all rows.
	AttendanceNotCounting AttendanceStatus = "not-counting"
)

// Valid reports whether s is one of the four known attendance states.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcluded, AttendanceNotCounting:
		return true
	}
	return false
}

// Attendance participant types.  "comite" rows represent a whole local
// committee (group identity carried by ComiteLocal); "individual" rows
// come from approved registrations with ParticipantID holding the
// registration id; "user" rows are walk-ins marked directly against a
// user id with no registration behind them.
const (
	AttendeeIndividual = "individual"
	AttendeeComite     = "comite"
	AttendeeEB         = "eb"
	AttendeeCR         = "cr"
	AttendeeUser       = "user"
)

// AttendanceRecord is one roster entry of a session.  At most one record
// exists per (session, participant, participant type); the storage layer
// backs this with a unique key so concurrent marks cannot duplicate rows.
//
// Fields:
//  ID              – primary key identifier.
//  SessionID       – owning session.
//  AssemblyID      – denormalized from the session; nil for avulsa sessions.
//  ParticipantID   – roster id, registration id or user id depending on type.
//  ParticipantType – see the Attendee* constants.
//  Name            – denormalized display name.
//  Role            – optional role label.
//  ComiteLocal       – optional committee grouping tag.
//  ParticipantStatus – committee standing copied from the roster at seed
//                      time; stale relative to later roster edits, so
//                      reports prefer the live roster when available.
//  Status            – four-state attendance value.
//  MarkedAt/By     – creation audit fields.
//  LastUpdated/By  – set only when an existing record is re-marked.
type AttendanceRecord struct {
	ID                uint64           // session_attendance.id
	SessionID         uint64           // session_attendance.session_id
	AssemblyID        *uint64          // session_attendance.assembly_id (nullable)
	ParticipantID     string           // session_attendance.participant_id
	ParticipantType   string           // session_attendance.participant_type
	Name              string           // session_attendance.name
	Role              *string          // session_attendance.role (nullable)
	ComiteLocal       *string          // session_attendance.comite_local (nullable)
	ParticipantStatus *string          // session_attendance.participant_status (nullable)
	Status            AttendanceStatus // session_attendance.status
	MarkedAt          time.Time        // session_attendance.marked_at
	MarkedBy          string           // session_attendance.marked_by
	LastUpdated       *time.Time       // session_attendance.last_updated (nullable)
	LastUpdatedBy     *string          // session_attendance.last_updated_by (nullable)
}
